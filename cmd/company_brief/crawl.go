package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/company-brief/internal/crawling"
	"github.com/jonathan/company-brief/internal/fetch"
	"github.com/jonathan/company-brief/internal/observability"
	"github.com/jonathan/company-brief/internal/pipeline"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Fetch a page and print its cleaned text",
	Long:  "Fetches a single page with the same crawler the pipeline uses and prints the extracted main text.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

var (
	crawlMaxChars int
	crawlLinks    bool
)

func init() {
	crawlCmd.Flags().IntVar(&crawlMaxChars, "max-chars", 2000, "Maximum characters of text to print (0 for all)")
	crawlCmd.Flags().BoolVar(&crawlLinks, "links", false, "Also print the page's links that match a topic")
	crawlCmd.Flags().BoolVar(&flags.useBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	crawler := pipeline.NewCrawler(appConfig, logger)
	defer crawler.Close()

	page, err := crawler.Fetch(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", args[0], err)
	}
	if !fetch.IsHTML(page.ContentType) {
		logger.Warn("page is not HTML", zap.String("content_type", page.ContentType))
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintPage(page, crawlMaxChars)

	if crawlLinks {
		base := page.FinalURL
		if base == "" {
			base = page.URL
		}
		links, err := crawling.ExtractLinks(page.HTML, base)
		if err != nil {
			return fmt.Errorf("failed to extract links: %w", err)
		}
		printer.PrintLinks(links)
	}
	return nil
}
