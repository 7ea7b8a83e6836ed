package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-brief/internal/observability"
	"github.com/jonathan/company-brief/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a query against the configured search provider",
	Long:  "Runs a single query against the configured search provider and prints the results. Useful for checking credentials.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var (
	searchMaxResults int
	searchNews       bool
)

func init() {
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "m", 5, "Maximum results to return")
	searchCmd.Flags().BoolVar(&searchNews, "news", false, "Search the news index when the provider has one")
	searchCmd.Flags().StringVar(&flags.searchProvider, "search-provider", "", "Search backend: auto, serpapi, google, duckduckgo or none")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	provider, err := search.FromConfig(cmd.Context(), appConfig, logger)
	if err != nil {
		return err
	}

	var results []search.Result
	if ns, ok := provider.(search.NewsSearcher); ok && searchNews {
		results, err = ns.SearchNews(cmd.Context(), query, searchMaxResults)
	} else {
		results, err = provider.Search(cmd.Context(), query, searchMaxResults)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintSearchResults(provider.Name(), query, results)
	return nil
}
