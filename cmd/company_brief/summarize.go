package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/company-brief/internal/observability"
	"github.com/jonathan/company-brief/internal/pipeline"
	"github.com/jonathan/company-brief/internal/schemas"
	"github.com/jonathan/company-brief/internal/types"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a company's overview, desired talent and vision",
	Long: `Gathers evidence from the company homepage and web search for three topics and
summarizes each with the language model. Topics that cannot be summarized are
reported with LOW confidence instead of failing the run.

When --name is not given, the company name and homepage URL are read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

var (
	summarizeName     string
	summarizeURL      string
	summarizeJSON     bool
	summarizeOut      string
	summarizeEvidence string
)

const reportSchemaPath = "schemas/report.schema.json"

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeName, "name", "n", "", "Company name (prompted for when omitted)")
	summarizeCmd.Flags().StringVarP(&summarizeURL, "url", "u", "", "Company homepage URL (optional)")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "Print the report as JSON")
	summarizeCmd.Flags().StringVarP(&summarizeOut, "out", "o", "", "Also write the JSON report to this file")
	summarizeCmd.Flags().StringVar(&summarizeEvidence, "evidence", "", "Print the evidence behind a topic (overview, talent, vision or all); ignored with --json")
	summarizeCmd.Flags().BoolVar(&flags.useBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	summarizeCmd.Flags().StringVar(&flags.searchProvider, "search-provider", "", "Search backend: auto, serpapi, google, duckduckgo or none")
	summarizeCmd.Flags().DurationVar(&flags.topicTimeout, "topic-timeout", 0, "Evidence gathering timeout per topic (default 15s)")
	summarizeCmd.Flags().DurationVar(&flags.runTimeout, "run-timeout", 0, "Evidence gathering timeout for the whole run (default 60s)")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	evidenceTopics, err := parseEvidenceTopics(summarizeEvidence)
	if err != nil {
		return err
	}

	name, homepage := summarizeName, summarizeURL
	if name == "" {
		name, homepage, err = promptCompany(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	opts := pipeline.Options{Logger: logger}
	if !summarizeJSON {
		progress := observability.NewPrinter(cmd.ErrOrStderr())
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			progress.PrintProgress(e.Topic, e.State, e.Message)
		}
	}

	report, err := pipeline.New(appConfig, opts).Run(cmd.Context(), name, homepage)
	if report == nil {
		return err
	}

	if summarizeOut != "" {
		if outErr := writeReportFile(summarizeOut, report); outErr != nil {
			return outErr
		}
	}

	if summarizeJSON {
		if encErr := writeJSON(cmd.OutOrStdout(), report); encErr != nil {
			return encErr
		}
	} else {
		printReport(observability.NewPrinter(cmd.OutOrStdout()), report, evidenceTopics)
	}
	return err
}

// parseEvidenceTopics resolves the --evidence value. Empty selects nothing.
func parseEvidenceTopics(value string) ([]types.Topic, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return nil, nil
	case "all":
		return types.AllTopics(), nil
	}
	topic, err := types.ParseTopic(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --evidence value: %w", err)
	}
	return []types.Topic{topic}, nil
}

func printReport(p *observability.Printer, report *types.Report, evidenceTopics []types.Topic) {
	p.PrintReport(report)
	for _, topic := range evidenceTopics {
		bundle := report.Bundles[topic]
		bundle.Topic = topic
		p.PrintEvidence(bundle)
	}
}

// writeReportFile writes the report as JSON and validates it against the report
// schema when the schema can be found. A report that fails validation is an
// error; a schema that cannot be loaded is only logged.
func writeReportFile(path string, report *types.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeJSON(f, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	schemaPath := schemas.ResolveSchemaPath(reportSchemaPath)
	if schemaPath == "" {
		logger.Debug("report schema not found, skipping validation", zap.String("schema", reportSchemaPath))
		return nil
	}
	if err := schemas.ValidateJSON(schemaPath, path); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("report does not validate against schema: %w", err)
		}
		logger.Warn("could not validate report against schema", zap.Error(err))
	}
	return nil
}

// promptCompany reads the company name and optional homepage URL, one per line.
func promptCompany(in io.Reader, out io.Writer) (string, string, error) {
	scanner := bufio.NewScanner(in)

	_, _ = fmt.Fprint(out, "회사 이름: ")
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", "", fmt.Errorf("failed to read company name: %w", err)
		}
		return "", "", fmt.Errorf("company name is required")
	}
	name := strings.TrimSpace(scanner.Text())
	if name == "" {
		return "", "", fmt.Errorf("company name is required")
	}

	_, _ = fmt.Fprint(out, "홈페이지 URL (선택, Enter로 건너뛰기): ")
	var homepage string
	if scanner.Scan() {
		homepage = strings.TrimSpace(scanner.Text())
	}
	return name, homepage, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
