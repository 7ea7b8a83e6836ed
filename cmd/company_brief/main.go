// Package main provides the company_brief CLI, which summarizes public
// information about a Korean company.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/company-brief/internal/config"
	"github.com/jonathan/company-brief/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "company_brief",
	Short: "Korean company information summarizer",
	Long: `company_brief gathers public information about a company from its homepage and
web search, and summarizes it into three sections: company overview, desired talent
and recent strategic vision.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

var (
	appConfig   *config.Config
	logger      = zap.NewNop()
	closeLogger = func() {}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
}

// setup loads the configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	appConfig = cfg

	l, closeFn, err := observability.NewLogger(cfg.Verbose, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger, closeLogger = l, closeFn
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	closeLogger()
	closeLogger = func() {}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	// PersistentPostRun is skipped when a command fails.
	closeLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
