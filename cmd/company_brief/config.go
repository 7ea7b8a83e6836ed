package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-brief/internal/config"
)

// cliFlags holds flag values that override configuration. Commands that share
// a setting bind the same field.
type cliFlags struct {
	configPath     string
	envFile        string
	verbose        bool
	logFile        string
	useBrowser     bool
	searchProvider string
	topicTimeout   time.Duration
	runTimeout     time.Duration
}

var flags cliFlags

// loadConfig resolves the configuration in precedence order: environment
// (seeded from .env), then the JSON config file for anything unset, then
// defaults, then flags the user actually passed.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, err
	}

	if flags.configPath != "" {
		fileCfg, err := config.LoadFile(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}

	merged := cfg.MergeWithDefaults(config.Default())
	applyFlags(cmd, &merged)

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if changed(cmd, "verbose") {
		cfg.Verbose = flags.verbose
	}
	if changed(cmd, "log-file") {
		cfg.LogFile = flags.logFile
	}
	if changed(cmd, "use-browser") {
		cfg.UseBrowser = flags.useBrowser
	}
	if changed(cmd, "search-provider") {
		cfg.SearchProvider = flags.searchProvider
	}
	if changed(cmd, "topic-timeout") {
		cfg.TopicTimeout = flags.topicTimeout
	}
	if changed(cmd, "run-timeout") {
		cfg.RunTimeout = flags.runTimeout
	}
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
