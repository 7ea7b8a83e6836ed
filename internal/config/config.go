// Package config provides configuration loading and validation for the pipeline and CLI.
// Configuration is loaded once at process start and treated as immutable afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Search provider selectors accepted by SearchProvider.
const (
	SearchAuto       = "auto"
	SearchSerpAPI    = "serpapi"
	SearchGoogle     = "google"
	SearchDuckDuckGo = "duckduckgo"
	SearchNone       = "none"
)

// Config holds credentials and tuning knobs for a pipeline run.
// Values come from the environment (optionally seeded by a .env file), then a
// JSON config file fills anything still unset, then CLI flags override.
type Config struct {
	// Credentials
	GeminiAPIKey       string `env:"GEMINI_API_KEY" json:"gemini_api_key,omitempty"`
	SerpAPIKey         string `env:"SERPAPI_KEY" json:"serpapi_key,omitempty"`
	GoogleSearchAPIKey string `env:"GOOGLE_SEARCH_API_KEY" json:"google_search_api_key,omitempty"`
	GoogleSearchCX     string `env:"GOOGLE_SEARCH_CX" json:"google_search_cx,omitempty"`

	// Backends
	SearchProvider string `env:"SEARCH_PROVIDER" json:"search_provider,omitempty"`
	LLMModel       string `env:"LLM_MODEL" json:"llm_model,omitempty"`
	UserAgent      string `env:"CRAWL_USER_AGENT" json:"user_agent,omitempty"`
	UseBrowser     bool   `env:"CRAWL_USE_BROWSER" json:"use_browser,omitempty"`

	// Timeouts
	TopicTimeout   time.Duration `env:"TOPIC_TIMEOUT" json:"topic_timeout,omitempty"`
	RunTimeout     time.Duration `env:"RUN_TIMEOUT" json:"run_timeout,omitempty"`
	ConnectTimeout time.Duration `env:"CRAWL_CONNECT_TIMEOUT" json:"connect_timeout,omitempty"`
	FetchTimeout   time.Duration `env:"CRAWL_FETCH_TIMEOUT" json:"fetch_timeout,omitempty"`
	ModelTimeout   time.Duration `env:"MODEL_TIMEOUT" json:"model_timeout,omitempty"`

	// Limits
	SearchResults  int `env:"SEARCH_MAX_RESULTS" json:"search_results,omitempty"`
	CrawlPerTopic  int `env:"CRAWL_PER_TOPIC" json:"crawl_per_topic,omitempty"`
	TopicCharLimit int `env:"TOPIC_CHAR_BUDGET" json:"topic_char_budget,omitempty"`
	SnippetLimit   int `env:"SNIPPET_CHAR_CAP" json:"snippet_char_cap,omitempty"`

	Verbose bool   `env:"VERBOSE" json:"verbose,omitempty"`
	LogFile string `env:"LOG_FILE" json:"log_file,omitempty"`
}

// fileConfig mirrors Config for JSON files, with durations written as strings ("15s").
type fileConfig struct {
	Config
	TopicTimeout   string `json:"topic_timeout,omitempty"`
	RunTimeout     string `json:"run_timeout,omitempty"`
	ConnectTimeout string `json:"connect_timeout,omitempty"`
	FetchTimeout   string `json:"fetch_timeout,omitempty"`
	ModelTimeout   string `json:"model_timeout,omitempty"`
}

// Default returns the configuration with every default applied and no credentials.
func Default() Config {
	return Config{
		SearchProvider: SearchAuto,
		TopicTimeout:   15 * time.Second,
		RunTimeout:     60 * time.Second,
		ConnectTimeout: 5 * time.Second,
		FetchTimeout:   10 * time.Second,
		ModelTimeout:   30 * time.Second,
		SearchResults:  5,
		CrawlPerTopic:  2,
		TopicCharLimit: 6000,
		SnippetLimit:   2000,
	}
}

// Load reads the optional .env file and parses the environment into a Config.
// A missing .env file is not an error; existing environment variables win over the file.
// Unset fields stay zero so a config file can still fill them; callers finish with
// MergeWithDefaults(Default()).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := fc.Config
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fc.TopicTimeout, &cfg.TopicTimeout},
		{fc.RunTimeout, &cfg.RunTimeout},
		{fc.ConnectTimeout, &cfg.ConnectTimeout},
		{fc.FetchTimeout, &cfg.FetchTimeout},
		{fc.ModelTimeout, &cfg.ModelTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("config error: invalid duration %q: %w", d.raw, err)
		}
		*d.dst = v
	}

	return &cfg, nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.SerpAPIKey == "" {
		result.SerpAPIKey = defaults.SerpAPIKey
	}
	if result.GoogleSearchAPIKey == "" {
		result.GoogleSearchAPIKey = defaults.GoogleSearchAPIKey
	}
	if result.GoogleSearchCX == "" {
		result.GoogleSearchCX = defaults.GoogleSearchCX
	}
	if result.SearchProvider == "" {
		result.SearchProvider = defaults.SearchProvider
	}
	if result.LLMModel == "" {
		result.LLMModel = defaults.LLMModel
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}

	if result.TopicTimeout == 0 {
		result.TopicTimeout = defaults.TopicTimeout
	}
	if result.RunTimeout == 0 {
		result.RunTimeout = defaults.RunTimeout
	}
	if result.ConnectTimeout == 0 {
		result.ConnectTimeout = defaults.ConnectTimeout
	}
	if result.FetchTimeout == 0 {
		result.FetchTimeout = defaults.FetchTimeout
	}
	if result.ModelTimeout == 0 {
		result.ModelTimeout = defaults.ModelTimeout
	}

	if result.SearchResults == 0 {
		result.SearchResults = defaults.SearchResults
	}
	if result.CrawlPerTopic == 0 {
		result.CrawlPerTopic = defaults.CrawlPerTopic
	}
	if result.TopicCharLimit == 0 {
		result.TopicCharLimit = defaults.TopicCharLimit
	}
	if result.SnippetLimit == 0 {
		result.SnippetLimit = defaults.SnippetLimit
	}

	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Validate checks that the configuration has valid values.
// Missing credentials are not reported here; see RequireLLM.
func (c *Config) Validate() error {
	switch c.SearchProvider {
	case "", SearchAuto, SearchSerpAPI, SearchGoogle, SearchDuckDuckGo, SearchNone:
	default:
		return &ConfigError{Key: "SEARCH_PROVIDER", Message: fmt.Sprintf("unknown search provider %q", c.SearchProvider)}
	}

	timeouts := []struct {
		key string
		val time.Duration
	}{
		{"TOPIC_TIMEOUT", c.TopicTimeout},
		{"RUN_TIMEOUT", c.RunTimeout},
		{"CRAWL_CONNECT_TIMEOUT", c.ConnectTimeout},
		{"CRAWL_FETCH_TIMEOUT", c.FetchTimeout},
		{"MODEL_TIMEOUT", c.ModelTimeout},
	}
	for _, t := range timeouts {
		if t.val <= 0 {
			return &ConfigError{Key: t.key, Message: fmt.Sprintf("timeouts must be positive, got %s", t.val)}
		}
	}

	if c.SearchResults < 1 {
		return &ConfigError{Key: "SEARCH_MAX_RESULTS", Message: "'search_results' must be at least 1"}
	}
	if c.CrawlPerTopic < 0 {
		return &ConfigError{Key: "CRAWL_PER_TOPIC", Message: "'crawl_per_topic' must be non-negative"}
	}
	if c.TopicCharLimit <= 0 {
		return &ConfigError{Key: "TOPIC_CHAR_BUDGET", Message: "character budgets must be positive"}
	}
	if c.SnippetLimit <= 0 {
		return &ConfigError{Key: "SNIPPET_CHAR_CAP", Message: "character budgets must be positive"}
	}
	if c.SnippetLimit > c.TopicCharLimit {
		return &ConfigError{
			Key:     "SNIPPET_CHAR_CAP",
			Message: fmt.Sprintf("'snippet_char_cap' (%d) exceeds 'topic_char_budget' (%d)", c.SnippetLimit, c.TopicCharLimit),
		}
	}

	return nil
}

// RequireLLM returns a ConfigError when the language-model credential is missing.
func (c *Config) RequireLLM() error {
	if c.GeminiAPIKey == "" {
		return &ConfigError{
			Key:     "GEMINI_API_KEY",
			Message: "language model API key is not configured; set it in .env or the environment",
		}
	}
	return nil
}

// SearchEnabled reports whether any search backend can be used.
func (c *Config) SearchEnabled() bool {
	switch c.SearchProvider {
	case SearchNone:
		return false
	case SearchSerpAPI:
		return c.SerpAPIKey != ""
	case SearchGoogle:
		return c.GoogleSearchAPIKey != "" && c.GoogleSearchCX != ""
	case SearchDuckDuckGo:
		return true
	default:
		return c.SerpAPIKey != "" || (c.GoogleSearchAPIKey != "" && c.GoogleSearchCX != "")
	}
}
