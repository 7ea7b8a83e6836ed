package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_ValidJSON(t *testing.T) {
	content := `{
		"serpapi_key": "serp-123",
		"search_provider": "serpapi",
		"topic_timeout": "5s",
		"crawl_per_topic": 3,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadFile(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "serp-123", cfg.SerpAPIKey)
	assert.Equal(t, SearchSerpAPI, cfg.SearchProvider)
	assert.Equal(t, 5*time.Second, cfg.TopicTimeout)
	assert.Equal(t, 3, cfg.CrawlPerTopic)
	assert.True(t, cfg.Verbose)
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadFile(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadFile_InvalidDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"run_timeout": "soon"}`), 0644))

	_, err := LoadFile(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadFile_FileNotFound(t *testing.T) {
	cfg, err := LoadFile("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFile_EmptyPath(t *testing.T) {
	_, err := LoadFile("")
	assert.Error(t, err)
}

func TestLoad_FromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "GEMINI_API_KEY=from-file\nSERPAPI_KEY=serp-file\nTOPIC_TIMEOUT=7s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// Real environment wins over the .env file.
	t.Setenv("SERPAPI_KEY", "serp-env")
	t.Setenv("GEMINI_API_KEY", "")
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))
	t.Setenv("TOPIC_TIMEOUT", "")
	require.NoError(t, os.Unsetenv("TOPIC_TIMEOUT"))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GeminiAPIKey)
	assert.Equal(t, "serp-env", cfg.SerpAPIKey)
	assert.Equal(t, 7*time.Second, cfg.TopicTimeout)
}

func TestLoad_MissingEnvFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{SerpAPIKey: "override", TopicTimeout: 3 * time.Second}
	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, "override", merged.SerpAPIKey)
	assert.Equal(t, 3*time.Second, merged.TopicTimeout)
	assert.Equal(t, 60*time.Second, merged.RunTimeout)
	assert.Equal(t, SearchAuto, merged.SearchProvider)
	assert.Equal(t, 5, merged.SearchResults)
	assert.Equal(t, 6000, merged.TopicCharLimit)
	require.NoError(t, merged.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
		key    string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.SearchProvider = "bing" }, errMsg: "unknown search provider", key: "SEARCH_PROVIDER"},
		{name: "zero topic timeout", mutate: func(c *Config) { c.TopicTimeout = 0 }, errMsg: "timeouts must be positive", key: "TOPIC_TIMEOUT"},
		{name: "negative model timeout", mutate: func(c *Config) { c.ModelTimeout = -time.Second }, errMsg: "timeouts must be positive", key: "MODEL_TIMEOUT"},
		{name: "zero search results", mutate: func(c *Config) { c.SearchResults = 0 }, errMsg: "search_results", key: "SEARCH_MAX_RESULTS"},
		{name: "snippet cap above budget", mutate: func(c *Config) { c.SnippetLimit = 7000 }, errMsg: "exceeds", key: "SNIPPET_CHAR_CAP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestRequireLLM(t *testing.T) {
	cfg := Default()
	err := cfg.RequireLLM()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "GEMINI_API_KEY", cfgErr.Key)
	assert.True(t, errors.Is(err, ErrConfig))

	cfg.GeminiAPIKey = "key"
	assert.NoError(t, cfg.RequireLLM())
}

func TestSearchEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.SearchEnabled())

	cfg.SerpAPIKey = "serp"
	assert.True(t, cfg.SearchEnabled())

	cfg.SearchProvider = SearchNone
	assert.False(t, cfg.SearchEnabled())

	cfg.SearchProvider = SearchDuckDuckGo
	assert.True(t, cfg.SearchEnabled())

	cfg.SearchProvider = SearchGoogle
	assert.False(t, cfg.SearchEnabled())
	cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX = "g", "cx"
	assert.True(t, cfg.SearchEnabled())
}
