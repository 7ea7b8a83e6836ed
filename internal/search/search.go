// Package search defines the web search abstraction used to find public
// evidence about a company, and its backends.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/company-brief/internal/config"
)

// DefaultTimeout bounds a single outbound search call.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable is matched by every error that means the backend could not
// answer: unreachable, rejected credentials, rate limited, or any non-2xx.
var ErrUnavailable = errors.New("search unavailable")

// ErrInvalidArgument is returned for an empty query or a non-positive result count.
var ErrInvalidArgument = errors.New("invalid search argument")

// Result is one ranked search hit.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date,omitempty"`
	Position int    `json:"position"`
}

// Provider answers web search queries.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Name() string
}

// NewsSearcher is implemented by providers that expose a separate news index.
type NewsSearcher interface {
	SearchNews(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// UnavailableError describes why a backend could not serve a query.
type UnavailableError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s search unavailable", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// Is reports true for ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// IsUnavailable reports whether err means the search backend was unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func validateArgs(query string, maxResults int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidArgument)
	}
	if maxResults < 1 {
		return fmt.Errorf("%w: maxResults must be at least 1, got %d", ErrInvalidArgument, maxResults)
	}
	return nil
}

// maxErrorBodyRunes bounds the response body quoted in an UnavailableError.
const maxErrorBodyRunes = 200

// statusError maps a non-2xx response to an UnavailableError.
func statusError(provider string, status int, body string) error {
	msg := http.StatusText(status)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = "credentials rejected"
	case http.StatusTooManyRequests:
		msg = "rate limited"
	}
	if body = strings.TrimSpace(body); body != "" {
		if runes := []rune(body); len(runes) > maxErrorBodyRunes {
			body = string(runes[:maxErrorBodyRunes])
		}
		msg += ": " + body
	}
	return &UnavailableError{Provider: provider, StatusCode: status, Message: msg}
}

// Noop is a provider that never finds anything. It stands in when no search
// backend is configured so the pipeline can run on crawled pages alone.
type Noop struct{}

// Search validates its arguments and returns an empty result set.
func (Noop) Search(_ context.Context, query string, maxResults int) ([]Result, error) {
	if err := validateArgs(query, maxResults); err != nil {
		return nil, err
	}
	return []Result{}, nil
}

// Name returns "none".
func (Noop) Name() string { return config.SearchNone }

// FromConfig selects a provider. An explicit SearchProvider wins; in auto mode
// the first backend with credentials is used (SerpAPI, then Google), and with
// nothing configured search is disabled.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: DefaultTimeout}

	mode := strings.ToLower(strings.TrimSpace(cfg.SearchProvider))
	if mode == "" || mode == config.SearchAuto {
		switch {
		case cfg.SerpAPIKey != "":
			mode = config.SearchSerpAPI
		case cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchCX != "":
			mode = config.SearchGoogle
		default:
			mode = config.SearchNone
		}
	}

	var (
		p   Provider
		err error
	)
	switch mode {
	case config.SearchSerpAPI:
		p, err = NewSerpAPI(SerpAPIOptions{APIKey: cfg.SerpAPIKey, HTTPClient: client})
	case config.SearchGoogle:
		p, err = NewGoogle(ctx, GoogleOptions{APIKey: cfg.GoogleSearchAPIKey, CX: cfg.GoogleSearchCX})
	case config.SearchDuckDuckGo:
		p, err = NewDuckDuckGo(DuckDuckGoOptions{HTTPClient: client, UserAgent: cfg.UserAgent})
	case config.SearchNone:
		p = Noop{}
	default:
		return nil, &config.ConfigError{Key: "SEARCH_PROVIDER", Message: fmt.Sprintf("unknown search provider %q", cfg.SearchProvider)}
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("search provider selected", zap.String("provider", p.Name()))
	return p, nil
}
