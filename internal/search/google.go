package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleOptions configures the Google Custom Search backend.
type GoogleOptions struct {
	APIKey     string
	CX         string
	Endpoint   string // overrides the API endpoint, used in tests
	HTTPClient *http.Client // replaces the API key transport when set
}

// Google queries a Programmable Search Engine through the Custom Search JSON API.
type Google struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogle creates a Google Custom Search provider.
func NewGoogle(ctx context.Context, opts GoogleOptions) (*Google, error) {
	if opts.APIKey == "" || opts.CX == "" {
		return nil, errors.New("google search: API key and search engine ID (cx) are required")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Google{svc: svc, cx: opts.CX}, nil
}

// Name returns "google".
func (g *Google) Name() string { return "google" }

// Search returns up to maxResults results. The API caps a page at 10.
func (g *Google) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := validateArgs(query, maxResults); err != nil {
		return nil, err
	}
	num := int64(min(maxResults, 10))

	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(num).Hl("ko").Gl("kr").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, statusError(g.Name(), apiErr.Code, apiErr.Message)
		}
		return nil, &UnavailableError{Provider: g.Name(), Message: "request failed", Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if len(results) >= maxResults {
			break
		}
		if item.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:      item.Link,
			Title:    strings.TrimSpace(item.Title),
			Snippet:  strings.TrimSpace(item.Snippet),
			Position: len(results) + 1,
		})
	}
	return results, nil
}
