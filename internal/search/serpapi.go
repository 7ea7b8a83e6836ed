package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const serpAPIURL = "https://serpapi.com/search"

// SerpAPIOptions configures the SerpAPI backend.
type SerpAPIOptions struct {
	APIKey     string
	BaseURL    string // defaults to serpapi.com; overridden in tests
	HTTPClient *http.Client
	Language   string // hl, defaults to "ko"
	Country    string // gl, defaults to "kr"
}

// SerpAPI queries Google results through serpapi.com.
type SerpAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
	hl, gl  string
}

type serpAPIResponse struct {
	Error          string          `json:"error"`
	OrganicResults []serpAPIResult `json:"organic_results"`
	NewsResults    []serpAPIResult `json:"news_results"`
}

type serpAPIResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date"`
}

// NewSerpAPI creates a SerpAPI provider. The API key is required.
func NewSerpAPI(opts SerpAPIOptions) (*SerpAPI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("serpapi: API key is required")
	}
	s := &SerpAPI{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		client:  opts.HTTPClient,
		hl:      opts.Language,
		gl:      opts.Country,
	}
	if s.baseURL == "" {
		s.baseURL = serpAPIURL
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultTimeout}
	}
	if s.hl == "" {
		s.hl = "ko"
	}
	if s.gl == "" {
		s.gl = "kr"
	}
	return s, nil
}

// Name returns "serpapi".
func (s *SerpAPI) Name() string { return "serpapi" }

// Search returns organic web results.
func (s *SerpAPI) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return s.search(ctx, query, maxResults, false)
}

// SearchNews returns results from the news vertical (tbm=nws).
func (s *SerpAPI) SearchNews(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return s.search(ctx, query, maxResults, true)
}

func (s *SerpAPI) search(ctx context.Context, query string, maxResults int, news bool) ([]Result, error) {
	if err := validateArgs(query, maxResults); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("hl", s.hl)
	params.Set("gl", s.gl)
	params.Set("num", strconv.Itoa(maxResults))
	params.Set("api_key", s.apiKey)
	if news {
		params.Set("tbm", "nws")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Provider: s.Name(), Message: "request failed", Cause: redactKey(err, s.apiKey)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &UnavailableError{Provider: s.Name(), Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(s.Name(), resp.StatusCode, serpAPIErrorMessage(body))
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &UnavailableError{Provider: s.Name(), Message: "malformed response", Cause: err}
	}
	if parsed.Error != "" && len(parsed.OrganicResults) == 0 && len(parsed.NewsResults) == 0 {
		// SerpAPI reports "no results" as an error string with status 200.
		if strings.Contains(strings.ToLower(parsed.Error), "hasn't returned any results") {
			return []Result{}, nil
		}
		return nil, &UnavailableError{Provider: s.Name(), Message: parsed.Error}
	}

	items := parsed.OrganicResults
	if news {
		items = parsed.NewsResults
	}

	results := make([]Result, 0, min(len(items), maxResults))
	for _, item := range items {
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
			Date:     item.Date,
			Position: len(results) + 1,
		})
	}
	return results, nil
}

func serpAPIErrorMessage(body []byte) string {
	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}

// redactKey keeps the API key out of transport errors, which embed the request URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
