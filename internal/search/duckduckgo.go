package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoOptions configures the keyless DuckDuckGo HTML backend.
type DuckDuckGoOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Region     string // kl parameter, defaults to "kr-kr"
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API key.
type DuckDuckGo struct {
	baseURL   string
	client    *http.Client
	userAgent string
	region    string
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts DuckDuckGoOptions) (*DuckDuckGo, error) {
	d := &DuckDuckGo{
		baseURL:   opts.BaseURL,
		client:    opts.HTTPClient,
		userAgent: opts.UserAgent,
		region:    opts.Region,
	}
	if d.baseURL == "" {
		d.baseURL = duckDuckGoURL
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: DefaultTimeout}
	}
	if d.userAgent == "" {
		d.userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if d.region == "" {
		d.region = "kr-kr"
	}
	return d, nil
}

// Name returns "duckduckgo".
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches one results page and parses it.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := validateArgs(query, maxResults); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", d.region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Provider: d.Name(), Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(d.Name(), resp.StatusCode, "")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UnavailableError{Provider: d.Name(), Message: "failed to read response", Cause: err}
	}

	results, err := ParseDuckDuckGoHTML(string(body), maxResults)
	if err != nil {
		return nil, &UnavailableError{Provider: d.Name(), Message: "unparseable results page", Cause: err}
	}
	return results, nil
}

// ParseDuckDuckGoHTML extracts results from a DuckDuckGo HTML page.
// Ad results are skipped and /l/?uddg= redirect links are resolved.
func ParseDuckDuckGoHTML(htmlContent string, maxResults int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := make([]Result, 0)
	seen := make(map[string]bool)
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= maxResults {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}

		anchor := s.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		link := resolveDuckDuckGoLink(href)
		title := strings.Join(strings.Fields(anchor.Text()), " ")
		if link == "" || title == "" || seen[link] {
			return true
		}
		seen[link] = true

		snippet := strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " ")
		results = append(results, Result{
			URL:      link,
			Title:    title,
			Snippet:  snippet,
			Position: len(results) + 1,
		})
		return true
	})
	return results, nil
}

// resolveDuckDuckGoLink unwraps "//duckduckgo.com/l/?uddg=<target>" redirects.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
