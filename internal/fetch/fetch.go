// Package fetch provides the crawler: URL fetching with timeout and retry
// discipline, and HTML-to-text extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultConnectTimeout bounds TCP/TLS connection setup.
	DefaultConnectTimeout = 5 * time.Second
	// DefaultTimeout is the total-time budget of a single attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2
	// DefaultBackoffBase is the first backoff delay; it doubles per retry.
	DefaultBackoffBase = 1 * time.Second
	// DefaultMaxRedirects caps the length of the redirect chain.
	DefaultMaxRedirects = 10
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 2 << 20
)

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CompanyBrief/1.0)"

// Page holds the raw and processed content of a fetched URL.
type Page struct {
	URL         string
	FinalURL    string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
	Attempts    int
	Rendered    bool
}

// Options configures the crawler.
type Options struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	MaxRedirects   int
	MaxBodyBytes   int64
	UserAgent      string
	Headers        map[string]string

	// UseBrowser renders pages whose HTTP text is shorter than MinContentLength
	// in headless Chrome.
	UseBrowser     bool
	BrowserTimeout time.Duration
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		ConnectTimeout: DefaultConnectTimeout,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		BackoffBase:    DefaultBackoffBase,
		MaxRedirects:   DefaultMaxRedirects,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		UserAgent:      DefaultUserAgent,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		},
		BrowserTimeout: 20 * time.Second,
	}
}

// Crawler fetches pages and extracts readable text. A Crawler owns its HTTP
// transport; call Close when done.
type Crawler struct {
	client    *http.Client
	transport *http.Transport
	opts      Options
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewCrawler creates a crawler with its own HTTP client.
func NewCrawler(opts *Options, logger *zap.Logger) *Crawler {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	defaults := DefaultOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaults.ConnectTimeout
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaults.BackoffBase
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = defaults.MaxRedirects
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if o.UserAgent == "" {
		o.UserAgent = defaults.UserAgent
	}
	if o.BrowserTimeout <= 0 {
		o.BrowserTimeout = defaults.BrowserTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   o.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   o.ConnectTimeout,
		ResponseHeaderTimeout: o.Timeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
	}

	maxRedirects := o.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   o.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Crawler{
		client:    client,
		transport: transport,
		opts:      o,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Close releases idle connections held by the crawler's transport.
func (c *Crawler) Close() {
	c.transport.CloseIdleConnections()
}

// Fetch retrieves a URL and returns its cleaned text. Timeouts and 5xx
// responses are retried with exponential backoff; 4xx and non-HTML responses
// fail immediately. A page without extractable text yields an empty Text and
// no error.
func (c *Crawler) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &Error{URL: urlStr, Reason: ReasonInvalidURL, Message: "invalid URL", Cause: err}
	}

	attempts := c.opts.MaxRetries + 1
	var lastErr *Error
	for attempt := 1; attempt <= attempts; attempt++ {
		page, fetchErr := c.fetchOnce(ctx, urlStr)
		if fetchErr == nil {
			page.Attempts = attempt
			c.maybeRender(ctx, page)
			return page, nil
		}

		fetchErr.Attempts = attempt
		lastErr = fetchErr
		if ctx.Err() != nil || !fetchErr.Retryable() || attempt == attempts {
			break
		}

		delay := c.opts.BackoffBase << (attempt - 1)
		c.logger.Debug("retrying fetch",
			zap.String("url", urlStr),
			zap.String("reason", string(fetchErr.Reason)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	c.logger.Debug("fetch failed", zap.String("url", urlStr), zap.Error(lastErr))
	return nil, lastErr
}

// fetchOnce performs a single attempt.
func (c *Crawler) fetchOnce(ctx context.Context, urlStr string) (*Page, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Reason: ReasonInvalidURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := urlStr
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &Error{
			URL:        urlStr,
			Reason:     ReasonHTTPError,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	if contentType != "" && !IsHTML(contentType) {
		return nil, &Error{
			URL:         urlStr,
			Reason:      ReasonUnsupportedContent,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Message:     fmt.Sprintf("content type %q is not HTML", contentType),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, urlStr, err)
	}

	if contentType == "" {
		contentType = http.DetectContentType(body)
		if !IsHTML(contentType) {
			return nil, &Error{
				URL:         urlStr,
				Reason:      ReasonUnsupportedContent,
				StatusCode:  resp.StatusCode,
				ContentType: contentType,
				Message:     fmt.Sprintf("sniffed content type %q is not HTML", contentType),
			}
		}
	}

	html := decodeBody(body, contentType)
	text, err := ExtractMainText(html, DefaultTextSelectors())
	if err != nil {
		c.logger.Debug("text extraction failed", zap.String("url", urlStr), zap.Error(err))
		text = ""
	}

	return &Page{
		URL:         urlStr,
		FinalURL:    finalURL,
		HTML:        html,
		Text:        text,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// maybeRender replaces a thin HTTP extraction with browser-rendered text.
func (c *Crawler) maybeRender(ctx context.Context, page *Page) {
	if !c.opts.UseBrowser || !ShouldUseBrowser(page.Text) {
		return
	}
	html, err := WithBrowser(ctx, page.FinalURL, c.opts.BrowserTimeout, c.logger)
	if err != nil {
		c.logger.Debug("browser rendering failed, keeping HTTP text", zap.String("url", page.FinalURL), zap.Error(err))
		return
	}
	text, err := ExtractMainText(html, DefaultTextSelectors())
	if err != nil || len(text) <= len(page.Text) {
		return
	}
	page.HTML = html
	page.Text = text
	page.Rendered = true
}

// IsHTML reports whether a Content-Type header denotes an HTML document.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// classifyTransportError maps client errors to TIMEOUT or NETWORK.
func classifyTransportError(ctx context.Context, urlStr string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled) && ctx.Err() != nil,
		errors.As(err, &netErr) && netErr.Timeout():
		return &Error{URL: urlStr, Reason: ReasonTimeout, Message: "request timed out", Cause: err}
	default:
		return &Error{URL: urlStr, Reason: ReasonNetwork, Message: "HTTP request failed", Cause: err}
	}
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset
// (many Korean sites still serve EUC-KR).
func decodeBody(body []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements using noiseSelectors, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(strings.Join(BoilerplateSelectors(), ", ")).Remove()

	if len(noiseSelectors) > 0 {
		noiseSelector := strings.Join(noiseSelectors, ", ")
		if noiseSelector != "" {
			doc.Find(noiseSelector).Remove()
		}
	}

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 && strings.TrimSpace(selection.First().Text()) != "" {
			mainContent = selection.First()
			break
		}
	}

	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	// Block elements get a line break so adjacent paragraphs don't run together.
	mainContent.Find("p, div, li, h1, h2, h3, h4, h5, h6, br, tr, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return CleanWhitespace(mainContent.Text()), nil
}

// BoilerplateSelectors returns selectors for navigation and other non-content markup.
func BoilerplateSelectors() []string {
	return []string{
		"script", "style", "noscript", "template", "iframe", "svg",
		"nav", "header", "footer", "aside", "form",
		"[role='navigation']", "[role='banner']", "[role='contentinfo']",
		".nav", ".navbar", ".gnb", ".lnb", ".breadcrumb",
		".ad", ".advertisement", ".ads", ".sidebar", ".cookie-banner", ".popup",
		"#header", "#footer", "#gnb",
	}
}

// DefaultTextSelectors returns standard selectors for general web content.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		"[role='main']",
		".content",
		"#content",
		".main-content",
		"#main-content",
		"#container",
	}
}

// CleanWhitespace trims every line, collapses runs of spaces and drops empty lines.
func CleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
