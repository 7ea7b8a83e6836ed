package crawling

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a same-domain link found on a page, with its anchor text.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// ExtractLinks extracts all same-domain links from HTML content.
// Relative links are resolved against baseURL; fragments, trailing slashes and
// non-page schemes (mailto:, javascript:, tel:) are dropped.
func ExtractLinks(htmlContent string, baseURL string) ([]Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse base URL",
			Cause:   err,
		}
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, &LinkExtractionError{
			Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	seen := make(map[string]int)
	links := make([]Link, 0)
	baseHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}

		absoluteURL := base.ResolveReference(linkURL)
		if absoluteURL.Scheme != "http" && absoluteURL.Scheme != "https" {
			return
		}
		if strings.TrimPrefix(strings.ToLower(absoluteURL.Hostname()), "www.") != baseHost {
			return
		}

		absoluteURL.Fragment = ""
		urlString := strings.TrimSuffix(absoluteURL.String(), "/")
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text, _ = s.Attr("title")
		}

		if idx, ok := seen[urlString]; ok {
			// Keep the most descriptive anchor text for repeated links.
			if len(text) > len(links[idx].Text) {
				links[idx].Text = text
			}
			return
		}
		seen[urlString] = len(links)
		links = append(links, Link{URL: urlString, Text: text})
	})

	return links, nil
}
