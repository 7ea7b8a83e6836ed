package types

import (
	"time"
	"unicode/utf8"
)

// Origin describes where an evidence snippet came from.
type Origin string

const (
	// OriginHomepage is text crawled from the supplied homepage.
	OriginHomepage Origin = "homepage"
	// OriginSubpage is text crawled from a same-domain page linked from the homepage.
	OriginSubpage Origin = "subpage"
	// OriginSearchPage is text crawled from a search result URL.
	OriginSearchPage Origin = "search_page"
	// OriginSearchResult is the title and snippet of a search result itself.
	OriginSearchResult Origin = "search_result"
)

// EvidenceSnippet is a cleaned text fragment attributed to a source URL.
type EvidenceSnippet struct {
	SourceURL      string    `json:"source_url"`
	Topic          Topic     `json:"topic"`
	Text           string    `json:"text"`
	FetchedAt      time.Time `json:"fetched_at"`
	RelevanceScore float64   `json:"relevance_score"`
	Origin         Origin    `json:"origin"`
}

// CharCount returns the snippet length in characters (runes).
func (s EvidenceSnippet) CharCount() int {
	return utf8.RuneCountInString(s.Text)
}

// EvidenceBundle is a capped, ranked collection of evidence for one topic.
type EvidenceBundle struct {
	Topic          Topic             `json:"topic"`
	Snippets       []EvidenceSnippet `json:"snippets"`
	TotalCharCount int               `json:"total_char_count"`
}

// Empty reports whether the bundle holds no evidence.
func (b EvidenceBundle) Empty() bool {
	return len(b.Snippets) == 0
}

// SourceURLs returns the bundle's source URLs in bundle order.
func (b EvidenceBundle) SourceURLs() []string {
	urls := make([]string, 0, len(b.Snippets))
	for _, s := range b.Snippets {
		urls = append(urls, s.SourceURL)
	}
	return urls
}
