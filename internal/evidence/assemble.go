// Package evidence gathers raw text about a company for each topic and
// assembles it into a bounded, ranked bundle for summarization.
package evidence

import (
	"sort"

	"github.com/jonathan/company-brief/internal/types"
)

// minFragmentChars is the smallest tail worth keeping when a snippet has to be
// cut to fit the remaining budget.
const minFragmentChars = 200

// Budget bounds a topic's evidence in characters (runes).
type Budget struct {
	TotalChars   int `json:"total_chars"`
	SnippetChars int `json:"snippet_chars"`
}

// DefaultBudget returns the per-topic budget.
func DefaultBudget(topic types.Topic) Budget {
	switch topic {
	case types.TopicTalent:
		return Budget{TotalChars: 5000, SnippetChars: 1500}
	case types.TopicVision:
		return Budget{TotalChars: 6000, SnippetChars: 1500}
	default:
		return Budget{TotalChars: 6000, SnippetChars: 2000}
	}
}

// Cap lowers the budget to the given limits. Non-positive limits are ignored.
func (b Budget) Cap(totalChars, snippetChars int) Budget {
	if totalChars > 0 && totalChars < b.TotalChars {
		b.TotalChars = totalChars
	}
	if snippetChars > 0 && snippetChars < b.SnippetChars {
		b.SnippetChars = snippetChars
	}
	return b
}

type candidate struct {
	snippet types.EvidenceSnippet
	key     string
}

// Assemble builds the evidence bundle for topic. The result is deterministic
// for a given input set regardless of input order, and its TotalCharCount
// never exceeds budget.TotalChars.
func Assemble(topic types.Topic, snippets []types.EvidenceSnippet, budget Budget) types.EvidenceBundle {
	bundle := types.EvidenceBundle{Topic: topic, Snippets: []types.EvidenceSnippet{}}
	if budget.TotalChars <= 0 {
		return bundle
	}
	if budget.SnippetChars <= 0 || budget.SnippetChars > budget.TotalChars {
		budget.SnippetChars = budget.TotalChars
	}

	// 1. Filter and normalize, 2. dedupe by normalized URL.
	byKey := make(map[string]candidate)
	for _, s := range snippets {
		if s.Topic != topic {
			continue
		}
		s.Text = NormalizeText(s.Text)
		if s.Text == "" {
			continue
		}
		key := NormalizeURL(s.SourceURL)
		c := candidate{snippet: s, key: key}
		if existing, ok := byKey[key]; !ok || preferred(c, existing) {
			byKey[key] = c
		}
	}

	ranked := make([]candidate, 0, len(byKey))
	for _, c := range byKey {
		ranked = append(ranked, c)
	}

	// 3. Total order: score desc, fetched asc, URL asc.
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.snippet.RelevanceScore != b.snippet.RelevanceScore {
			return a.snippet.RelevanceScore > b.snippet.RelevanceScore
		}
		if !a.snippet.FetchedAt.Equal(b.snippet.FetchedAt) {
			return a.snippet.FetchedAt.Before(b.snippet.FetchedAt)
		}
		if a.key != b.key {
			return a.key < b.key
		}
		return a.snippet.SourceURL < b.snippet.SourceURL
	})

	// 4. Cap each snippet, 5. fill the budget greedily.
	for _, c := range ranked {
		s := c.snippet
		s.Text = truncateRunes(s.Text, budget.SnippetChars)

		remaining := budget.TotalChars - bundle.TotalCharCount
		if remaining <= 0 {
			break
		}
		n := s.CharCount()
		if n > remaining {
			if remaining < minFragmentChars {
				continue
			}
			s.Text = truncateRunes(s.Text, remaining)
			n = s.CharCount()
		}

		bundle.Snippets = append(bundle.Snippets, s)
		bundle.TotalCharCount += n
	}

	return bundle
}

// preferred reports whether a should replace b among duplicates of one URL.
func preferred(a, b candidate) bool {
	if a.snippet.RelevanceScore != b.snippet.RelevanceScore {
		return a.snippet.RelevanceScore > b.snippet.RelevanceScore
	}
	if !a.snippet.FetchedAt.Equal(b.snippet.FetchedAt) {
		return a.snippet.FetchedAt.Before(b.snippet.FetchedAt)
	}
	if len(a.snippet.Text) != len(b.snippet.Text) {
		return len(a.snippet.Text) > len(b.snippet.Text)
	}
	if a.snippet.SourceURL != b.snippet.SourceURL {
		return a.snippet.SourceURL < b.snippet.SourceURL
	}
	if a.snippet.Text != b.snippet.Text {
		return a.snippet.Text < b.snippet.Text
	}
	return a.snippet.Origin < b.snippet.Origin
}
