package crawling

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jonathan/company-brief/internal/types"
)

// topicKeywords maps each topic to URL path and anchor text keywords that
// mark a page as likely relevant. Earlier keywords are stronger signals.
var topicKeywords = map[types.Topic][]string{
	types.TopicTalent: {
		"careers", "career", "recruit", "인재", "채용", "talent", "jobs", "people", "culture",
	},
	types.TopicOverview: {
		"about", "company", "회사소개", "기업소개", "intro", "overview", "who-we-are", "회사",
	},
	types.TopicVision: {
		"news", "press", "비전", "vision", "보도", "newsroom", "media", "ir", "뉴스",
	},
}

// Keywords returns the sub-page keywords for a topic.
func Keywords(topic types.Topic) []string {
	return append([]string(nil), topicKeywords[topic]...)
}

// ScoreLink rates how strongly a link points at a topic page. Zero means no match.
// Path segment matches outrank anchor text matches.
func ScoreLink(link Link, topic types.Topic) int {
	keywords := topicKeywords[topic]
	if len(keywords) == 0 {
		return 0
	}

	path := ""
	if u, err := url.Parse(link.URL); err == nil {
		path = strings.ToLower(u.Path)
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '.' || r == '_'
	})
	text := strings.ToLower(link.Text)

	best := 0
	for i, kw := range keywords {
		weight := len(keywords) - i
		score := 0
		for _, seg := range segments {
			if seg == kw || (!shortASCII(kw) && strings.Contains(seg, kw)) {
				score = 2 * weight
				break
			}
		}
		if score == 0 && anchorMatches(text, kw) {
			score = weight
		}
		if score > best {
			best = score
		}
	}
	return best
}

// shortASCII reports whether kw is a Latin abbreviation such as "ir" that must
// match a whole word or segment. Hangul keywords are two syllables but are
// matched as substrings, since Korean compounds ("채용안내", "뉴스룸") carry no
// word break.
func shortASCII(kw string) bool {
	return len(kw) <= 2
}

// anchorMatches reports whether kw appears in anchor text. Short ASCII keywords
// must match a whole word so that "ir" does not match "first".
func anchorMatches(text, kw string) bool {
	if !shortASCII(kw) {
		return strings.Contains(text, kw)
	}
	for _, f := range strings.Fields(text) {
		if f == kw {
			return true
		}
	}
	return false
}

// ClassifyLink returns the topic a link most likely belongs to.
// ok is false when no topic keyword matches.
func ClassifyLink(link Link) (topic types.Topic, ok bool) {
	best := 0
	for _, t := range types.AllTopics() {
		if s := ScoreLink(link, t); s > best {
			best, topic, ok = s, t, true
		}
	}
	return topic, ok
}

// PickSubpages returns up to max links that match topic, strongest first.
// Ties keep document order. The homepage itself is never returned.
func PickSubpages(links []Link, homepage string, topic types.Topic, max int) []Link {
	if max <= 0 {
		return nil
	}
	home := strings.TrimSuffix(homepage, "/")

	type scored struct {
		link  Link
		score int
		idx   int
	}
	candidates := make([]scored, 0)
	for i, l := range links {
		if strings.TrimSuffix(l.URL, "/") == home {
			continue
		}
		if s := ScoreLink(l, topic); s > 0 {
			candidates = append(candidates, scored{link: l, score: s, idx: i})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].idx < candidates[j].idx
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]Link, len(candidates))
	for i, c := range candidates {
		out[i] = c.link
	}
	return out
}
