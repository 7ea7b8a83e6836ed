package evidence

import (
	"strings"

	"github.com/jonathan/company-brief/internal/types"
)

// Origin weights: first-party pages outrank third-party pages, and crawled
// text outranks the short result blurb.
const (
	homepageWeight     = 0.6
	subpageWeight      = 0.5
	searchPageWeight   = 0.3
	searchResultWeight = 0.2

	firstPartyPosition = 0.5
	companyNameBonus   = 0.5
)

// topicTerms are matched against snippet text to estimate topical relevance.
var topicTerms = map[types.Topic][]string{
	types.TopicOverview: {"회사", "기업", "사업", "설립", "본사", "매출", "서비스", "제품", "about", "company"},
	types.TopicTalent:   {"인재상", "인재", "핵심가치", "가치", "채용", "역량", "도전", "협업", "문화", "talent"},
	types.TopicVision:   {"비전", "전략", "미래", "목표", "성장", "투자", "확장", "글로벌", "혁신", "vision"},
}

func originWeight(o types.Origin) float64 {
	switch o {
	case types.OriginHomepage:
		return homepageWeight
	case types.OriginSubpage:
		return subpageWeight
	case types.OriginSearchPage:
		return searchPageWeight
	case types.OriginSearchResult:
		return searchResultWeight
	default:
		return 0
	}
}

// positionScore rewards higher-ranked search hits. Position is 1-based;
// first-party pages have no rank and get a fixed score.
func positionScore(o types.Origin, position int) float64 {
	switch o {
	case types.OriginHomepage, types.OriginSubpage:
		return firstPartyPosition
	}
	if position < 1 {
		return 0
	}
	return 1 / float64(1+position)
}

// keywordOverlap is the fraction of topic terms present in text, plus a bonus
// when the company name appears.
func keywordOverlap(text string, topic types.Topic, company string) float64 {
	lower := strings.ToLower(NormalizeText(text))

	score := 0.0
	if terms := topicTerms[topic]; len(terms) > 0 {
		matches := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matches++
			}
		}
		score = float64(matches) / float64(len(terms))
	}

	if name := strings.ToLower(NormalizeText(company)); name != "" && strings.Contains(lower, name) {
		score += companyNameBonus
	}
	return score
}

// Score computes the relevance of a piece of text for a topic:
// originWeight + positionScore + keywordOverlap.
func Score(origin types.Origin, position int, text string, topic types.Topic, company string) float64 {
	return originWeight(origin) + positionScore(origin, position) + keywordOverlap(text, topic, company)
}
