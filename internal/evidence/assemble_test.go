package evidence

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-brief/internal/types"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func snip(url string, score float64, text string) types.EvidenceSnippet {
	return types.EvidenceSnippet{
		SourceURL:      url,
		Topic:          types.TopicOverview,
		Text:           text,
		FetchedAt:      t0,
		RelevanceScore: score,
		Origin:         types.OriginSearchPage,
	}
}

func TestAssemble_OrdersByScore(t *testing.T) {
	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{
		snip("https://a.com", 0.4, "low"),
		snip("https://b.com", 1.2, "high"),
		snip("https://c.com", 0.8, "mid"),
	}, DefaultBudget(types.TopicOverview))

	require.Len(t, bundle.Snippets, 3)
	assert.Equal(t, []string{"https://b.com", "https://c.com", "https://a.com"}, bundle.SourceURLs())
	assert.Equal(t, len("low")+len("high")+len("mid"), bundle.TotalCharCount)
}

func TestAssemble_DropsEmptyAndForeignTopics(t *testing.T) {
	foreign := snip("https://x.com", 2, "talent text")
	foreign.Topic = types.TopicTalent

	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{
		snip("https://a.com", 1, "   \n\t "),
		foreign,
		snip("https://b.com", 1, "kept"),
	}, DefaultBudget(types.TopicOverview))

	assert.Equal(t, []string{"https://b.com"}, bundle.SourceURLs())
}

func TestAssemble_DeduplicatesByNormalizedURL(t *testing.T) {
	early := snip("https://www.Example.com/about/?utm_source=x#team", 1.0, "short text")
	late := snip("https://example.com/about", 1.0, "a much longer text about the company")
	late.FetchedAt = t0.Add(time.Minute)
	lower := snip("http://example.com:80/about", 0.5, "lower score")

	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{late, lower, early}, DefaultBudget(types.TopicOverview))
	require.Len(t, bundle.Snippets, 2)
	// https and http differ in scheme, so the http copy survives separately.
	assert.Equal(t, early.SourceURL, bundle.Snippets[0].SourceURL)
	assert.Equal(t, "short text", bundle.Snippets[0].Text)
}

func TestAssemble_DedupeTieGoesToLongerText(t *testing.T) {
	a := snip("https://example.com/a", 1.0, "short")
	b := snip("https://example.com/a/", 1.0, "longer text")

	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{a, b}, DefaultBudget(types.TopicOverview))
	require.Len(t, bundle.Snippets, 1)
	assert.Equal(t, "longer text", bundle.Snippets[0].Text)
}

func TestAssemble_TruncatesToSnippetCap(t *testing.T) {
	long := strings.Repeat("가", 2500)
	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{snip("https://a.com", 1, long)}, DefaultBudget(types.TopicOverview))

	require.Len(t, bundle.Snippets, 1)
	assert.Equal(t, 2000, bundle.Snippets[0].CharCount())
	assert.Equal(t, 2000, bundle.TotalCharCount)
}

func TestAssemble_PartialFragmentRules(t *testing.T) {
	// 800 fits, 300 remain: the next 500-char snippet is cut to 300.
	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{
		snip("https://a.com", 3, strings.Repeat("a", 800)),
		snip("https://b.com", 2, strings.Repeat("b", 500)),
	}, Budget{TotalChars: 1100, SnippetChars: 800})
	require.Len(t, bundle.Snippets, 2)
	assert.Equal(t, 300, bundle.Snippets[1].CharCount())
	assert.Equal(t, 1100, bundle.TotalCharCount)

	// After a and b only 150 remain: too small for a fragment, so c is
	// skipped but the later d, which fits whole, is still taken.
	budget := Budget{TotalChars: 1000, SnippetChars: 800}
	bundle = Assemble(types.TopicOverview, []types.EvidenceSnippet{
		snip("https://a.com", 3, strings.Repeat("a", 800)),
		snip("https://b.com", 2, strings.Repeat("b", 50)),
		snip("https://c.com", 1.5, strings.Repeat("c", 500)),
		snip("https://d.com", 1, strings.Repeat("d", 90)),
	}, budget)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://d.com"}, bundle.SourceURLs())
	assert.Equal(t, 940, bundle.TotalCharCount)
}

func TestAssemble_ZeroBudget(t *testing.T) {
	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{snip("https://a.com", 1, "x")}, Budget{})
	assert.True(t, bundle.Empty())
	assert.NotNil(t, bundle.Snippets)
}

func TestAssemble_NormalizesText(t *testing.T) {
	// "한" written as decomposed jamo normalizes to the precomposed syllable.
	decomposed := "\u1112\u1161\u11ab  국\n\n기업"
	bundle := Assemble(types.TopicOverview, []types.EvidenceSnippet{snip("https://a.com", 1, decomposed)}, DefaultBudget(types.TopicOverview))
	require.Len(t, bundle.Snippets, 1)
	assert.Equal(t, "한 국 기업", bundle.Snippets[0].Text)
	assert.Equal(t, 6, bundle.TotalCharCount)
}

func TestAssemble_DuplicateTieIndependentOfOrder(t *testing.T) {
	alpha := snip("https://acme.co.kr/about", 1, "alpha text")
	bravo := snip("https://acme.co.kr/about", 1, "bravo text")
	budget := DefaultBudget(types.TopicOverview)

	first := Assemble(types.TopicOverview, []types.EvidenceSnippet{alpha, bravo}, budget)
	second := Assemble(types.TopicOverview, []types.EvidenceSnippet{bravo, alpha}, budget)

	require.Len(t, first.Snippets, 1)
	assert.Equal(t, "alpha text", first.Snippets[0].Text)
	assert.Equal(t, first, second)
}

var fillers = []rune("인재상비전")

func randomSnippets(r *rand.Rand, n int) []types.EvidenceSnippet {
	out := make([]types.EvidenceSnippet, n)
	for i := range out {
		length := 1 + r.Intn(3000)
		out[i] = types.EvidenceSnippet{
			SourceURL:      fmt.Sprintf("https://site%d.example.com/p/%d", r.Intn(20), r.Intn(5)),
			Topic:          types.TopicTalent,
			Text:           strings.Repeat(string(fillers[r.Intn(len(fillers))]), length),
			FetchedAt:      t0.Add(time.Duration(r.Intn(10)) * time.Second),
			RelevanceScore: float64(r.Intn(8)) / 4,
			Origin:         types.OriginSearchPage,
		}
	}
	return out
}

func TestAssemble_BudgetProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	budget := DefaultBudget(types.TopicTalent)

	for i := 0; i < 200; i++ {
		snippets := randomSnippets(r, r.Intn(30))
		bundle := Assemble(types.TopicTalent, snippets, budget)

		assert.LessOrEqual(t, bundle.TotalCharCount, budget.TotalChars)
		sum := 0
		seen := make(map[string]bool)
		for j, s := range bundle.Snippets {
			assert.LessOrEqual(t, s.CharCount(), budget.SnippetChars)
			assert.NotEmpty(t, s.Text)
			key := NormalizeURL(s.SourceURL)
			assert.False(t, seen[key], "duplicate source %s", key)
			seen[key] = true
			if j > 0 {
				assert.GreaterOrEqual(t, bundle.Snippets[j-1].RelevanceScore, s.RelevanceScore)
			}
			sum += s.CharCount()
		}
		assert.Equal(t, sum, bundle.TotalCharCount)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	budget := DefaultBudget(types.TopicTalent)

	for i := 0; i < 50; i++ {
		snippets := randomSnippets(r, 25)
		want := Assemble(types.TopicTalent, snippets, budget)

		shuffled := append([]types.EvidenceSnippet(nil), snippets...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Assemble(types.TopicTalent, shuffled, budget))
	}
}

func TestBudgetCap(t *testing.T) {
	b := DefaultBudget(types.TopicOverview).Cap(3000, 0)
	assert.Equal(t, Budget{TotalChars: 3000, SnippetChars: 2000}, b)

	b = DefaultBudget(types.TopicTalent).Cap(9000, 500)
	assert.Equal(t, Budget{TotalChars: 5000, SnippetChars: 500}, b)
}
