// Package summarize turns an evidence bundle into a topic summary using a
// language model, keeping every cited source traceable to the bundle.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/jonathan/company-brief/internal/evidence"
	"github.com/jonathan/company-brief/internal/llm"
	"github.com/jonathan/company-brief/internal/prompts"
	"github.com/jonathan/company-brief/internal/schemas"
	"github.com/jonathan/company-brief/internal/types"
)

// InsufficientInfoMarker is embedded in every summary produced without evidence.
const InsufficientInfoMarker = "insufficient public information found"

// DefaultModelTimeout bounds a single model call.
const DefaultModelTimeout = 30 * time.Second

// maxAttempts is the first call plus one retry.
const maxAttempts = 2

// fallbackItems and fallbackChars bound the evidence digest shown when the model fails.
const (
	fallbackItems = 5
	fallbackChars = 300
)

const promptFile = "summary.json"

// output is the JSON object the model is asked to return.
type output struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Sources  []string `json:"sources"`
}

// Summarizer produces one SummaryResult per evidence bundle.
type Summarizer struct {
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithTimeout sets the per-call model timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Summarizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Summarizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for the year in the vision prompt.
func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) { s.now = now }
}

// New creates a Summarizer backed by client.
func New(client llm.Client, opts ...Option) *Summarizer {
	s := &Summarizer{
		client:  client,
		timeout: DefaultModelTimeout,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summarize summarizes bundle for company. It never fails outright: an empty
// bundle yields a LOW result without calling the model, and a model failure
// after one retry yields a LOW result plus a model_call error for the run log.
func (s *Summarizer) Summarize(ctx context.Context, company string, bundle types.EvidenceBundle) (types.SummaryResult, *types.RunError) {
	log := s.logger.With(zap.String("topic", string(bundle.Topic)))

	if bundle.Empty() {
		log.Debug("no evidence, skipping model call")
		return insufficient(company, bundle.Topic), nil
	}

	prompt := BuildPrompt(company, bundle, s.now().Year())

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		out, err := s.call(ctx, prompt)
		if err == nil {
			log.Debug("summary generated", zap.Int("attempt", attempts))
			return s.result(bundle, out), nil
		}
		lastErr = err
		log.Warn("model call failed", zap.Int("attempt", attempts), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}

	callErr := &ModelCallError{Attempts: attempts, Cause: lastErr}
	return fallback(company, bundle, callErr), &types.RunError{
		Kind:    types.ErrorKindModelCall,
		Topic:   bundle.Topic,
		Message: callErr.Error(),
	}
}

// call runs one bounded model call and parses its answer.
func (s *Summarizer) call(ctx context.Context, prompt string) (*output, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, err
	}
	return parseOutput(raw)
}

// result builds the HIGH confidence result from a parsed answer.
func (s *Summarizer) result(bundle types.EvidenceBundle, out *output) types.SummaryResult {
	text := strings.TrimSpace(out.Summary)
	keywords := cleanKeywords(out.Keywords)
	if bundle.Topic == types.TopicTalent && len(keywords) > 0 {
		text += "\n\n인재상 키워드: [" + strings.Join(keywords, ", ") + "]"
	}
	return types.SummaryResult{
		Topic:      bundle.Topic,
		Text:       text,
		Confidence: types.ConfidenceHigh,
		SourceURLs: TraceSources(out.Sources, bundle),
		Keywords:   keywords,
	}
}

// BuildPrompt renders the prompt for one topic: the shared frame, the topic
// task, and the evidence as numbered "[n] URL" blocks.
func BuildPrompt(company string, bundle types.EvidenceBundle, year int) string {
	task := prompts.Format(prompts.MustGet(promptFile, string(bundle.Topic)), map[string]string{
		"Company": company,
		"Year":    strconv.Itoa(year),
	})

	var sb strings.Builder
	for i, snippet := range bundle.Snippets {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", i+1, snippet.SourceURL, snippet.Text)
	}

	return prompts.Format(prompts.MustGet(promptFile, "frame"), map[string]string{
		"Company":  company,
		"Task":     task,
		"Evidence": sb.String(),
	})
}

// parseOutput extracts and validates the model's JSON answer. Code fences and
// surrounding prose are stripped and malformed JSON is repaired before the
// result is checked against the output schema.
func parseOutput(raw string) (*output, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, &ParseError{Message: "response contains no JSON", Cause: llm.ErrEmptyResponse}
	}

	if !json.Valid([]byte(cleaned)) {
		repaired, err := jsonrepair.JSONRepair(cleaned)
		if err != nil {
			return nil, &ParseError{Message: "response is not valid JSON", Cause: err}
		}
		cleaned = repaired
	}

	if err := schemas.ValidateSummaryOutput(cleaned); err != nil {
		return nil, &ParseError{Message: "response does not match the output schema", Cause: err}
	}

	var out output
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &ParseError{Message: "failed to decode response", Cause: err}
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, &ParseError{Message: "summary is blank"}
	}
	return &out, nil
}

// TraceSources keeps the cited URLs that belong to the bundle, matched on
// their normalized form and returned as the bundle spells them. When nothing
// cited is in the bundle, every bundle URL is returned. The result is sorted
// and unique, and never contains a URL outside the bundle.
func TraceSources(cited []string, bundle types.EvidenceBundle) []string {
	byKey := make(map[string]string, len(bundle.Snippets))
	for _, s := range bundle.Snippets {
		key := evidence.NormalizeURL(s.SourceURL)
		if _, ok := byKey[key]; !ok {
			byKey[key] = s.SourceURL
		}
	}

	var kept []string
	for _, c := range cited {
		if u, ok := byKey[evidence.NormalizeURL(c)]; ok {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		kept = bundle.SourceURLs()
	}
	return sortedUnique(kept)
}

func sortedUnique(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// cleanKeywords trims, drops blanks and removes duplicates, keeping model order.
func cleanKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		k = strings.Join(strings.Fields(k), " ")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// insufficient is the LOW result for a topic that gathered no evidence.
func insufficient(company string, topic types.Topic) types.SummaryResult {
	return types.SummaryResult{
		Topic: topic,
		Text: fmt.Sprintf("공개된 자료가 부족하여 %s의 %s을(를) 요약하지 못했습니다 (%s).",
			company, topic.Title(), InsufficientInfoMarker),
		Confidence: types.ConfidenceLow,
		SourceURLs: []string{},
	}
}

// fallback is the LOW result for a topic whose model call failed. It lists
// the strongest evidence verbatim so the reader still gets traceable material.
func fallback(company string, bundle types.EvidenceBundle, cause error) types.SummaryResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s %s ===\n\n", company, bundle.Topic.Title())
	fmt.Fprintf(&sb, "요약 생성에 실패하여 수집된 자료를 그대로 보여 줍니다. (%s)\n", describe(cause))

	n := min(len(bundle.Snippets), fallbackItems)
	urls := make([]string, 0, n)
	for i, snippet := range bundle.Snippets[:n] {
		fmt.Fprintf(&sb, "\n%d. %s\n   %s\n", i+1, snippet.SourceURL, preview(snippet.Text))
		urls = append(urls, snippet.SourceURL)
	}

	return types.SummaryResult{
		Topic:      bundle.Topic,
		Text:       strings.TrimRight(sb.String(), "\n"),
		Confidence: types.ConfidenceLow,
		SourceURLs: sortedUnique(urls),
	}
}

// describe maps a model failure to a short user-facing reason.
func describe(err error) string {
	var parseErr *ParseError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "모델 응답 시간 초과"
	case errors.Is(err, context.Canceled):
		return "요청 취소됨"
	case errors.As(err, &parseErr):
		return "모델 응답 형식 오류"
	case strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "quota"):
		return "모델 API 할당량 초과"
	case strings.Contains(err.Error(), "401") || strings.Contains(strings.ToLower(err.Error()), "api key"):
		return "모델 API 키 오류"
	default:
		return "모델 호출 오류"
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= fallbackChars {
		return text
	}
	return string(r[:fallbackChars]) + "..."
}
