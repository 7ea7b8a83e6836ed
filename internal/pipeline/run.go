// Package pipeline provides the high-level orchestration of a company brief:
// gathering evidence for every topic, assembling it and summarizing it.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/company-brief/internal/config"
	"github.com/jonathan/company-brief/internal/evidence"
	"github.com/jonathan/company-brief/internal/fetch"
	"github.com/jonathan/company-brief/internal/llm"
	"github.com/jonathan/company-brief/internal/search"
	"github.com/jonathan/company-brief/internal/summarize"
	"github.com/jonathan/company-brief/internal/types"
)

// ProgressEvent represents a topic state change during a run
type ProgressEvent struct {
	RunID   string           `json:"run_id"`
	Topic   types.Topic      `json:"topic"`
	State   types.TopicState `json:"state"`
	Message string           `json:"message"`
}

// ProgressCallback is called when a topic changes state. Calls are serialized.
type ProgressCallback func(event ProgressEvent)

// Crawler is the page fetcher a run owns and closes.
type Crawler interface {
	evidence.Fetcher
	Close()
}

// CrawlerFactory opens the crawler for one run.
type CrawlerFactory func(cfg *config.Config, logger *zap.Logger) Crawler

// Options holds the collaborators of a Pipeline. Zero values select the
// production implementations.
type Options struct {
	// Provider overrides the search provider chosen from the config.
	Provider   search.Provider
	NewCrawler CrawlerFactory
	NewLLM     llm.Factory
	Logger     *zap.Logger
	OnProgress ProgressCallback
	Now        func() time.Time
}

// Pipeline runs company briefs against one immutable configuration.
type Pipeline struct {
	cfg  *config.Config
	opts Options
}

// New creates a Pipeline. cfg is not copied and must not change afterwards.
func New(cfg *config.Config, opts Options) *Pipeline {
	if opts.NewCrawler == nil {
		opts.NewCrawler = NewCrawler
	}
	if opts.NewLLM == nil {
		opts.NewLLM = llm.NewClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{cfg: cfg, opts: opts}
}

// NewCrawler is the default CrawlerFactory: a fetch.Crawler tuned from cfg.
func NewCrawler(cfg *config.Config, logger *zap.Logger) Crawler {
	opts := fetch.DefaultOptions()
	opts.ConnectTimeout = cfg.ConnectTimeout
	opts.Timeout = cfg.FetchTimeout
	opts.UseBrowser = cfg.UseBrowser
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	return fetch.NewCrawler(opts, logger)
}

// run is the transient state of one Run call.
type run struct {
	id       string
	query    types.CompanyQuery
	states   *stateTracker
	onChange ProgressCallback
	logger   *zap.Logger

	mu      sync.Mutex
	results map[types.Topic]types.SummaryResult
	bundles map[types.Topic]types.EvidenceBundle
	errs    map[types.Topic][]types.RunError

	progressMu sync.Mutex
}

func (r *run) advance(topic types.Topic, state types.TopicState, message string) {
	if err := r.states.advance(topic, state); err != nil {
		r.logger.Error("state machine violation", zap.Error(err))
		return
	}
	r.logger.Debug("topic state changed",
		zap.String("topic", string(topic)),
		zap.String("state", string(state)))

	if r.onChange == nil {
		return
	}
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.onChange(ProgressEvent{RunID: r.id, Topic: topic, State: state, Message: message})
}

func (r *run) record(topic types.Topic, e types.RunError) {
	r.mu.Lock()
	r.errs[topic] = append(r.errs[topic], e)
	r.mu.Unlock()
}

// Run produces the brief for one company. Invalid input and a missing model
// credential are fatal and reported before any network call. Everything else
// degrades: the returned report always holds a result for every topic, with
// LOW confidence where evidence or the model failed, and the errors met.
func (p *Pipeline) Run(ctx context.Context, companyName, homepageURL string) (*types.Report, error) {
	startedAt := p.opts.Now()

	q, err := types.NewCompanyQuery(companyName, homepageURL)
	if err != nil {
		return nil, err
	}
	if err := p.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		id:       uuid.NewString(),
		query:    q,
		states:   newStateTracker(),
		onChange: p.opts.OnProgress,
		results:  make(map[types.Topic]types.SummaryResult),
		bundles:  make(map[types.Topic]types.EvidenceBundle),
		errs:     make(map[types.Topic][]types.RunError),
	}
	logger := p.opts.Logger.With(zap.String("run_id", r.id), zap.String("company", q.Name))
	r.logger = logger

	provider := p.opts.Provider
	if provider == nil {
		if !p.cfg.SearchEnabled() && !q.HasHomepage() {
			logger.Warn("search disabled and no homepage given; topics will have no evidence",
				zap.String("search_provider", p.cfg.SearchProvider))
		}
		provider, err = search.FromConfig(ctx, p.cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	client, err := p.opts.NewLLM(ctx, llm.ConfigForModel(p.cfg.LLMModel), p.cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	crawler := p.opts.NewCrawler(p.cfg, logger)
	defer crawler.Close()

	gatherer := evidence.NewGatherer(provider, crawler,
		evidence.GatherOptions{
			TopicTimeout:     p.cfg.TopicTimeout,
			SearchResults:    p.cfg.SearchResults,
			CrawlPerTopic:    p.cfg.CrawlPerTopic,
			SubpagesPerTopic: 1,
		},
		evidence.WithClock(p.opts.Now),
		evidence.WithLogger(logger),
	)
	summarizer := summarize.New(client,
		summarize.WithTimeout(p.cfg.ModelTimeout),
		summarize.WithLogger(logger),
		summarize.WithClock(p.opts.Now),
	)

	logger.Info("run started",
		zap.String("homepage", q.HomepageURL),
		zap.String("search", provider.Name()))

	// Fetching is bounded by the run deadline; summarization only by the
	// caller's context and the per-call model timeout.
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	var g errgroup.Group
	for _, topic := range types.AllTopics() {
		g.Go(func() error {
			p.runTopic(ctx, fetchCtx, r, gatherer, summarizer, topic)
			return nil
		})
	}
	_ = g.Wait()

	report := p.buildReport(r, startedAt)
	logger.Info("run finished",
		zap.Duration("duration", report.Duration),
		zap.Int("errors", len(report.Errors)))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

// runTopic takes one topic from PENDING to a terminal state.
func (p *Pipeline) runTopic(ctx, fetchCtx context.Context, r *run, gatherer *evidence.Gatherer, summarizer *summarize.Summarizer, topic types.Topic) {
	r.advance(topic, types.StateFetching, "gathering evidence")
	gathered := gatherer.Gather(fetchCtx, r.query, topic)
	for _, err := range gathered.Errors {
		r.record(topic, classify(topic, err))
	}

	budget := evidence.DefaultBudget(topic).Cap(p.cfg.TopicCharLimit, p.cfg.SnippetLimit)
	bundle := evidence.Assemble(topic, gathered.Snippets, budget)
	r.mu.Lock()
	r.bundles[topic] = bundle
	r.mu.Unlock()
	r.advance(topic, types.StateAssembled,
		fmt.Sprintf("%d snippets, %d chars", len(bundle.Snippets), bundle.TotalCharCount))

	result, runErr := summarizer.Summarize(ctx, r.query.Name, bundle)
	if runErr != nil {
		r.record(topic, *runErr)
	}
	r.mu.Lock()
	r.results[topic] = result
	r.mu.Unlock()

	if result.Confidence == types.ConfidenceHigh {
		r.advance(topic, types.StateSummarized, "summary ready")
	} else {
		r.advance(topic, types.StateFailedLowConfidence, "low confidence summary")
	}
}

// classify maps a gathering error onto the run error taxonomy.
func classify(topic types.Topic, err error) types.RunError {
	if search.IsUnavailable(err) {
		return types.RunError{Kind: types.ErrorKindSearchUnavailable, Message: err.Error()}
	}

	// Crawl failures and topic timeouts both count against fetching.
	return types.RunError{Kind: types.ErrorKindFetch, Topic: topic, Message: err.Error()}
}

// buildReport assembles the report, merging the per-topic error lists in
// topic order and dropping repeats of the same (kind, message). Search
// unavailability is logged once per run whatever its message; model failures
// are kept once per topic.
func (p *Pipeline) buildReport(r *run, startedAt time.Time) *types.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &types.Report{
		RunID:     r.id,
		Company:   r.query,
		Errors:    []string{},
		States:    r.states.snapshot(),
		Bundles:   make(map[types.Topic]types.EvidenceBundle, len(r.bundles)),
		StartedAt: startedAt,
	}

	seen := make(map[string]bool)
	for _, topic := range types.AllTopics() {
		report.SetResult(r.results[topic])
		report.Bundles[topic] = r.bundles[topic]

		for _, e := range r.errs[topic] {
			key := string(e.Kind) + "\x00" + e.Message
			switch e.Kind {
			case types.ErrorKindSearchUnavailable:
				key = string(e.Kind)
			case types.ErrorKindModelCall:
				key += "\x00" + string(e.Topic)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			report.Details = append(report.Details, e)
			report.Errors = append(report.Errors, e.String())
		}
	}

	report.Duration = p.opts.Now().Sub(startedAt)
	return report
}
