package evidence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/company-brief/internal/crawling"
	"github.com/jonathan/company-brief/internal/fetch"
	"github.com/jonathan/company-brief/internal/search"
	"github.com/jonathan/company-brief/internal/types"
)

// Fetcher retrieves a page and its cleaned text. *fetch.Crawler implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Query is one search issued for a topic.
type Query struct {
	Text string
	News bool // prefer the provider's news index when it has one
}

// TopicQueries returns the search queries for a company and topic.
// year is used by the vision queries to bias toward recent coverage.
func TopicQueries(company string, topic types.Topic, year int) []Query {
	switch topic {
	case types.TopicOverview:
		return []Query{
			{Text: company + " 회사 소개"},
			{Text: company + " 기업 개요 사업"},
		}
	case types.TopicTalent:
		return []Query{
			{Text: company + " 인재상"},
			{Text: company + " 채용 인재상 핵심가치"},
		}
	case types.TopicVision:
		return []Query{
			{Text: company + " 최근 비전 " + strconv.Itoa(year)},
			{Text: company + " 최근 뉴스 비전 전략", News: true},
		}
	default:
		return nil
	}
}

// TimeoutError reports that a topic ran out of time while gathering.
// Evidence collected before the deadline is still returned.
type TimeoutError struct {
	Topic   types.Topic
	Timeout time.Duration // zero when the run deadline, not the topic timeout, fired
}

func (e *TimeoutError) Error() string {
	if e.Timeout == 0 {
		return fmt.Sprintf("evidence gathering for %s stopped at the run deadline", e.Topic)
	}
	return fmt.Sprintf("evidence gathering for %s stopped after %s", e.Topic, e.Timeout)
}

// Unwrap returns context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// GatherOptions tunes a Gatherer.
type GatherOptions struct {
	TopicTimeout     time.Duration
	SearchResults    int // results requested per query
	CrawlPerTopic    int // search result pages crawled per topic
	SubpagesPerTopic int // homepage sub-pages crawled per topic
}

// DefaultGatherOptions returns the standard limits.
func DefaultGatherOptions() GatherOptions {
	return GatherOptions{
		TopicTimeout:     15 * time.Second,
		SearchResults:    5,
		CrawlPerTopic:    2,
		SubpagesPerTopic: 1,
	}
}

// Gathered is the raw evidence collected for one topic plus the non-fatal
// errors met along the way.
type Gathered struct {
	Topic    types.Topic
	Snippets []types.EvidenceSnippet
	Errors   []error
	TimedOut bool
}

type pageResult struct {
	page *fetch.Page
	err  error
	// aborted marks a fetch cut short by the context of the caller that ran
	// it. Such results are not cached and other callers fetch again.
	aborted bool
}

// Gatherer collects evidence for topics. One Gatherer serves one run: every
// URL is fetched at most once across all topics, so the homepage shared by
// the three topics costs a single request.
type Gatherer struct {
	provider search.Provider
	fetcher  Fetcher
	opts     GatherOptions
	logger   *zap.Logger
	now      func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	pages map[string]pageResult
}

// GathererOption configures optional Gatherer behavior.
type GathererOption func(*Gatherer)

// WithClock overrides the time source used for FetchedAt and the vision query year.
func WithClock(now func() time.Time) GathererOption {
	return func(g *Gatherer) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GathererOption {
	return func(g *Gatherer) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGatherer creates a Gatherer. A nil provider disables search.
func NewGatherer(provider search.Provider, fetcher Fetcher, opts GatherOptions, options ...GathererOption) *Gatherer {
	if provider == nil {
		provider = search.Noop{}
	}
	def := DefaultGatherOptions()
	if opts.TopicTimeout <= 0 {
		opts.TopicTimeout = def.TopicTimeout
	}
	if opts.SearchResults <= 0 {
		opts.SearchResults = def.SearchResults
	}
	if opts.CrawlPerTopic < 0 {
		opts.CrawlPerTopic = 0
	}
	if opts.SubpagesPerTopic < 0 {
		opts.SubpagesPerTopic = 0
	}

	g := &Gatherer{
		provider: provider,
		fetcher:  fetcher,
		opts:     opts,
		logger:   zap.NewNop(),
		now:      time.Now,
		pages:    make(map[string]pageResult),
	}
	for _, o := range options {
		o(g)
	}
	return g
}

// collector accumulates snippets and errors from concurrent workers.
type collector struct {
	mu       sync.Mutex
	snippets []types.EvidenceSnippet
	errs     []error
}

func (c *collector) add(s types.EvidenceSnippet) {
	c.mu.Lock()
	c.snippets = append(c.snippets, s)
	c.mu.Unlock()
}

func (c *collector) fail(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Gather searches and crawls for one topic within the topic timeout. It never
// fails: whatever arrived before the deadline is returned with the errors seen.
func (g *Gatherer) Gather(ctx context.Context, q types.CompanyQuery, topic types.Topic) Gathered {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, g.opts.TopicTimeout)
	defer cancel()

	log := g.logger.With(zap.String("topic", string(topic)))
	col := &collector{}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		g.searchAndCrawl(gctx, q, topic, col)
		return nil
	})
	if q.HasHomepage() {
		eg.Go(func() error {
			g.crawlSite(gctx, q, topic, col)
			return nil
		})
	}
	_ = eg.Wait()

	out := Gathered{Topic: topic}
	col.mu.Lock()
	out.Snippets = col.snippets
	out.Errors = col.errs
	col.mu.Unlock()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
		te := &TimeoutError{Topic: topic, Timeout: g.opts.TopicTimeout}
		if parent.Err() != nil {
			te.Timeout = 0
		}
		out.Errors = append(out.Errors, te)
	}

	log.Debug("evidence gathered",
		zap.Int("snippets", len(out.Snippets)),
		zap.Int("errors", len(out.Errors)),
		zap.Bool("timed_out", out.TimedOut))
	return out
}

// searchAndCrawl runs the topic queries concurrently, records each hit as a
// snippet, then crawls the best-ranked result pages.
func (g *Gatherer) searchAndCrawl(ctx context.Context, q types.CompanyQuery, topic types.Topic, col *collector) {
	queries := TopicQueries(q.Name, topic, g.now().Year())
	perQuery := make([][]search.Result, len(queries))

	eg, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		eg.Go(func() error {
			results, err := g.search(gctx, query)
			if err != nil {
				if gctx.Err() == nil {
					col.fail(err)
				}
				return nil
			}
			perQuery[i] = results

			for _, r := range results {
				text := strings.TrimSpace(r.Title + ". " + r.Snippet)
				if r.Snippet == "" {
					text = r.Title
				}
				if text == "" {
					continue
				}
				col.add(types.EvidenceSnippet{
					SourceURL:      r.URL,
					Topic:          topic,
					Text:           text,
					FetchedAt:      g.now(),
					RelevanceScore: Score(types.OriginSearchResult, r.Position, text, topic, q.Name),
					Origin:         types.OriginSearchResult,
				})
			}
			return nil
		})
	}
	_ = eg.Wait()

	if ctx.Err() != nil || g.opts.CrawlPerTopic == 0 {
		return
	}

	targets := pickCrawlTargets(perQuery, q.HomepageURL, g.opts.CrawlPerTopic)
	eg, gctx = errgroup.WithContext(ctx)
	for _, r := range targets {
		eg.Go(func() error {
			g.crawlInto(gctx, r.URL, types.OriginSearchPage, r.Position, q, topic, col)
			return nil
		})
	}
	_ = eg.Wait()
}

func (g *Gatherer) search(ctx context.Context, query Query) ([]search.Result, error) {
	if query.News {
		if ns, ok := g.provider.(search.NewsSearcher); ok {
			return ns.SearchNews(ctx, query.Text, g.opts.SearchResults)
		}
	}
	return g.provider.Search(ctx, query.Text, g.opts.SearchResults)
}

// pickCrawlTargets interleaves the per-query result lists by rank and returns
// the first n distinct URLs, skipping the homepage which is crawled separately.
func pickCrawlTargets(perQuery [][]search.Result, homepage string, n int) []search.Result {
	seen := make(map[string]bool)
	if homepage != "" {
		seen[NormalizeURL(homepage)] = true
	}

	targets := make([]search.Result, 0, n)
	for rank := 0; len(targets) < n; rank++ {
		more := false
		for _, results := range perQuery {
			if rank >= len(results) {
				continue
			}
			more = true
			r := results[rank]
			key := NormalizeURL(r.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, r)
			if len(targets) == n {
				break
			}
		}
		if !more {
			break
		}
	}
	return targets
}

// crawlSite crawls the homepage and the topic's best matching sub-pages.
func (g *Gatherer) crawlSite(ctx context.Context, q types.CompanyQuery, topic types.Topic, col *collector) {
	page, ok := g.crawlInto(ctx, q.HomepageURL, types.OriginHomepage, 0, q, topic, col)
	if !ok || g.opts.SubpagesPerTopic == 0 || page.HTML == "" {
		return
	}

	base := page.FinalURL
	if base == "" {
		base = page.URL
	}
	links, err := crawling.ExtractLinks(page.HTML, base)
	if err != nil {
		g.logger.Debug("link extraction failed", zap.String("url", base), zap.Error(err))
		return
	}

	subpages := crawling.PickSubpages(links, base, topic, g.opts.SubpagesPerTopic)
	eg, gctx := errgroup.WithContext(ctx)
	for _, link := range subpages {
		eg.Go(func() error {
			g.crawlInto(gctx, link.URL, types.OriginSubpage, 0, q, topic, col)
			return nil
		})
	}
	_ = eg.Wait()
}

// crawlInto fetches url and records its text as a snippet. ok is false when
// the fetch failed.
func (g *Gatherer) crawlInto(ctx context.Context, url string, origin types.Origin, position int, q types.CompanyQuery, topic types.Topic, col *collector) (*fetch.Page, bool) {
	page, err := g.fetchOnce(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			col.fail(err)
		}
		return nil, false
	}

	if page.Text != "" {
		source := page.FinalURL
		if source == "" {
			source = page.URL
		}
		col.add(types.EvidenceSnippet{
			SourceURL:      source,
			Topic:          topic,
			Text:           page.Text,
			FetchedAt:      g.now(),
			RelevanceScore: Score(origin, position, page.Text, topic, q.Name),
			Origin:         origin,
		})
	}
	return page, true
}

// fetchOnce fetches url at most once per Gatherer. Concurrent callers share one
// request; completed results, including permanent failures, are cached.
// Each caller waits only as long as its own context allows, and a shared fetch
// abandoned by the caller running it is retried under the waiting caller's context.
func (g *Gatherer) fetchOnce(ctx context.Context, url string) (*fetch.Page, error) {
	key := NormalizeURL(url)

	for {
		g.mu.Lock()
		cached, ok := g.pages[key]
		g.mu.Unlock()
		if ok {
			return cached.page, cached.err
		}

		ch := g.group.DoChan(key, func() (interface{}, error) {
			g.mu.Lock()
			if res, ok := g.pages[key]; ok {
				g.mu.Unlock()
				return res, nil
			}
			g.mu.Unlock()

			page, err := g.fetcher.Fetch(ctx, url)
			res := pageResult{page: page, err: err, aborted: ctx.Err() != nil}
			if !res.aborted {
				g.mu.Lock()
				g.pages[key] = res
				g.mu.Unlock()
			}
			return res, nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			res := r.Val.(pageResult)
			if !res.aborted || ctx.Err() != nil {
				return res.page, res.err
			}
			g.logger.Debug("shared fetch abandoned, fetching again", zap.String("url", url))
		}
	}
}
