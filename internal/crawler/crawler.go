// Package crawler drives a crawl: it owns the frontier, a pool of workers
// that fetch queued URLs under a per-host rate limit, and the page processor
// that turns each response into corpus statistics and new links.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/sync/errgroup"

	"github.com/masahif/corpuscrawl/internal/config"
	"github.com/masahif/corpuscrawl/internal/scraper"
	"github.com/masahif/corpuscrawl/internal/stats"
)

// ErrNoSeeds is returned when no seed URL passes the validity filter
var ErrNoSeeds = errors.New("no valid seed URLs")

const (
	defaultIdlePoll      = 50 * time.Millisecond
	defaultStatsInterval = 10 * time.Second

	// False positive rate of the enqueued-link filter
	enqueuedFalsePositive = 0.0001
)

// SeedProcessor is a PageProcessor that can also admit seed URLs
type SeedProcessor interface {
	PageProcessor
	Admit(rawURL string) (string, bool)
}

// DefaultCrawler implements the Crawler interface
type DefaultCrawler struct {
	config      *config.CrawlConfig
	storage     Storage
	fetcher     Fetcher
	processor   SeedProcessor
	store       *stats.Store
	rateLimiter *RateLimiter
	logger      *slog.Logger

	idlePoll      time.Duration
	statsInterval time.Duration

	// enqueued remembers every URL handed to storage in this crawl. A link
	// the filter reports as present is not offered again.
	enqueued   *bloom.BloomFilter
	enqueuedMu sync.Mutex

	// State
	stats      CrawlStats
	claimed    int
	statsMutex sync.RWMutex
	cancel     context.CancelFunc
	cancelMu   sync.Mutex
}

// Option configures a DefaultCrawler
type Option func(*DefaultCrawler)

// WithFetcher replaces the HTTP client
func WithFetcher(f Fetcher) Option {
	return func(c *DefaultCrawler) {
		c.fetcher = f
	}
}

// WithLogger sets the logger for the crawler and its processor
func WithLogger(logger *slog.Logger) Option {
	return func(c *DefaultCrawler) {
		c.logger = logger
	}
}

// WithStatsInterval sets how often progress is logged
func WithStatsInterval(d time.Duration) Option {
	return func(c *DefaultCrawler) {
		c.statsInterval = d
	}
}

// NewCrawler creates a crawler for cfg writing its frontier to storage.
// It builds a fresh statistics store and page processor.
func NewCrawler(cfg *config.CrawlConfig, storage Storage, opts ...Option) (*DefaultCrawler, error) {
	c := &DefaultCrawler{
		config:        cfg,
		storage:       storage,
		rateLimiter:   NewRateLimiter(cfg.RequestDelay),
		idlePoll:      defaultIdlePoll,
		statsInterval: defaultStatsInterval,
		enqueued:      bloom.NewWithEstimates(uint(cfg.ExpectedURLs), enqueuedFalsePositive),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.fetcher == nil {
		httpClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
		if headers := cfg.ParsedHeaders(); len(headers) > 0 {
			httpClient.SetCustomHeaders(headers)
			c.logger.Info("Set custom headers", "count", len(headers))
		}
		c.fetcher = httpClient
	}

	c.store = stats.New(cfg.Content.SimilarityThreshold)

	processor, err := scraper.NewProcessor(cfg, c.store, scraper.WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create page processor: %w", err)
	}
	c.processor = processor

	return c, nil
}

// Store returns the statistics store of this crawl
func (c *DefaultCrawler) Store() *stats.Store {
	return c.store
}

// Snapshot returns the report view of the statistics store
func (c *DefaultCrawler) Snapshot() stats.Snapshot {
	return c.store.Snapshot(c.config.Report.TopTokens, c.config.Report.StopWordSet())
}

// Start runs the crawl until the frontier is exhausted, the page limit is
// reached or ctx is cancelled.
//
//  1. Reset the frontier and queue every seed the filter accepts
//  2. Start the configured number of workers
//  3. Workers claim 'queued' items with an atomic status update
//  4. A worker exits when nothing is queued or processing
func (c *DefaultCrawler) Start(ctx context.Context, seedURLs []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()

	c.statsMutex.Lock()
	c.stats = CrawlStats{StartTime: time.Now()}
	c.claimed = 0
	c.statsMutex.Unlock()

	c.enqueuedMu.Lock()
	c.enqueued.ClearAll()
	c.enqueuedMu.Unlock()

	if err := c.storage.Reset(); err != nil {
		return fmt.Errorf("failed to reset frontier: %w", err)
	}

	seeds := c.admitSeeds(seedURLs)
	if len(seeds) == 0 {
		return ErrNoSeeds
	}

	if err := c.storage.AddToQueue(c.unqueued(seeds)); err != nil {
		return fmt.Errorf("failed to add seed URLs to queue: %w", err)
	}
	if err := c.storage.SetMeta("started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		c.logger.Warn("Failed to record start time", "error", err)
	}
	c.logger.Info("Starting crawler", "seed_urls", len(seeds), "workers", c.config.Concurrency)

	reporterDone := make(chan struct{})
	go c.statsReporter(ctx, reporterDone)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.config.Concurrency; i++ {
		id := i
		g.Go(func() error {
			return c.worker(gctx, id)
		})
	}

	err := g.Wait()
	cancel()
	<-reporterDone

	if err := c.storage.SetMeta("finished_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		c.logger.Warn("Failed to record finish time", "error", err)
	}

	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}

	progress := c.GetStats()
	c.logger.Info("Crawling completed",
		"processed", progress.PagesProcessed,
		"visited", progress.PagesVisited,
		"unique", c.store.UniqueCount(),
		"hosts", c.rateLimiter.Hosts(),
		"duration", progress.Duration)
	return nil
}

// admitSeeds returns the canonical seeds accepted by the filter, in order
func (c *DefaultCrawler) admitSeeds(seedURLs []string) []string {
	seen := make(map[string]struct{}, len(seedURLs))
	seeds := make([]string, 0, len(seedURLs))

	for _, raw := range seedURLs {
		canonical, ok := c.processor.Admit(raw)
		if !ok {
			c.logger.Warn("Skipping seed URL rejected by filter", "url", raw)
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		seeds = append(seeds, canonical)
	}
	return seeds
}

// Stop cancels a running crawl
func (c *DefaultCrawler) Stop() error {
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()

	if closer, ok := c.fetcher.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// GetStats returns current crawling statistics
func (c *DefaultCrawler) GetStats() CrawlStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// worker processes URLs from the queue.
// Termination conditions:
//  1. Context cancelled (graceful shutdown)
//  2. Reached configured limit of pages
//  3. Nothing queued and nothing processing
//
// Storage failures are returned and stop the whole pool.
func (c *DefaultCrawler) worker(ctx context.Context, id int) error {
	c.logger.Debug("Worker started", "worker_id", id)
	defer c.logger.Debug("Worker stopped", "worker_id", id)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !c.claim() {
			c.logger.Debug("Worker reached limit", "worker_id", id)
			return nil
		}

		item, err := c.storage.GetNextFromQueue()
		if err != nil {
			c.unclaim()
			return fmt.Errorf("worker %d: %w", id, err)
		}

		if item == nil {
			c.unclaim()

			more, err := c.storage.HasQueuedItems()
			if err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			if !more {
				c.logger.Debug("Worker no more items in queue, exiting", "worker_id", id)
				return nil
			}

			// Another worker is still processing and may queue links
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.idlePoll):
			}
			continue
		}

		if err := c.processURLItem(ctx, id, item); err != nil {
			return fmt.Errorf("worker %d: %w", id, err)
		}
	}
}

// claim reserves one page against the limit
func (c *DefaultCrawler) claim() bool {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	if c.config.Limit > 0 && c.claimed >= c.config.Limit {
		return false
	}
	c.claimed++
	return true
}

func (c *DefaultCrawler) unclaim() {
	c.statsMutex.Lock()
	c.claimed--
	c.statsMutex.Unlock()
}

// processURLItem fetches one claimed URL, runs the page processor, queues the
// accepted links and records the outcome. New links are queued before the
// item leaves 'processing' so idle workers never see an empty frontier early.
func (c *DefaultCrawler) processURLItem(ctx context.Context, id int, item *URLItem) error {
	if err := c.rateLimiter.Wait(ctx, item.URL); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("Worker rate limiting error", "worker_id", id, "url", item.URL, "error", err)
	}

	resp, outcome := c.fetch(ctx, item.URL)
	if ctx.Err() != nil {
		// Shutdown, not a page failure
		return nil
	}

	result := c.processor.Evaluate(item.URL, resp)
	outcome.Visited = result.Visited()
	outcome.Reason = string(result.Reason)
	outcome.Tokens = result.Tokens
	outcome.Links = len(result.Links)
	outcome.ProcessedAt = time.Now().UTC()

	if links := c.unqueued(result.Links); len(links) > 0 {
		if err := c.storage.AddToQueue(links); err != nil {
			return fmt.Errorf("failed to queue links from %s: %w", item.URL, err)
		}
	}

	if err := c.storage.CompletePage(item.ID, outcome); err != nil {
		return err
	}

	c.recordOutcome(outcome, resp.Err != nil)

	if outcome.Visited {
		c.logger.Info("Worker processed URL", "worker_id", id, "url", item.URL, "tokens", outcome.Tokens, "links", outcome.Links)
	} else {
		c.logger.Info("Worker rejected URL", "worker_id", id, "url", item.URL, "reason", outcome.Reason, "status", outcome.StatusCode)
	}
	return nil
}

// unqueued returns the urls not yet handed to storage and records them
func (c *DefaultCrawler) unqueued(urls []string) []string {
	c.enqueuedMu.Lock()
	defer c.enqueuedMu.Unlock()

	fresh := make([]string, 0, len(urls))
	for _, u := range urls {
		if c.enqueued.TestOrAddString(u) {
			continue
		}
		fresh = append(fresh, u)
	}

	if skipped := len(urls) - len(fresh); skipped > 0 {
		c.statsMutex.Lock()
		c.stats.LinksSkipped += skipped
		c.statsMutex.Unlock()
	}
	return fresh
}

// fetch retrieves url and converts it into the processor's response type
func (c *DefaultCrawler) fetch(ctx context.Context, url string) (*scraper.Response, *PageOutcome) {
	resp := &scraper.Response{URL: url}
	outcome := &PageOutcome{}

	httpResp, err := c.fetcher.Get(ctx, url)
	if err != nil {
		resp.Err = err
		outcome.ErrorMessage = err.Error()
		return resp, outcome
	}

	resp.FinalURL = httpResp.FinalURL
	resp.StatusCode = httpResp.StatusCode
	resp.ContentType = httpResp.ContentType
	resp.Content = httpResp.Body

	outcome.StatusCode = httpResp.StatusCode
	outcome.ContentType = httpResp.ContentType
	outcome.ResponseSize = int64(len(httpResp.Body))
	outcome.TTFB = httpResp.Metrics.TTFB
	outcome.DownloadTime = httpResp.Metrics.DownloadTime

	if httpResp.Truncated {
		c.logger.Warn("Response body truncated", "url", url, "bytes", len(httpResp.Body))
	}
	return resp, outcome
}

func (c *DefaultCrawler) recordOutcome(outcome *PageOutcome, fetchFailed bool) {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	c.stats.PagesProcessed++
	if outcome.Visited {
		c.stats.PagesVisited++
	}
	if fetchFailed {
		c.stats.FetchErrors++
	}
}

// statsReporter periodically logs crawl progress
func (c *DefaultCrawler) statsReporter(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			queued, processing, finished, failed, err := c.storage.GetQueueStatus()
			if err != nil {
				c.logger.Error("Failed to get queue status", "error", err)
				continue
			}

			progress := c.GetStats()
			c.logger.Info("Crawling stats",
				"processed", progress.PagesProcessed,
				"queued", queued,
				"processing", processing,
				"done", finished,
				"failed", failed,
				"unique", c.store.UniqueCount(),
				"fingerprints", c.store.FingerprintCount(),
				"links_skipped", progress.LinksSkipped,
				"hosts", c.rateLimiter.Hosts(),
				"duration", progress.Duration)
		}
	}
}
