package crawler

import (
	"context"
	"time"

	"github.com/masahif/corpuscrawl/internal/scraper"
)

// Crawler defines the main crawling interface
type Crawler interface {
	Start(ctx context.Context, seedURLs []string) error
	Stop() error
	GetStats() CrawlStats
}

// PageProcessor turns a fetched response into outbound links
type PageProcessor interface {
	Evaluate(url string, resp *scraper.Response) *scraper.Result
}

// Fetcher retrieves a single URL
type Fetcher interface {
	Get(ctx context.Context, url string) (*HTTPResponse, error)
}

// Storage is the crawl frontier
type Storage interface {
	// Reset discards every row from a previous run
	Reset() error

	// Queue management (using pages table)
	AddToQueue(urls []string) error
	GetNextFromQueue() (*URLItem, error)

	// CompletePage records the outcome and moves the item to done or failed
	CompletePage(id int, outcome *PageOutcome) error

	// Queue status
	GetQueueStatus() (queued int, processing int, done int, failed int, err error)
	HasQueuedItems() (bool, error) // Check if queue has any work items (queued or processing)

	// Meta-data management
	GetMeta(key string) (string, error)
	SetMeta(key, value string) error

	// Database lifecycle
	Close() error
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesProcessed int // Frontier items finished, whatever the outcome
	PagesVisited   int // Items accepted by the page processor
	FetchErrors    int // Transport level failures
	LinksSkipped   int // Links already handed to the frontier in this crawl
	StartTime      time.Time
	Duration       time.Duration
}
