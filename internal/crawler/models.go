package crawler

import "time"

// Frontier statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// URLItem represents an item in the crawl queue
type URLItem struct {
	ID  int    // Queue item ID for tracking
	URL string // URL to be processed
}

// PageOutcome is what the frontier records about a processed URL
type PageOutcome struct {
	Visited      bool          // Page passed every content check
	Reason       string        // Rejection reason, empty when visited
	StatusCode   int           // HTTP status code, 0 when the fetch failed
	ContentType  string        // HTTP Content-Type header
	Tokens       int           // Tokens counted for a visited page
	Links        int           // Accepted outbound links
	ResponseSize int64         // Response body size in bytes
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
	ErrorMessage string        // Fetch error, if any
	ProcessedAt  time.Time     // Timestamp when processed (UTC)
}

// Status returns the frontier status the outcome maps to
func (o *PageOutcome) Status() string {
	if o.Visited {
		return StatusDone
	}
	return StatusFailed
}
