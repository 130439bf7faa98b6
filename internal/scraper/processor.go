package scraper

import (
	"log/slog"
	"unicode/utf8"

	"github.com/masahif/corpuscrawl/internal/config"
	"github.com/masahif/corpuscrawl/internal/parser"
	"github.com/masahif/corpuscrawl/internal/simhash"
	"github.com/masahif/corpuscrawl/internal/stats"
)

// Processor runs the page pipeline against a shared store
type Processor struct {
	store         *stats.Store
	filter        *Filter
	aggregator    *Aggregator
	minTextLength int
	logger        *slog.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger used for rejection messages
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor from cfg writing into store
func NewProcessor(cfg *config.CrawlConfig, store *stats.Store, opts ...Option) (*Processor, error) {
	p := &Processor{
		store:         store,
		aggregator:    NewAggregator(store, cfg.Content.MinTokenLength),
		minTextLength: cfg.Content.MinTextLength,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	filter, err := NewFilter(cfg.Filter, store, p.logger)
	if err != nil {
		return nil, err
	}
	p.filter = filter

	return p, nil
}

// Admit canonicalizes a seed URL and runs it through the validity filter
func (p *Processor) Admit(rawURL string) (string, bool) {
	canonical, err := parser.CanonicalizeURL(rawURL)
	if err != nil {
		p.store.MarkInvalid(rawURL)
		return "", false
	}
	return canonical, p.filter.IsValid(canonical)
}

// Process handles one fetched page and returns the outbound URLs worth
// crawling. It never fails; rejected pages yield an empty slice.
func (p *Processor) Process(url string, resp *Response) []string {
	return p.Evaluate(url, resp).Links
}

// Evaluate is Process with the full outcome
func (p *Processor) Evaluate(url string, resp *Response) (result *Result) {
	result = &Result{URL: url, Links: []string{}}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Page processing panicked", "url", url, "panic", r)
			p.store.MarkInvalid(result.URL)
			result.Reason = ReasonUnparseable
			result.Links = []string{}
		}
	}()

	canonical, err := parser.CanonicalizeURL(url)
	if err != nil {
		return p.reject(result, ReasonMalformedURL, "error", err)
	}
	result.URL = canonical

	switch {
	case resp == nil || resp.Err != nil:
		var fetchErr error
		if resp != nil {
			fetchErr = resp.Err
		}
		return p.reject(result, ReasonFetchFailed, "error", fetchErr)
	case !isSuccess(resp.StatusCode):
		return p.reject(result, ReasonBadStatus, "status_code", resp.StatusCode)
	case p.store.IsKnown(canonical):
		result.Reason = ReasonAlreadySeen
		return result
	case len(resp.Content) == 0:
		return p.reject(result, ReasonEmptyBody)
	}

	doc, err := parser.Extract(resp.Content, resp.ContentType)
	if err != nil {
		return p.reject(result, ReasonUnparseable, "error", err)
	}

	if n := utf8.RuneCountInString(doc.Text); n < p.minTextLength {
		return p.reject(result, ReasonTooShort, "length", n)
	}

	if p.store.CheckFingerprint(simhash.Fingerprint(doc.Text)) {
		return p.reject(result, ReasonDuplicate)
	}

	result.Tokens = p.aggregator.Record(canonical, doc.Text)
	p.store.MarkVisited(canonical)

	base := resp.FinalURL
	if base == "" {
		base = canonical
	}

	seen := make(map[string]struct{})
	for _, link := range parser.ExtractLinks(doc, base) {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		if p.filter.IsValid(link) {
			result.Links = append(result.Links, link)
		}
	}

	p.logger.Debug("Processed page", "url", canonical, "tokens", result.Tokens, "links", len(result.Links))
	return result
}

// reject marks the page invalid and logs why
func (p *Processor) reject(result *Result, reason Reason, attrs ...any) *Result {
	result.Reason = reason
	p.store.MarkInvalid(result.URL)
	p.logger.Debug("Rejected page", append([]any{"url", result.URL, "reason", reason}, attrs...)...)
	return result
}

// isSuccess accepts 2xx except 204 No Content
func isSuccess(code int) bool {
	return code >= 200 && code < 300 && code != 204
}
