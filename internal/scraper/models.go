// Package scraper implements the page pipeline: content extraction,
// near-duplicate detection, token aggregation and link filtering for one
// fetched page at a time. Shared results accumulate in a stats.Store.
package scraper

// Response is a fetched page as handed over by the fetch layer
type Response struct {
	URL         string // URL that was requested
	FinalURL    string // URL after redirects, empty if unknown
	StatusCode  int    // HTTP status code, 0 if the fetch failed
	ContentType string // HTTP Content-Type header
	Content     []byte // Raw body, nil if none
	Err         error  // Fetch error, if any
}

// Reason explains why a page or link was rejected
type Reason string

// Rejection reasons
const (
	ReasonNone         Reason = ""
	ReasonMalformedURL Reason = "malformed_url"
	ReasonFetchFailed  Reason = "fetch_failed"
	ReasonBadStatus    Reason = "bad_status"
	ReasonAlreadySeen  Reason = "already_seen"
	ReasonEmptyBody    Reason = "empty_body"
	ReasonUnparseable  Reason = "unparseable"
	ReasonTooShort     Reason = "too_short"
	ReasonDuplicate    Reason = "near_duplicate"
	ReasonScheme       Reason = "scheme"
	ReasonDomain       Reason = "domain"
	ReasonTrap         Reason = "trap"
	ReasonExtension    Reason = "extension"
	ReasonDated        Reason = "dated"
)

// Result is the outcome of processing one page
type Result struct {
	URL    string   // Canonical form of the requested URL
	Reason Reason   // Why the page was rejected; ReasonNone if it was visited
	Tokens int      // Tokens counted for the page
	Links  []string // Accepted outbound canonical URLs, never nil
}

// Visited reports whether the page made it through the pipeline
func (r *Result) Visited() bool {
	return r.Reason == ReasonNone
}
