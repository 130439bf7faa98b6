// Package stats holds the shared, concurrently updated state of one crawl run:
// the visited, invalid and unique URL sets, the longest page, global token
// frequencies, per-subdomain counts and the content fingerprints used for
// near-duplicate detection.
package stats

import (
	"sync"

	"github.com/masahif/corpuscrawl/internal/simhash"
)

// PageLength is a page URL with its token count
type PageLength struct {
	URL    string
	Tokens int
}

// Store aggregates crawl results. Create one per run with New and pass it to
// every processor; all methods are safe for concurrent use.
//
// visited and invalid are disjoint: both transitions are checked and applied
// under urlMu.
type Store struct {
	urlMu      sync.RWMutex
	visited    map[string]struct{}
	invalid    map[string]struct{}
	unique     map[string]struct{}
	subdomains map[string]int

	pageMu  sync.Mutex
	longest PageLength

	tokenMu sync.Mutex
	tokens  map[string]int

	detector *simhash.Detector
}

// New creates an empty store whose near-duplicate check uses threshold bits
func New(threshold int) *Store {
	return &Store{
		visited:    make(map[string]struct{}),
		invalid:    make(map[string]struct{}),
		unique:     make(map[string]struct{}),
		subdomains: make(map[string]int),
		tokens:     make(map[string]int),
		detector:   simhash.NewDetector(threshold),
	}
}

// MarkVisited records url as successfully processed. It returns false and
// changes nothing if url is already visited or invalid.
func (s *Store) MarkVisited(url string) bool {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()

	if _, ok := s.invalid[url]; ok {
		return false
	}
	if _, ok := s.visited[url]; ok {
		return false
	}
	s.visited[url] = struct{}{}
	return true
}

// MarkInvalid records url as permanently rejected. It returns false and
// changes nothing if url is already visited or invalid.
func (s *Store) MarkInvalid(url string) bool {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()

	if _, ok := s.visited[url]; ok {
		return false
	}
	if _, ok := s.invalid[url]; ok {
		return false
	}
	s.invalid[url] = struct{}{}
	return true
}

// IsKnown reports whether url is visited or invalid
func (s *Store) IsKnown(url string) bool {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()

	_, visited := s.visited[url]
	_, invalid := s.invalid[url]
	return visited || invalid
}

// IsVisited reports whether url was successfully processed
func (s *Store) IsVisited(url string) bool {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	_, ok := s.visited[url]
	return ok
}

// IsInvalid reports whether url was rejected
func (s *Store) IsInvalid(url string) bool {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	_, ok := s.invalid[url]
	return ok
}

// AddUnique records a URL that passed the validity filter. When subdomain is
// non-empty and the URL is new, that subdomain's count is incremented.
// It returns true if the URL was not already unique.
func (s *Store) AddUnique(url, subdomain string) bool {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()

	if _, ok := s.unique[url]; ok {
		return false
	}
	s.unique[url] = struct{}{}
	if subdomain != "" {
		s.subdomains[subdomain]++
	}
	return true
}

// UpdateLongestPage replaces the longest page if tokens is strictly greater
// than the current count. Ties keep the page that got there first.
func (s *Store) UpdateLongestPage(url string, tokens int) bool {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if tokens <= s.longest.Tokens {
		return false
	}
	s.longest = PageLength{URL: url, Tokens: tokens}
	return true
}

// AddTokens adds one page's token counts to the global frequencies
func (s *Store) AddTokens(counts map[string]int) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	for token, n := range counts {
		s.tokens[token] += n
	}
}

// CheckFingerprint reports whether fp is a near-duplicate of a stored
// fingerprint and stores it either way
func (s *Store) CheckFingerprint(fp uint64) bool {
	return s.detector.Check(fp)
}

// FingerprintCount returns how many fingerprints have been stored
func (s *Store) FingerprintCount() int {
	return s.detector.Len()
}

// VisitedCount returns the size of the visited set
func (s *Store) VisitedCount() int {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	return len(s.visited)
}

// InvalidCount returns the size of the invalid set
func (s *Store) InvalidCount() int {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	return len(s.invalid)
}

// UniqueCount returns the number of distinct URLs that passed the filter
func (s *Store) UniqueCount() int {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	return len(s.unique)
}
