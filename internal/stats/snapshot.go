package stats

import "sort"

// TokenCount is a token with its cumulative frequency
type TokenCount struct {
	Token string
	Count int
}

// SubdomainCount is a subdomain host with its number of unique URLs
type SubdomainCount struct {
	Host  string
	Count int
}

// Snapshot is a read-only copy of the store for reporting
type Snapshot struct {
	UniqueURLs   []string
	LongestPage  PageLength
	TopTokens    []TokenCount
	Subdomains   []SubdomainCount
	Visited      int
	Invalid      int
	Fingerprints int
}

// UniqueURLs returns the unique URLs in lexical order
func (s *Store) UniqueURLs() []string {
	s.urlMu.RLock()
	urls := make([]string, 0, len(s.unique))
	for u := range s.unique {
		urls = append(urls, u)
	}
	s.urlMu.RUnlock()

	sort.Strings(urls)
	return urls
}

// LongestPage returns the page with the most tokens seen so far
func (s *Store) LongestPage() PageLength {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	return s.longest
}

// TokenFrequency returns the cumulative count of a single token
func (s *Store) TokenFrequency(token string) int {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.tokens[token]
}

// TopTokens returns up to n tokens by descending count, ties broken by token,
// skipping stop-words. n <= 0 returns all of them.
func (s *Store) TopTokens(n int, stopWords map[string]struct{}) []TokenCount {
	s.tokenMu.Lock()
	counts := make([]TokenCount, 0, len(s.tokens))
	for token, c := range s.tokens {
		if _, stop := stopWords[token]; stop {
			continue
		}
		counts = append(counts, TokenCount{Token: token, Count: c})
	}
	s.tokenMu.Unlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Token < counts[j].Token
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Subdomains returns per-subdomain URL counts sorted by host
func (s *Store) Subdomains() []SubdomainCount {
	s.urlMu.RLock()
	subs := make([]SubdomainCount, 0, len(s.subdomains))
	for host, c := range s.subdomains {
		subs = append(subs, SubdomainCount{Host: host, Count: c})
	}
	s.urlMu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].Host < subs[j].Host
	})
	return subs
}

// Snapshot copies everything a report needs
func (s *Store) Snapshot(topN int, stopWords map[string]struct{}) Snapshot {
	return Snapshot{
		UniqueURLs:   s.UniqueURLs(),
		LongestPage:  s.LongestPage(),
		TopTokens:    s.TopTokens(topN, stopWords),
		Subdomains:   s.Subdomains(),
		Visited:      s.VisitedCount(),
		Invalid:      s.InvalidCount(),
		Fingerprints: s.FingerprintCount(),
	}
}
