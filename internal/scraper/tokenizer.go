package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/masahif/corpuscrawl/internal/stats"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

// Tokenize splits text into lowercase word tokens of at least minLen runes.
// Runs made only of apostrophes are dropped.
func Tokenize(text string, minLen int) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)

	tokens := matches[:0]
	for _, tok := range matches {
		if strings.Trim(tok, "'") == "" {
			continue
		}
		if utf8.RuneCountInString(tok) < minLen {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Aggregator feeds page tokens into the store
type Aggregator struct {
	store          *stats.Store
	minTokenLength int
}

// NewAggregator creates an aggregator that ignores tokens shorter than minTokenLength
func NewAggregator(store *stats.Store, minTokenLength int) *Aggregator {
	return &Aggregator{store: store, minTokenLength: minTokenLength}
}

// Record tokenizes one page's text, offers it as the longest page and adds
// its token counts to the global frequencies. It returns the token count.
func (a *Aggregator) Record(url, text string) int {
	tokens := Tokenize(text, a.minTokenLength)

	a.store.UpdateLongestPage(url, len(tokens))

	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	a.store.AddTokens(counts)

	return len(tokens)
}
