package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// \s in Go is ASCII only; \v and \p{Z} cover the remaining separators
	whitespaceRun    = regexp.MustCompile(`[\s\v\p{Z}]+`)
	spaceBeforePunct = regexp.MustCompile(` ([.!?])`)
)

// NormalizeText applies NFKC, collapses whitespace runs to a single space and
// removes the space in front of sentence-ending punctuation.
// NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
