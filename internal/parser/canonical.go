package parser

import (
	"fmt"
	"net/url"
	"strings"
)

// URLResult is the outcome of parsing a raw URL string.
// Exactly one of URL and Err is set.
type URLResult struct {
	URL *url.URL
	Err error
}

// OK reports whether the URL parsed
func (r URLResult) OK() bool {
	return r.Err == nil && r.URL != nil
}

// ParseURL parses raw without panicking or returning a bare error
func ParseURL(raw string) URLResult {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return URLResult{Err: fmt.Errorf("invalid URL %q: %w", raw, err)}
	}
	return URLResult{URL: u}
}

// Canonicalize resolves ref against base and drops the fragment.
// Scheme, host, path, params and query are kept as they are: an absolute
// ref is returned as written up to its '#', without re-encoding. A relative
// ref takes the escaped form of the resolved URL. base may be nil.
func Canonicalize(base *url.URL, ref string) (string, error) {
	parsed := ParseURL(ref)
	if !parsed.OK() {
		return "", parsed.Err
	}

	if base == nil || parsed.URL.IsAbs() {
		raw := strings.TrimSpace(ref)
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		return raw, nil
	}

	resolved := *base.ResolveReference(parsed.URL)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	return resolved.String(), nil
}

// CanonicalizeURL canonicalizes an absolute URL string
func CanonicalizeURL(raw string) (string, error) {
	return Canonicalize(nil, raw)
}
