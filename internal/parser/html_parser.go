// Package parser provides HTML parsing and content extraction capabilities.
// It turns raw page bytes into normalized text, extracts outbound links and
// canonicalizes URLs.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrUnparseable is returned when a body cannot be read as markup
var ErrUnparseable = errors.New("unparseable content")

// Elements whose text never renders
var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Document is a parsed page
type Document struct {
	Root *html.Node
	Text string // Normalized visible text
}

// Extract parses an HTML body and returns its normalized visible text.
// contentType is the HTTP Content-Type header and may be empty; it is only
// used to pick the character set.
func Extract(body []byte, contentType string) (*Document, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnparseable)
	}

	if sniffed := http.DetectContentType(body); !isTextual(sniffed) {
		return nil, fmt.Errorf("%w: body looks like %s", ErrUnparseable, sniffed)
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	root, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var parts []string
	collectText(root, &parts)

	return &Document{
		Root: root,
		Text: NormalizeText(strings.Join(parts, " ")),
	}, nil
}

// collectText walks the tree and gathers trimmed text runs, skipping comments
// and invisible elements
func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		if invisibleElements[n.Data] {
			return
		}
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// isTextual reports whether a sniffed MIME type can hold markup
func isTextual(mime string) bool {
	return strings.HasPrefix(mime, "text/") ||
		strings.Contains(mime, "xml") ||
		strings.Contains(mime, "json")
}

// ExtractLinks returns the canonical form of every anchor href in document
// order. Relative references resolve against the document's <base href>
// when present, otherwise against pageURL. Duplicates are kept.
func ExtractLinks(doc *Document, pageURL string) []string {
	if doc == nil || doc.Root == nil {
		return nil
	}

	gq := goquery.NewDocumentFromNode(doc.Root)

	var base *url.URL
	if parsed := ParseURL(pageURL); parsed.OK() {
		base = parsed.URL
	}
	if href, ok := gq.Find("base[href]").First().Attr("href"); ok && base != nil {
		if parsed := ParseURL(href); parsed.OK() {
			base = base.ResolveReference(parsed.URL)
		}
	}

	var links []string
	gq.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !isFollowable(href) {
			return
		}

		link, err := Canonicalize(base, href)
		if err != nil {
			return
		}
		links = append(links, link)
	})

	return links
}

// isFollowable rejects empty, fragment-only and non-navigational references
func isFollowable(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}
