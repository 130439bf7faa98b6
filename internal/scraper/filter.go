package scraper

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/masahif/corpuscrawl/internal/config"
	"github.com/masahif/corpuscrawl/internal/parser"
	"github.com/masahif/corpuscrawl/internal/stats"
)

var datePattern = regexp.MustCompile(`(\d{4})-(\d{2})(?:-\d{2})?`)

// Filter decides whether a canonical URL may be queued. Accepted URLs are
// counted as unique (and per subdomain); rejected ones are marked invalid.
type Filter struct {
	store      *stats.Store
	allowed    []string
	rootDomain string
	exemptions []config.Exemption
	traps      []string
	extensions map[string]struct{}
	dateRule   config.DateRule
	logger     *slog.Logger
}

// NewFilter builds a filter from cfg. If cfg.RootDomain is empty it is
// derived from the first allowed domain.
func NewFilter(cfg config.FilterConfig, store *stats.Store, logger *slog.Logger) (*Filter, error) {
	dateRule, err := cfg.DateRule()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	f := &Filter{
		store:      store,
		rootDomain: normalizeDomain(cfg.RootDomain),
		traps:      cfg.TrapPatterns,
		extensions: make(map[string]struct{}, len(cfg.DisallowedExtensions)),
		dateRule:   dateRule,
		logger:     logger,
	}

	for _, d := range cfg.AllowedDomains {
		if d = normalizeDomain(d); d != "" {
			f.allowed = append(f.allowed, d)
		}
	}

	for _, e := range cfg.Exemptions {
		f.exemptions = append(f.exemptions, config.Exemption{
			Host:       normalizeDomain(e.Host),
			PathPrefix: e.PathPrefix,
		})
	}

	for _, ext := range cfg.DisallowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			f.extensions[ext] = struct{}{}
		}
	}

	if f.rootDomain == "" && len(f.allowed) > 0 {
		root, err := publicsuffix.EffectiveTLDPlusOne(f.allowed[0])
		if err != nil {
			return nil, fmt.Errorf("failed to derive root domain from %s: %w", f.allowed[0], err)
		}
		f.rootDomain = root
	}

	return f, nil
}

// RootDomain returns the domain whose subdomains are counted
func (f *Filter) RootDomain() string {
	return f.rootDomain
}

// IsValid reports whether rawURL should be crawled
func (f *Filter) IsValid(rawURL string) bool {
	return f.Check(rawURL) == ReasonNone
}

// Check applies the rules in order and returns the first failing one, or
// ReasonNone on acceptance. URLs that are already visited or invalid are
// rejected without being recorded again.
func (f *Filter) Check(rawURL string) Reason {
	reason, host := f.evaluate(rawURL)

	switch reason {
	case ReasonNone:
		subdomain := ""
		if hasDomainSuffix(host, f.rootDomain) {
			subdomain = host
		}
		f.store.AddUnique(rawURL, subdomain)
	case ReasonAlreadySeen:
	default:
		f.store.MarkInvalid(rawURL)
		f.logger.Debug("Rejected URL", "url", rawURL, "reason", reason)
	}

	return reason
}

// evaluate runs the rules without touching the store's unique set
func (f *Filter) evaluate(rawURL string) (Reason, string) {
	parsed := parser.ParseURL(rawURL)
	if !parsed.OK() {
		return ReasonMalformedURL, ""
	}
	u := parsed.URL

	if u.Scheme != "http" && u.Scheme != "https" {
		return ReasonScheme, ""
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || !f.inScope(host, u.Path) {
		return ReasonDomain, host
	}

	if f.store.IsKnown(rawURL) {
		return ReasonAlreadySeen, host
	}

	for _, trap := range f.traps {
		if trap != "" && strings.Contains(rawURL, trap) {
			return ReasonTrap, host
		}
	}

	if ext := strings.TrimPrefix(path.Ext(strings.ToLower(u.Path)), "."); ext != "" {
		if _, blocked := f.extensions[ext]; blocked {
			return ReasonExtension, host
		}
	}

	if f.isExcludedDate(u.Path) || f.isExcludedDate(u.RawQuery) {
		return ReasonDated, host
	}

	return ReasonNone, host
}

// inScope checks the allowed domains and the exemptions
func (f *Filter) inScope(host, urlPath string) bool {
	for _, d := range f.allowed {
		if hasDomainSuffix(host, d) {
			return true
		}
	}

	for _, e := range f.exemptions {
		if host == e.Host && strings.HasPrefix(urlPath, e.PathPrefix) {
			return true
		}
	}

	return false
}

// isExcludedDate reports whether s contains a YYYY-MM date the rule excludes.
// Digit runs that are not real months are ignored.
func (f *Filter) isExcludedDate(s string) bool {
	if s == "" || f.dateRule.Mode == config.DateModeOff {
		return false
	}

	for _, m := range datePattern.FindAllStringSubmatch(s, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			continue
		}

		date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		if f.dateRule.Excludes(date) {
			return true
		}
	}

	return false
}

// hasDomainSuffix reports whether host is domain or one of its subdomains
func hasDomainSuffix(host, domain string) bool {
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func normalizeDomain(d string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
}
