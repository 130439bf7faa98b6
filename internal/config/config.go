// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling,
// filtering, content analysis and reporting.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Date exclusion modes
const (
	DateModeBefore = "before" // exclude URLs dated before the cutoff month
	DateModeAny    = "any"    // exclude any URL carrying a date
	DateModeOff    = "off"    // never exclude on dates
)

// dateCutoffLayout is the accepted form of FilterConfig.DateCutoff
const dateCutoffLayout = "2006-01"

// Exemption admits a host outside the allowed domains, optionally limited to a path prefix
type Exemption struct {
	Host       string `mapstructure:"host" yaml:"host"`
	PathPrefix string `mapstructure:"path_prefix" yaml:"path_prefix"`
}

// FilterConfig holds the URL validity rules
type FilterConfig struct {
	AllowedDomains       []string    `mapstructure:"allowed_domains" yaml:"allowed_domains"`             // Host suffixes eligible for crawling
	RootDomain           string      `mapstructure:"root_domain" yaml:"root_domain"`                     // Domain whose subdomains are counted
	Exemptions           []Exemption `mapstructure:"exemptions" yaml:"exemptions"`                       // Hosts admitted outside AllowedDomains
	TrapPatterns         []string    `mapstructure:"trap_patterns" yaml:"trap_patterns"`                 // Substrings that mark crawler traps
	DisallowedExtensions []string    `mapstructure:"disallowed_extensions" yaml:"disallowed_extensions"` // File extensions never crawled
	DateCutoff           string      `mapstructure:"date_cutoff" yaml:"date_cutoff"`                     // YYYY-MM cutoff for DateModeBefore
	DateMode             string      `mapstructure:"date_mode" yaml:"date_mode"`                         // before, any or off
}

// ContentConfig holds the page content thresholds
type ContentConfig struct {
	MinTextLength       int `mapstructure:"min_text_length" yaml:"min_text_length"`           // Pages with shorter normalized text are invalid
	MinTokenLength      int `mapstructure:"min_token_length" yaml:"min_token_length"`         // Shorter tokens are not counted
	SimilarityThreshold int `mapstructure:"similarity_threshold" yaml:"similarity_threshold"` // Max Hamming distance for a near-duplicate
}

// ReportConfig holds the output settings
type ReportConfig struct {
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"` // Directory for report files
	TopTokens int      `mapstructure:"top_tokens" yaml:"top_tokens"` // Number of most common tokens reported
	StopWords []string `mapstructure:"stop_words" yaml:"stop_words"` // Tokens excluded from the report
}

// LogConfig holds the logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn or error
	Format     string `mapstructure:"format" yaml:"format"`           // text or json
	File       string `mapstructure:"file" yaml:"file"`               // Rotated log file, empty for console only
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"`       // MB before rotation
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files kept
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURLs       []string      `mapstructure:"seed_urls" yaml:"seed_urls"`             // Starting URLs for crawling
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent workers
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Delay between requests to one host
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // Extra headers in "Name: Value" form
	Limit          int           `mapstructure:"limit" yaml:"limit"`                     // Stop after N pages
	ExpectedURLs   int           `mapstructure:"expected_urls" yaml:"expected_urls"`     // Sizing of the enqueued-link bloom filter

	// Database configuration
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file

	Filter  FilterConfig  `mapstructure:"filter" yaml:"filter"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		SeedURLs: []string{
			"https://www.ics.uci.edu",
			"https://www.cs.uci.edu",
			"https://www.informatics.uci.edu",
			"https://www.stat.uci.edu",
		},
		Concurrency:    4,
		RequestDelay:   500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		UserAgent:      "CorpusCrawl/1.0",
		Limit:          0, // unlimited
		ExpectedURLs:   1_000_000,
		DatabasePath:   "./corpuscrawl.db",
		Filter: FilterConfig{
			AllowedDomains: []string{
				"ics.uci.edu",
				"cs.uci.edu",
				"informatics.uci.edu",
				"stat.uci.edu",
			},
			RootDomain: "uci.edu",
			Exemptions: []Exemption{
				{Host: "today.uci.edu", PathPrefix: "/department/information_computer_sciences"},
			},
			TrapPatterns:         append([]string(nil), defaultTrapPatterns...),
			DisallowedExtensions: append([]string(nil), defaultDisallowedExtensions...),
			DateCutoff:           "2024-10",
			DateMode:             DateModeBefore,
		},
		Content: ContentConfig{
			MinTextLength:       2500,
			MinTokenLength:      3,
			SimilarityThreshold: 5,
		},
		Report: ReportConfig{
			OutputDir: ".",
			TopTokens: 50,
			StopWords: append([]string(nil), DefaultStopWords...),
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	if c.ExpectedURLs <= 0 {
		return ErrInvalidExpectedURLs
	}

	if len(c.Filter.AllowedDomains) == 0 && len(c.Filter.Exemptions) == 0 {
		return ErrNoAllowedDomains
	}

	if _, err := c.Filter.DateRule(); err != nil {
		return err
	}

	if c.Content.MinTextLength < 0 || c.Content.MinTokenLength < 0 {
		return ErrInvalidLength
	}

	if c.Content.SimilarityThreshold < 0 || c.Content.SimilarityThreshold > 64 {
		return ErrInvalidThreshold
	}

	if c.Report.TopTokens < 0 {
		return ErrInvalidTopTokens
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	return nil
}

// DateRule is the parsed form of the date exclusion settings
type DateRule struct {
	Mode   string
	Cutoff time.Time
}

// Excludes reports whether a URL dated d should be skipped
func (r DateRule) Excludes(d time.Time) bool {
	switch r.Mode {
	case DateModeAny:
		return true
	case DateModeBefore:
		return d.Before(r.Cutoff)
	default:
		return false
	}
}

// DateRule parses DateMode and DateCutoff. An empty mode means DateModeBefore.
func (f *FilterConfig) DateRule() (DateRule, error) {
	mode := strings.ToLower(strings.TrimSpace(f.DateMode))
	if mode == "" {
		mode = DateModeBefore
	}

	switch mode {
	case DateModeOff, DateModeAny:
		return DateRule{Mode: mode}, nil
	case DateModeBefore:
		cutoff, err := time.Parse(dateCutoffLayout, strings.TrimSpace(f.DateCutoff))
		if err != nil {
			return DateRule{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateCutoff, f.DateCutoff, err)
		}
		return DateRule{Mode: mode, Cutoff: cutoff}, nil
	default:
		return DateRule{}, fmt.Errorf("%w: %q", ErrInvalidDateMode, f.DateMode)
	}
}

// StopWordSet returns the configured stop-words as a lookup set
func (r *ReportConfig) StopWordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.StopWords))
	for _, w := range r.StopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// ParsedHeaders returns Headers as a map, skipping malformed entries
func (c *CrawlConfig) ParsedHeaders() map[string]string {
	headers := make(map[string]string)
	for _, header := range c.Headers {
		colonIndex := strings.Index(header, ":")
		if colonIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(header[:colonIndex])
		value := strings.TrimSpace(header[colonIndex+1:])
		if key == "" || value == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}
