package config

import "errors"

var (
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrInvalidExpectedURLs is returned when expected_urls is not greater than 0
	ErrInvalidExpectedURLs = errors.New("expected_urls must be greater than 0")
	// ErrNoAllowedDomains is returned when neither allowed domains nor exemptions are set
	ErrNoAllowedDomains = errors.New("filter.allowed_domains cannot be empty")
	// ErrInvalidDateCutoff is returned when the date cutoff is not in YYYY-MM form
	ErrInvalidDateCutoff = errors.New("filter.date_cutoff must be in YYYY-MM form")
	// ErrInvalidDateMode is returned for an unknown date exclusion mode
	ErrInvalidDateMode = errors.New("filter.date_mode must be one of before, any, off")
	// ErrInvalidLength is returned when a content length threshold is negative
	ErrInvalidLength = errors.New("content length thresholds cannot be negative")
	// ErrInvalidThreshold is returned when the similarity threshold is outside 0..64
	ErrInvalidThreshold = errors.New("content.similarity_threshold must be between 0 and 64")
	// ErrInvalidTopTokens is returned when report.top_tokens is negative
	ErrInvalidTopTokens = errors.New("report.top_tokens cannot be negative")
	// ErrInvalidLogFormat is returned for a log format other than text or json
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
)
