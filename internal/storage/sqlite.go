// Package storage provides data persistence functionality for the crawler.
// It implements the SQLite-backed crawl frontier and stores the final
// corpus aggregate of a run so it can be queried with SQL.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/corpuscrawl/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the crawler.Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at dbPath and ensures the
// schema exists. Existing rows are kept until Reset is called.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Reset empties the frontier and the previous aggregate. Every run starts
// from a fresh state.
func (s *SQLiteStorage) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range runTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// AddToQueue adds URLs to the queue (pages table with status='queued').
// URLs already present in any status are ignored.
func (s *SQLiteStorage) AddToQueue(urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO pages (url, status, added_at)
		VALUES (?, 'queued', ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, url := range urls {
		if _, err := stmt.Exec(url, now); err != nil {
			return fmt.Errorf("failed to insert URL %s: %w", url, err)
		}
	}

	return tx.Commit()
}

// GetNextFromQueue atomically claims the oldest queued URL. It returns nil
// when nothing is queued.
func (s *SQLiteStorage) GetNextFromQueue() (*crawler.URLItem, error) {
	var item crawler.URLItem

	err := s.db.QueryRow(`
		UPDATE pages
		SET status = 'processing', processing_started_at = ?
		WHERE id = (
			SELECT id FROM pages
			WHERE status = 'queued'
			ORDER BY id ASC
			LIMIT 1
		) AND status = 'queued'
		RETURNING id, url
	`, time.Now().UTC()).Scan(&item.ID, &item.URL)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next from queue: %w", err)
	}

	return &item, nil
}

// CompletePage stores the outcome of a processed page
func (s *SQLiteStorage) CompletePage(id int, outcome *crawler.PageOutcome) error {
	processedAt := outcome.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		UPDATE pages SET
			status = ?,
			reason = ?,
			status_code = ?,
			content_type = ?,
			tokens = ?,
			links = ?,
			response_size_bytes = ?,
			ttfb_ms = ?,
			download_time_ms = ?,
			error_message = ?,
			processed_at = ?
		WHERE id = ?
	`,
		outcome.Status(),
		nullString(outcome.Reason),
		outcome.StatusCode,
		outcome.ContentType,
		outcome.Tokens,
		outcome.Links,
		outcome.ResponseSize,
		outcome.TTFB.Milliseconds(),
		outcome.DownloadTime.Milliseconds(),
		nullString(outcome.ErrorMessage),
		processedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete page %d: %w", id, err)
	}
	return nil
}

// GetQueueStatus returns counts by status
func (s *SQLiteStorage) GetQueueStatus() (queued int, processing int, done int, failed int, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM pages
	`

	err = s.db.QueryRow(query).Scan(&queued, &processing, &done, &failed)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get queue status: %w", err)
	}

	return queued, processing, done, failed, nil
}

// HasQueuedItems checks if there is any work left (queued or processing status)
func (s *SQLiteStorage) HasQueuedItems() (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM pages
		WHERE status IN ('queued', 'processing')
	`).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check queued items: %w", err)
	}

	return count > 0, nil
}

// RejectionCounts returns how many failed pages carry each reason
func (s *SQLiteStorage) RejectionCounts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT COALESCE(reason, ''), count FROM rejection_reasons")
	if err != nil {
		return nil, fmt.Errorf("failed to query rejection reasons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan rejection reason: %w", err)
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
