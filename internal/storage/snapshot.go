package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/masahif/corpuscrawl/internal/stats"
)

// SaveSnapshot replaces the stored aggregate with snap in one transaction
func (s *SQLiteStorage) SaveSnapshot(snap stats.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"unique_urls", "longest_page", "token_frequency", "subdomains"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertAll(tx, "INSERT INTO unique_urls (url) VALUES (?)", len(snap.UniqueURLs), func(i int) []any {
		return []any{snap.UniqueURLs[i]}
	}); err != nil {
		return fmt.Errorf("failed to save unique URLs: %w", err)
	}

	if snap.LongestPage.URL != "" {
		if _, err := tx.Exec(
			"INSERT INTO longest_page (id, url, tokens) VALUES (1, ?, ?)",
			snap.LongestPage.URL, snap.LongestPage.Tokens,
		); err != nil {
			return fmt.Errorf("failed to save longest page: %w", err)
		}
	}

	if err := insertAll(tx, "INSERT INTO token_frequency (token, count) VALUES (?, ?)", len(snap.TopTokens), func(i int) []any {
		return []any{snap.TopTokens[i].Token, snap.TopTokens[i].Count}
	}); err != nil {
		return fmt.Errorf("failed to save token frequency: %w", err)
	}

	if err := insertAll(tx, "INSERT INTO subdomains (host, count) VALUES (?, ?)", len(snap.Subdomains), func(i int) []any {
		return []any{snap.Subdomains[i].Host, snap.Subdomains[i].Count}
	}); err != nil {
		return fmt.Errorf("failed to save subdomains: %w", err)
	}

	counters := snapshotCounters(&snap)
	for _, key := range counterKeys {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
			key, strconv.Itoa(*counters[key]),
		); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Snapshot counters kept in crawl_meta
var counterKeys = []string{"visited", "invalid", "fingerprints"}

func snapshotCounters(snap *stats.Snapshot) map[string]*int {
	return map[string]*int{
		"visited":      &snap.Visited,
		"invalid":      &snap.Invalid,
		"fingerprints": &snap.Fingerprints,
	}
}

// LoadSnapshot reads back the stored aggregate. Counters missing from
// crawl_meta are left zero.
func (s *SQLiteStorage) LoadSnapshot() (stats.Snapshot, error) {
	var snap stats.Snapshot

	counters := snapshotCounters(&snap)
	for _, key := range counterKeys {
		value, err := s.GetMeta(key)
		if err != nil {
			return snap, err
		}
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return snap, fmt.Errorf("invalid %s counter %q: %w", key, value, err)
		}
		*counters[key] = n
	}

	rows, err := s.db.Query("SELECT url FROM unique_urls ORDER BY url")
	if err != nil {
		return snap, fmt.Errorf("failed to query unique URLs: %w", err)
	}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			_ = rows.Close()
			return snap, fmt.Errorf("failed to scan unique URL: %w", err)
		}
		snap.UniqueURLs = append(snap.UniqueURLs, u)
	}
	_ = rows.Close()

	err = s.db.QueryRow("SELECT url, tokens FROM longest_page WHERE id = 1").
		Scan(&snap.LongestPage.URL, &snap.LongestPage.Tokens)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("failed to query longest page: %w", err)
	}

	rows, err = s.db.Query("SELECT token, count FROM token_frequency ORDER BY count DESC, token ASC")
	if err != nil {
		return snap, fmt.Errorf("failed to query token frequency: %w", err)
	}
	for rows.Next() {
		var tc stats.TokenCount
		if err := rows.Scan(&tc.Token, &tc.Count); err != nil {
			_ = rows.Close()
			return snap, fmt.Errorf("failed to scan token: %w", err)
		}
		snap.TopTokens = append(snap.TopTokens, tc)
	}
	_ = rows.Close()

	rows, err = s.db.Query("SELECT host, count FROM subdomains ORDER BY host")
	if err != nil {
		return snap, fmt.Errorf("failed to query subdomains: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var sc stats.SubdomainCount
		if err := rows.Scan(&sc.Host, &sc.Count); err != nil {
			return snap, fmt.Errorf("failed to scan subdomain: %w", err)
		}
		snap.Subdomains = append(snap.Subdomains, sc)
	}

	return snap, rows.Err()
}

// insertAll runs query once per row inside tx
func insertAll(tx *sql.Tx, query string, n int, row func(int) []any) error {
	if n == 0 {
		return nil
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(row(i)...); err != nil {
			return err
		}
	}
	return nil
}
