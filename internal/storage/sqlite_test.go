package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/masahif/corpuscrawl/internal/crawler"
	"github.com/masahif/corpuscrawl/internal/stats"
)

func newMemoryStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage(t *testing.T) {
	tempDir := t.TempDir()
	dbFile := filepath.Join(tempDir, "test_crawler.db")

	storage, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	t.Run("QueueOperations", func(t *testing.T) {
		urls := []string{
			"https://ics.uci.edu/page1",
			"https://ics.uci.edu/page2",
			"https://ics.uci.edu/page3",
		}

		if err := storage.AddToQueue(urls); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}

		// Items come back in insertion order
		for i, expected := range urls {
			item, err := storage.GetNextFromQueue()
			if err != nil {
				t.Fatalf("Failed to get next from queue: %v", err)
			}
			if item == nil {
				t.Fatalf("Expected item %d from queue, got nil", i)
			}
			if item.URL != expected {
				t.Errorf("Item %d: expected %s, got %s", i, expected, item.URL)
			}
			if err := storage.CompletePage(item.ID, &crawler.PageOutcome{Visited: true, StatusCode: 200}); err != nil {
				t.Errorf("Failed to complete page: %v", err)
			}
		}

		item, err := storage.GetNextFromQueue()
		if err != nil {
			t.Errorf("Failed to get next from queue: %v", err)
		}
		if item != nil {
			t.Errorf("Expected no more items, got %v", item)
		}
	})

	t.Run("DuplicateURLsIgnored", func(t *testing.T) {
		// page1 is already done; re-adding it must not requeue it
		if err := storage.AddToQueue([]string{"https://ics.uci.edu/page1", "https://ics.uci.edu/page1"}); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}

		item, err := storage.GetNextFromQueue()
		if err != nil {
			t.Fatalf("Failed to get next from queue: %v", err)
		}
		if item != nil {
			t.Errorf("Expected processed URL not to be requeued, got %v", item)
		}
	})

	t.Run("MetaOperations", func(t *testing.T) {
		if err := storage.SetMeta("crawl_started", time.Now().Format(time.RFC3339)); err != nil {
			t.Errorf("Failed to set meta: %v", err)
		}

		value, err := storage.GetMeta("crawl_started")
		if err != nil {
			t.Errorf("Failed to get meta: %v", err)
		}
		if value == "" {
			t.Errorf("Expected non-empty value")
		}

		missing, err := storage.GetMeta("missing")
		if err != nil || missing != "" {
			t.Errorf("Expected empty value for missing key, got %q, %v", missing, err)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		if err := storage.Reset(); err != nil {
			t.Fatalf("Failed to reset: %v", err)
		}

		queued, processing, done, failed, err := storage.GetQueueStatus()
		if err != nil {
			t.Fatalf("Failed to get queue status: %v", err)
		}
		if queued+processing+done+failed != 0 {
			t.Errorf("Expected empty frontier after reset, got %d/%d/%d/%d", queued, processing, done, failed)
		}

		if value, _ := storage.GetMeta("crawl_started"); value != "" {
			t.Errorf("Expected meta cleared after reset, got %q", value)
		}

		// A URL from the previous run can be queued again
		if err := storage.AddToQueue([]string{"https://ics.uci.edu/page1"}); err != nil {
			t.Fatalf("Failed to add to queue: %v", err)
		}
		if item, _ := storage.GetNextFromQueue(); item == nil {
			t.Error("Expected URL to be queued again after reset")
		}
	})
}

func TestQueueStatusTracking(t *testing.T) {
	storage := newMemoryStorage(t)

	queued, processing, done, failed, err := storage.GetQueueStatus()
	if err != nil {
		t.Fatalf("Failed to get status of empty queue: %v", err)
	}
	if queued != 0 || processing != 0 || done != 0 || failed != 0 {
		t.Errorf("Expected all zero, got %d/%d/%d/%d", queued, processing, done, failed)
	}

	if err := storage.AddToQueue([]string{"https://ics.uci.edu/a", "https://ics.uci.edu/b"}); err != nil {
		t.Fatalf("Failed to add to queue: %v", err)
	}

	has, err := storage.HasQueuedItems()
	if err != nil || !has {
		t.Errorf("Expected queued items, got %v, %v", has, err)
	}

	first, _ := storage.GetNextFromQueue()
	second, _ := storage.GetNextFromQueue()
	if first == nil || second == nil {
		t.Fatal("Expected two items")
	}

	queued, processing, _, _, _ = storage.GetQueueStatus()
	if queued != 0 || processing != 2 {
		t.Errorf("Expected queued=0, processing=2, got queued=%d, processing=%d", queued, processing)
	}

	// Processing items still count as outstanding work
	if has, _ := storage.HasQueuedItems(); !has {
		t.Error("Expected processing items to count as queued work")
	}

	if err := storage.CompletePage(first.ID, &crawler.PageOutcome{Visited: true, StatusCode: 200, Tokens: 900, Links: 4}); err != nil {
		t.Fatalf("Failed to complete page: %v", err)
	}
	if err := storage.CompletePage(second.ID, &crawler.PageOutcome{Reason: "bad_status", StatusCode: 404}); err != nil {
		t.Fatalf("Failed to complete page: %v", err)
	}

	queued, processing, done, failed, _ = storage.GetQueueStatus()
	if queued != 0 || processing != 0 || done != 1 || failed != 1 {
		t.Errorf("Expected 0/0/1/1, got %d/%d/%d/%d", queued, processing, done, failed)
	}

	if has, _ := storage.HasQueuedItems(); has {
		t.Error("Expected no outstanding work")
	}
}

func TestRejectionCounts(t *testing.T) {
	storage := newMemoryStorage(t)

	urls := []string{"https://ics.uci.edu/1", "https://ics.uci.edu/2", "https://ics.uci.edu/3", "https://ics.uci.edu/4"}
	if err := storage.AddToQueue(urls); err != nil {
		t.Fatalf("Failed to add to queue: %v", err)
	}

	outcomes := []*crawler.PageOutcome{
		{Reason: "too_short", StatusCode: 200},
		{Reason: "too_short", StatusCode: 200},
		{Reason: "fetch_failed", ErrorMessage: "connection refused"},
		{Visited: true, StatusCode: 200},
	}
	for _, outcome := range outcomes {
		item, err := storage.GetNextFromQueue()
		if err != nil || item == nil {
			t.Fatalf("Failed to get next from queue: %v", err)
		}
		if err := storage.CompletePage(item.ID, outcome); err != nil {
			t.Fatalf("Failed to complete page: %v", err)
		}
	}

	counts, err := storage.RejectionCounts()
	if err != nil {
		t.Fatalf("Failed to get rejection counts: %v", err)
	}

	expected := map[string]int{"too_short": 2, "fetch_failed": 1}
	if len(counts) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, counts)
	}
	for reason, n := range expected {
		if counts[reason] != n {
			t.Errorf("Reason %s: expected %d, got %d", reason, n, counts[reason])
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	storage := newMemoryStorage(t)

	snap := stats.Snapshot{
		UniqueURLs:  []string{"https://ics.uci.edu/a", "https://vision.ics.uci.edu/b"},
		LongestPage: stats.PageLength{URL: "https://ics.uci.edu/a", Tokens: 4200},
		TopTokens: []stats.TokenCount{
			{Token: "research", Count: 40},
			{Token: "computing", Count: 12},
			{Token: "algorithm", Count: 12},
		},
		Subdomains: []stats.SubdomainCount{
			{Host: "vision.ics.uci.edu", Count: 1},
			{Host: "ics.uci.edu", Count: 1},
		},
		Visited:      2,
		Invalid:      9,
		Fingerprints: 3,
	}

	if err := storage.SaveSnapshot(snap); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}
	// Saving twice replaces rather than appends
	if err := storage.SaveSnapshot(snap); err != nil {
		t.Fatalf("Failed to save snapshot again: %v", err)
	}

	got, err := storage.LoadSnapshot()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}

	if len(got.UniqueURLs) != 2 || got.UniqueURLs[0] != "https://ics.uci.edu/a" {
		t.Errorf("Unexpected unique URLs: %v", got.UniqueURLs)
	}
	if got.LongestPage != snap.LongestPage {
		t.Errorf("Expected longest page %+v, got %+v", snap.LongestPage, got.LongestPage)
	}

	expectedTokens := []string{"research", "algorithm", "computing"}
	if len(got.TopTokens) != len(expectedTokens) {
		t.Fatalf("Expected %d tokens, got %v", len(expectedTokens), got.TopTokens)
	}
	for i, token := range expectedTokens {
		if got.TopTokens[i].Token != token {
			t.Errorf("Token %d: expected %s, got %s", i, token, got.TopTokens[i].Token)
		}
	}

	if len(got.Subdomains) != 2 || got.Subdomains[0].Host != "ics.uci.edu" {
		t.Errorf("Expected subdomains sorted by host, got %v", got.Subdomains)
	}

	if got.Visited != 2 || got.Invalid != 9 || got.Fingerprints != 3 {
		t.Errorf("Unexpected counters: visited=%d invalid=%d fingerprints=%d", got.Visited, got.Invalid, got.Fingerprints)
	}
}

func TestSaveEmptySnapshot(t *testing.T) {
	storage := newMemoryStorage(t)

	if err := storage.SaveSnapshot(stats.Snapshot{}); err != nil {
		t.Fatalf("Failed to save empty snapshot: %v", err)
	}

	got, err := storage.LoadSnapshot()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if len(got.UniqueURLs) != 0 || got.LongestPage.URL != "" || len(got.TopTokens) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", got)
	}
}
