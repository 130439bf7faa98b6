package stats

import (
	"fmt"
	"sync"
	"testing"
)

func TestVisitedInvalidDisjoint(t *testing.T) {
	s := New(5)

	if !s.MarkVisited("https://ics.uci.edu/a") {
		t.Fatal("Expected first MarkVisited to succeed")
	}
	if s.MarkInvalid("https://ics.uci.edu/a") {
		t.Error("MarkInvalid should refuse a visited URL")
	}

	if !s.MarkInvalid("https://ics.uci.edu/b") {
		t.Fatal("Expected first MarkInvalid to succeed")
	}
	if s.MarkVisited("https://ics.uci.edu/b") {
		t.Error("MarkVisited should refuse an invalid URL")
	}

	if s.MarkVisited("https://ics.uci.edu/a") {
		t.Error("MarkVisited should report an already visited URL")
	}

	if !s.IsVisited("https://ics.uci.edu/a") || s.IsInvalid("https://ics.uci.edu/a") {
		t.Error("Expected /a visited only")
	}
	if !s.IsInvalid("https://ics.uci.edu/b") || s.IsVisited("https://ics.uci.edu/b") {
		t.Error("Expected /b invalid only")
	}

	if s.VisitedCount() != 1 || s.InvalidCount() != 1 {
		t.Errorf("Expected 1 visited and 1 invalid, got %d and %d", s.VisitedCount(), s.InvalidCount())
	}
}

func TestIsKnown(t *testing.T) {
	s := New(5)
	s.MarkVisited("https://ics.uci.edu/a")
	s.MarkInvalid("https://ics.uci.edu/b")

	if !s.IsKnown("https://ics.uci.edu/a") || !s.IsKnown("https://ics.uci.edu/b") {
		t.Error("Expected visited and invalid URLs to be known")
	}
	if s.IsKnown("https://ics.uci.edu/c") {
		t.Error("Expected unseen URL to be unknown")
	}
}

func TestAddUniqueCountsSubdomainOnce(t *testing.T) {
	s := New(5)

	if !s.AddUnique("https://vision.ics.uci.edu/a", "vision.ics.uci.edu") {
		t.Error("Expected new unique URL")
	}
	if s.AddUnique("https://vision.ics.uci.edu/a", "vision.ics.uci.edu") {
		t.Error("Expected repeated URL not to be new")
	}
	s.AddUnique("https://vision.ics.uci.edu/b", "vision.ics.uci.edu")
	s.AddUnique("https://ics.uci.edu/c", "ics.uci.edu")
	s.AddUnique("https://example.org/d", "")

	if s.UniqueCount() != 4 {
		t.Errorf("Expected 4 unique URLs, got %d", s.UniqueCount())
	}

	subs := s.Subdomains()
	expected := []SubdomainCount{
		{Host: "ics.uci.edu", Count: 1},
		{Host: "vision.ics.uci.edu", Count: 2},
	}
	if len(subs) != len(expected) {
		t.Fatalf("Expected %d subdomains, got %v", len(expected), subs)
	}
	for i := range expected {
		if subs[i] != expected[i] {
			t.Errorf("Subdomain %d: expected %+v, got %+v", i, expected[i], subs[i])
		}
	}

	urls := s.UniqueURLs()
	if urls[0] != "https://example.org/d" || urls[3] != "https://vision.ics.uci.edu/b" {
		t.Errorf("Expected sorted unique URLs, got %v", urls)
	}
}

func TestUpdateLongestPage(t *testing.T) {
	s := New(5)

	if !s.UpdateLongestPage("https://a", 10) {
		t.Error("Expected first page to become longest")
	}
	if s.UpdateLongestPage("https://b", 10) {
		t.Error("Expected tie to keep the first page")
	}
	if s.UpdateLongestPage("https://c", 5) {
		t.Error("Expected shorter page to be ignored")
	}
	if !s.UpdateLongestPage("https://d", 11) {
		t.Error("Expected longer page to replace")
	}

	if got := s.LongestPage(); got.URL != "https://d" || got.Tokens != 11 {
		t.Errorf("Expected https://d with 11 tokens, got %+v", got)
	}
}

func TestUpdateLongestPageConcurrent(t *testing.T) {
	s := New(5)

	var wg sync.WaitGroup
	for i := 1; i <= 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.UpdateLongestPage(fmt.Sprintf("https://p/%d", n), n)
		}(i)
	}
	wg.Wait()

	if got := s.LongestPage(); got.Tokens != 200 || got.URL != "https://p/200" {
		t.Errorf("Expected maximum page 200, got %+v", got)
	}
}

func TestAddTokensConcurrent(t *testing.T) {
	s := New(5)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddTokens(map[string]int{"crawler": 2, "index": 1})
		}()
	}
	wg.Wait()

	if got := s.TokenFrequency("crawler"); got != 200 {
		t.Errorf("Expected crawler count 200, got %d", got)
	}
	if got := s.TokenFrequency("index"); got != 100 {
		t.Errorf("Expected index count 100, got %d", got)
	}
}

func TestTopTokens(t *testing.T) {
	s := New(5)
	s.AddTokens(map[string]int{"the": 50, "crawler": 10, "apple": 7, "banana": 7, "zebra": 1})

	stop := map[string]struct{}{"the": {}}
	top := s.TopTokens(3, stop)

	expected := []TokenCount{
		{Token: "crawler", Count: 10},
		{Token: "apple", Count: 7},
		{Token: "banana", Count: 7},
	}
	if len(top) != len(expected) {
		t.Fatalf("Expected %d tokens, got %v", len(expected), top)
	}
	for i := range expected {
		if top[i] != expected[i] {
			t.Errorf("Token %d: expected %+v, got %+v", i, expected[i], top[i])
		}
	}

	// Stop-words are excluded from the report only
	if s.TokenFrequency("the") != 50 {
		t.Error("Stop-words must still be counted")
	}

	if all := s.TopTokens(0, nil); len(all) != 5 {
		t.Errorf("Expected all 5 tokens for n=0, got %d", len(all))
	}
}

func TestCheckFingerprint(t *testing.T) {
	s := New(5)

	if s.CheckFingerprint(0xABCD) {
		t.Error("First fingerprint should not be a duplicate")
	}
	if !s.CheckFingerprint(0xABCD) {
		t.Error("Same fingerprint should be a duplicate")
	}
	if s.FingerprintCount() != 2 {
		t.Errorf("Expected 2 fingerprints, got %d", s.FingerprintCount())
	}
}

func TestSnapshot(t *testing.T) {
	s := New(5)
	s.MarkVisited("https://ics.uci.edu/a")
	s.MarkInvalid("https://ics.uci.edu/b")
	s.AddUnique("https://ics.uci.edu/a", "ics.uci.edu")
	s.UpdateLongestPage("https://ics.uci.edu/a", 42)
	s.AddTokens(map[string]int{"informatics": 3})
	s.CheckFingerprint(1)

	snap := s.Snapshot(10, nil)
	if snap.Visited != 1 || snap.Invalid != 1 || snap.Fingerprints != 1 {
		t.Errorf("Unexpected counters: %+v", snap)
	}
	if len(snap.UniqueURLs) != 1 || snap.LongestPage.Tokens != 42 {
		t.Errorf("Unexpected snapshot content: %+v", snap)
	}
	if len(snap.TopTokens) != 1 || snap.TopTokens[0].Token != "informatics" {
		t.Errorf("Unexpected top tokens: %+v", snap.TopTokens)
	}
	if len(snap.Subdomains) != 1 || snap.Subdomains[0].Host != "ics.uci.edu" {
		t.Errorf("Unexpected subdomains: %+v", snap.Subdomains)
	}
}
