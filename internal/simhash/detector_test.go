package simhash

import (
	"sync"
	"testing"
)

func TestDetectorFirstNeverDuplicate(t *testing.T) {
	d := NewDetector(DefaultThreshold)

	if d.Check(Fingerprint(paragraph)) {
		t.Error("First fingerprint should never be a duplicate")
	}
	if d.Len() != 1 {
		t.Errorf("Expected 1 stored fingerprint, got %d", d.Len())
	}
}

func TestDetectorStoresDuplicates(t *testing.T) {
	d := NewDetector(DefaultThreshold)

	fp := Fingerprint(paragraph)
	d.Check(fp)
	if !d.Check(fp) {
		t.Error("Identical fingerprint should be a duplicate")
	}
	if d.Len() != 2 {
		t.Errorf("Expected both fingerprints stored, got %d", d.Len())
	}
}

func TestDetectorThreshold(t *testing.T) {
	d := NewDetector(2)
	d.Check(0)

	if !d.Check(0x3) {
		t.Error("Distance 2 should be a duplicate at threshold 2")
	}
	if d.Check(0xF0) {
		t.Error("Distance 4 should not be a duplicate at threshold 2")
	}
}

func TestDetectorNegativeThreshold(t *testing.T) {
	d := NewDetector(-3)
	if d.threshold != 0 {
		t.Errorf("Expected threshold clamped to 0, got %d", d.threshold)
	}
}

func TestDetectorConcurrent(t *testing.T) {
	d := NewDetector(0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	duplicates := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Check(42) {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if duplicates != 49 {
		t.Errorf("Expected exactly one original and 49 duplicates, got %d duplicates", duplicates)
	}
	if d.Len() != 50 {
		t.Errorf("Expected 50 stored fingerprints, got %d", d.Len())
	}
}
