package simhash

import "sync"

// Detector remembers fingerprints and flags near-duplicates among them.
// It is safe for concurrent use.
type Detector struct {
	mu           sync.Mutex
	threshold    int
	fingerprints []uint64
}

// NewDetector creates a detector that treats fingerprints within threshold
// bits of a known one as duplicates
func NewDetector(threshold int) *Detector {
	if threshold < 0 {
		threshold = 0
	}
	return &Detector{threshold: threshold}
}

// Check reports whether fp is within the threshold of any known fingerprint,
// then stores fp whatever the verdict. Both steps happen under one lock, so
// two concurrent near-duplicates cannot both pass.
func (d *Detector) Check(fp uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	duplicate := false
	for _, known := range d.fingerprints {
		if Similar(fp, known, d.threshold) {
			duplicate = true
			break
		}
	}

	d.fingerprints = append(d.fingerprints, fp)
	return duplicate
}

// Len returns the number of stored fingerprints, one per checked page
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fingerprints)
}
