// Package simhash computes 64-bit locality-sensitive fingerprints of text.
// Texts that differ slightly produce fingerprints that differ in few bits,
// so the Hamming distance between two fingerprints approximates how
// dissimilar the texts are.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"regexp"
	"strings"
)

// ShingleSize is the number of consecutive words hashed as one feature
const ShingleSize = 3

// DefaultThreshold is the largest distance still treated as a near-duplicate
const DefaultThreshold = 5

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

// Fingerprint returns the simhash of text. Empty text hashes to 0.
func Fingerprint(text string) uint64 {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for feature, weight := range shingles(words) {
		h := hashFeature(feature)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				vector[i] += weight
			} else {
				vector[i] -= weight
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the number of differing bits between a and b
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// shingles counts every ShingleSize-word window. Texts shorter than one
// window yield a single shingle of all their words.
func shingles(words []string) map[string]int {
	counts := make(map[string]int)
	if len(words) < ShingleSize {
		counts[strings.Join(words, " ")]++
		return counts
	}

	for i := 0; i+ShingleSize <= len(words); i++ {
		counts[strings.Join(words[i:i+ShingleSize], " ")]++
	}
	return counts
}

// hashFeature is FNV-1a followed by the splitmix64 finalizer; raw FNV
// low bits depend on little more than the byte parities.
func hashFeature(feature string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))

	x := h.Sum64()
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
