package dedup

import (
	"github.com/cespare/xxhash/v2"
)

// Per-permutation affine mixing constants (splitmix64 / PCG increments).
const (
	permSeedMul = 0x517cc1b727220a95
	permSeedAdd = 0x9e3779b97f4a7c15
	mixMul      = 6364136223846793005
	mixAdd      = 1442695040888963407
)

// MinHasher computes fixed-length MinHash signatures over shingle sets.
// Each permutation combines a fast base hash with affine per-permutation
// coefficients; the signature is the vector of per-permutation minima.
type MinHasher struct {
	seeds []uint64
}

// NewMinHasher creates a MinHasher with the given number of independent
// permutations (default 128 if n <= 0).
func NewMinHasher(n int) *MinHasher {
	if n <= 0 {
		n = 128
	}
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = uint64(i)*permSeedMul + permSeedAdd
	}
	return &MinHasher{seeds: seeds}
}

// Permutations returns the signature length.
func (m *MinHasher) Permutations() int {
	return len(m.seeds)
}

// Signature computes the MinHash signature for a shingle set.
// Returns nil for an empty set.
func (m *MinHasher) Signature(shingles []string) []uint64 {
	if len(shingles) == 0 {
		return nil
	}

	sig := make([]uint64, len(m.seeds))
	for i := range sig {
		sig[i] = ^uint64(0)
	}

	for _, sh := range shingles {
		base := xxhash.Sum64String(sh)
		for i, seed := range m.seeds {
			h := (base ^ seed) * mixMul
			h += mixAdd
			if h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// EstimateJaccard estimates the Jaccard similarity of the underlying shingle
// sets as the fraction of matching signature positions. Signatures must come
// from the same MinHasher; mismatched lengths score 0.
func EstimateJaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	match := 0
	for i := range a {
		if a[i] == b[i] {
			match++
		}
	}
	return float64(match) / float64(len(a))
}
