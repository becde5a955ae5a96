package dedup

import (
	"math"
	"math/bits"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// simHashBits is the fixed fingerprint width. A fixed-width unsigned integer
// with popcount/XOR keeps comparisons bounded and fast.
const simHashBits = 64

// SimHash computes a 64-bit term-frequency-weighted fingerprint of the text.
// Each term adds or subtracts its TF-log weight at every bit position
// depending on that bit of the term's hash; bit i of the result is set when
// the accumulated weight at position i is positive. Returns 0 for empty text.
func SimHash(text string) uint64 {
	terms := strings.Fields(normalizeText(text))
	if len(terms) == 0 {
		return 0
	}

	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}

	var acc [simHashBits]float64
	for term, count := range tf {
		weight := 1 + math.Log(float64(count))
		h := xxhash.Sum64String(term)
		for i := 0; i < simHashBits; i++ {
			if h&(1<<uint(i)) != 0 {
				acc[i] += weight
			} else {
				acc[i] -= weight
			}
		}
	}

	var fp uint64
	for i := 0; i < simHashBits; i++ {
		if acc[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// SimHashSimilarity converts Hamming distance to a 0-1 similarity:
// 1 - distance/width.
func SimHashSimilarity(a, b uint64) float64 {
	dist := bits.OnesCount64(a ^ b)
	return 1 - float64(dist)/float64(simHashBits)
}
