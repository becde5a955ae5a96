// Package dedup detects near-duplicate chunks at index-build time using
// shingling, MinHash signatures and SimHash fingerprints, and keeps one
// representative per duplicate cluster. It also provides the query-time
// source-level dedup pass over retrieval results.
package dedup

import (
	"strings"
	"unicode"
)

// normalizeText lowercases, strips punctuation and collapses whitespace so
// that chunks differing only in formatting shingle identically.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// Punctuation and symbols become word boundaries.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Shingles extracts word n-grams of the given size from normalized text.
// For short texts (fewer words than 2x the shingle size) character n-grams
// are added as well, so degenerate-but-nonempty texts still produce a set.
// Returns an empty slice for empty or fully-degenerate input.
func Shingles(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	norm := normalizeText(text)
	if norm == "" {
		return nil
	}

	words := strings.Fields(norm)
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if len(words) >= size {
		for i := 0; i+size <= len(words); i++ {
			add(strings.Join(words[i:i+size], " "))
		}
	}

	if len(words) < 2*size {
		// Character n-grams over the de-spaced text
		runes := []rune(strings.ReplaceAll(norm, " ", ""))
		if len(runes) < size {
			if len(runes) > 0 {
				add(string(runes))
			}
			return out
		}
		for i := 0; i+size <= len(runes); i++ {
			add(string(runes[i : i+size]))
		}
	}

	return out
}
