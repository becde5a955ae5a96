package embed

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// StaticEmbedder is a deterministic, dependency-free fallback backend: each
// token and character trigram hashes to a handful of vector positions. It
// captures lexical overlap only, but keeps the dense path alive when no real
// model is reachable, and gives tests a hermetic embedder.
type StaticEmbedder struct {
	dims int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder. dims <= 0 selects
// StaticDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed hashes text features into a unit vector. Identical input always
// produces the identical vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dims)
	if strings.TrimSpace(text) == "" {
		return vec, nil
	}

	for _, feature := range e.features(text) {
		h := xxhash.Sum64String(feature)
		// Three positions per feature, sign taken from a high bit.
		for k := 0; k < 3; k++ {
			pos := int((h >> (k * 16)) % uint64(e.dims))
			if h>>(48+k)&1 == 0 {
				vec[pos]++
			} else {
				vec[pos]--
			}
		}
	}
	return Normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// features extracts lowercased word tokens plus character trigrams, so both
// Latin words and CJK runs contribute signal.
func (e *StaticEmbedder) features(text string) []string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	features := make([]string, 0, len(words)*2)
	features = append(features, words...)
	for _, w := range words {
		runes := []rune(w)
		for i := 0; i+3 <= len(runes); i++ {
			features = append(features, "tri:"+string(runes[i:i+3]))
		}
	}
	return features
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return "static-hash" }

// Available always reports true.
func (e *StaticEmbedder) Available(ctx context.Context) bool { return true }

// Close is a no-op.
func (e *StaticEmbedder) Close() error { return nil }
