package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/store"
)

func TestFuse_MergesByChunkID(t *testing.T) {
	dense := []*store.VectorResult{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.5},
	}
	lex := []lexical.Result{
		{DocID: "b", Score: 4.0, MatchedTerms: []string{"staking"}},
		{DocID: "c", Score: 2.0, MatchedTerms: []string{"bridge"}},
	}

	out := fuse(dense, lex, 0.7)
	require.Len(t, out, 3)

	byID := make(map[string]*fused)
	for _, f := range out {
		byID[f.chunkID] = f
	}

	// b appears once with both channels populated; lexical max-normalized.
	assert.InDelta(t, 0.5, byID["b"].denseScore, 1e-9)
	assert.InDelta(t, 1.0, byID["b"].lexicalScore, 1e-9)
	assert.Equal(t, []string{"staking"}, byID["b"].matchedTerms)

	assert.InDelta(t, 0.9, byID["a"].denseScore, 1e-9)
	assert.Zero(t, byID["a"].lexicalScore)

	assert.Zero(t, byID["c"].denseScore)
	assert.InDelta(t, 0.5, byID["c"].lexicalScore, 1e-9)
}

func TestFuse_BlendAndOrdering(t *testing.T) {
	dense := []*store.VectorResult{{ID: "a", Score: 0.8}}
	lex := []lexical.Result{{DocID: "b", Score: 3.0}}

	out := fuse(dense, lex, 0.7)
	require.Len(t, out, 2)

	// a: 0.7*0.8 = 0.56, b: 0.3*1.0 = 0.30.
	assert.Equal(t, "a", out[0].chunkID)
	assert.InDelta(t, 0.56, out[0].fusionScore, 1e-9)
	assert.Equal(t, "b", out[1].chunkID)
	assert.InDelta(t, 0.30, out[1].fusionScore, 1e-9)
}

func TestFuse_LexicalOnlyDegraded(t *testing.T) {
	lex := []lexical.Result{
		{DocID: "a", Score: 5.0},
		{DocID: "b", Score: 1.0},
	}

	// Degraded queries fuse with dense weight 0.
	out := fuse(nil, lex, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunkID)
	assert.InDelta(t, 1.0, out[0].fusionScore, 1e-9)
	assert.InDelta(t, 0.2, out[1].fusionScore, 1e-9)
}

func TestFuse_TieBreakPreservesInsertionOrder(t *testing.T) {
	dense := []*store.VectorResult{
		{ID: "first", Score: 0.4},
		{ID: "second", Score: 0.4},
	}

	out := fuse(dense, nil, 1.0)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].chunkID)
	assert.Equal(t, "second", out[1].chunkID)
}

func TestRerank_BlendsCosineOverFusion(t *testing.T) {
	candidates := []*fused{
		{chunkID: "far", fusionScore: 0.9},
		{chunkID: "near", fusionScore: 0.5},
	}
	query := []float32{1, 0}
	vecs := map[string][]float32{
		"near": {1, 0},
		"far":  {0, 1},
	}
	lookup := func(id string) ([]float32, bool) {
		v, ok := vecs[id]
		return v, ok
	}

	out := rerank(candidates, query, lookup, 0, 10)
	require.Len(t, out, 2)

	// near: 0.3*0.5 + 0.7*1.0 = 0.85; far: 0.3*0.9 + 0.7*0 = 0.27.
	assert.Equal(t, "near", out[0].chunkID)
	assert.InDelta(t, 0.85, out[0].finalScore, 1e-9)
	assert.Equal(t, "far", out[1].chunkID)
	assert.InDelta(t, 0.27, out[1].finalScore, 1e-9)

	// The fusion component survives for score breakdowns.
	assert.InDelta(t, 0.5, out[0].fusionScore, 1e-9)
}

func TestRerank_MissingEmbeddingKeepsFusionScore(t *testing.T) {
	candidates := []*fused{{chunkID: "a", fusionScore: 0.6}}
	lookup := func(string) ([]float32, bool) { return nil, false }

	out := rerank(candidates, []float32{1, 0}, lookup, 0, 10)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.6, out[0].finalScore, 1e-9)
}

func TestRerank_NilQueryEmbeddingKeepsFusionOrder(t *testing.T) {
	candidates := []*fused{
		{chunkID: "a", fusionScore: 0.8},
		{chunkID: "b", fusionScore: 0.4},
	}

	out := rerank(candidates, nil, nil, 0, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunkID)
	assert.InDelta(t, 0.8, out[0].finalScore, 1e-9)
}

func TestRerank_MinScoreAndTopK(t *testing.T) {
	candidates := []*fused{
		{chunkID: "a", fusionScore: 0.9},
		{chunkID: "b", fusionScore: 0.5},
		{chunkID: "c", fusionScore: 0.05},
	}

	out := rerank(candidates, nil, nil, 0.1, 1)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].chunkID)
}
