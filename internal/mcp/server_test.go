package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/embed"
	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/glossary"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/search"
	"github.com/cognidex/cognidex/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	chunks := []*chunk.Chunk{
		{
			ID:       "staking",
			SourceID: "guide-staking",
			Type:     chunk.TypeHowto,
			Lang:     chunk.LangEN,
			Title:    "Staking guide",
			Body:     "Stake tokens to earn staking rewards over a seven day lockup.",
		},
		{
			ID:       "bridge",
			SourceID: "guide-bridge",
			Type:     chunk.TypeHowto,
			Lang:     chunk.LangEN,
			Title:    "Bridge guide",
			Body:     "Move assets between chains with the canonical bridge.",
		},
	}

	lookup := make(search.MapLookup, len(chunks))
	docs := make([]lexical.Document, 0, len(chunks))
	for _, c := range chunks {
		lookup[c.ID] = c
		docs = append(docs, lexical.Document{ID: c.ID, Content: c.IndexText()})
	}
	ix := lexical.NewIndex(lexical.DefaultConfig())
	ix.Build(docs)

	retriever, err := search.NewRetriever(ix, nil, nil, lookup)
	require.NoError(t, err)

	snap := &index.Snapshot{
		Chunks:  lookup,
		Lexical: ix,
	}

	s, err := NewServer(retriever, snap, "test", nil)
	require.NoError(t, err)
	return s
}

func TestRetrieveHandler(t *testing.T) {
	s := testServer(t)

	_, out, err := s.retrieveHandler(context.Background(), nil, RetrieveInput{
		Query:       "staking rewards",
		LexicalOnly: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	top := out.Results[0]
	assert.Equal(t, "staking", top.ChunkID)
	assert.Equal(t, "guide-staking", top.SourceID)
	assert.Greater(t, top.Score, 0.0)
	assert.InDelta(t, top.Score, top.Breakdown.Final, 1e-9)
	assert.False(t, out.Degraded)
	assert.Equal(t, glossary.LanguageEnglish, out.QueryLang)
}

func TestRetrieveHandler_EmptyQuery(t *testing.T) {
	s := testServer(t)

	_, _, err := s.retrieveHandler(context.Background(), nil, RetrieveInput{Query: "   "})
	require.Error(t, err)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidParams, pe.Code)
}

func TestRetrieveHandler_LexicalOnlyArtifactServesDegraded(t *testing.T) {
	s := testServer(t)

	// The fixture snapshot carries no vector store; retrieval still
	// answers, flagged degraded.
	_, out, err := s.retrieveHandler(context.Background(), nil, RetrieveInput{Query: "staking"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.True(t, out.Degraded)
}

func TestRetrieveHandler_NoEmbedderServesDegraded(t *testing.T) {
	chunks := []*chunk.Chunk{
		{
			ID:       "staking",
			SourceID: "guide-staking",
			Type:     chunk.TypeHowto,
			Lang:     chunk.LangEN,
			Title:    "Staking guide",
			Body:     "Stake tokens to earn staking rewards over a seven day lockup.",
		},
	}
	lookup := make(search.MapLookup, len(chunks))
	docs := make([]lexical.Document, 0, len(chunks))
	for _, c := range chunks {
		lookup[c.ID] = c
		docs = append(docs, lexical.Document{ID: c.ID, Content: c.IndexText()})
	}
	ix := lexical.NewIndex(lexical.DefaultConfig())
	ix.Build(docs)

	static := embed.NewStaticEmbedder(32)
	vectors, err := store.NewVectorStore(store.DefaultVectorConfig(32))
	require.NoError(t, err)
	vec, err := static.Embed(context.Background(), chunks[0].IndexText())
	require.NoError(t, err)
	require.NoError(t, vectors.Add(context.Background(), []string{"staking"}, [][]float32{vec}))

	// Vectors present but no embedding backend wired: results are
	// lexical-only and flagged.
	retriever, err := search.NewRetriever(ix, vectors, nil, lookup)
	require.NoError(t, err)
	s, err := NewServer(retriever, &index.Snapshot{Chunks: lookup, Lexical: ix, Vectors: vectors}, "test", nil)
	require.NoError(t, err)

	_, out, err := s.retrieveHandler(context.Background(), nil, RetrieveInput{Query: "staking rewards"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.True(t, out.Degraded)
}

func TestRetrieveHandler_UnbuiltIndex(t *testing.T) {
	ix := lexical.NewIndex(lexical.DefaultConfig())
	retriever, err := search.NewRetriever(ix, nil, nil, search.MapLookup{})
	require.NoError(t, err)

	s, err := NewServer(retriever, &index.Snapshot{Lexical: ix}, "test", nil)
	require.NoError(t, err)

	_, _, err = s.retrieveHandler(context.Background(), nil, RetrieveInput{Query: "staking"})
	require.Error(t, err)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeIndexUnavailable, pe.Code)
}

func TestStatusHandler(t *testing.T) {
	s := testServer(t)

	_, stats, err := s.statusHandler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Sources)
	assert.False(t, stats.DenseReady)
	assert.Greater(t, stats.Vocabulary, 0)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(nil))

	pe := MapError(coreerr.IndexUnavailable("no index"))
	assert.Equal(t, ErrCodeIndexUnavailable, pe.Code)

	pe = MapError(coreerr.ValidationError("bad query", nil))
	assert.Equal(t, ErrCodeInvalidParams, pe.Code)

	pe = MapError(context.DeadlineExceeded)
	assert.Equal(t, ErrCodeTimeout, pe.Code)

	pe = MapError(errors.New("boom"))
	assert.Equal(t, ErrCodeInternalError, pe.Code)
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(nil, &index.Snapshot{}, "test", nil)
	require.Error(t, err)
}
