package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognidex/cognidex/internal/chunk"
)

func artifactChunk(id, sourceID string) *chunk.Chunk {
	return &chunk.Chunk{
		ID:        id,
		SourceID:  sourceID,
		Type:      chunk.TypeFacts,
		Lang:      chunk.LangEN,
		Stability: chunk.StabilityStable,
		Title:     "title " + id,
		Body:      "body " + id,
		SummaryEN: "en",
		SummaryZH: "zh",
	}
}

func TestArtifactStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := OpenArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	c := artifactChunk("c1", "src-1")
	records := []Record{
		{ID: "c1", Text: c.IndexText(), Embedding: []float32{0.1, -0.5, 0.9}, Chunk: c, Hash: "h1"},
		{ID: "c2", Text: "t2", Chunk: artifactChunk("c2", "src-2"), Hash: "h2"},
	}
	require.NoError(t, s.ReplaceAll(ctx, records))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "c1", loaded[0].ID)
	assert.Equal(t, []float32{0.1, -0.5, 0.9}, loaded[0].Embedding)
	assert.Equal(t, "src-1", loaded[0].Chunk.SourceID)
	assert.Nil(t, loaded[1].Embedding)

	rec, err := s.Get(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h2", rec.Hash)

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestArtifactStore_ReplaceAllIsWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := OpenArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, []Record{
		{ID: "old", Text: "t", Chunk: artifactChunk("old", "s"), Hash: "h"},
	}))
	require.NoError(t, s.ReplaceAll(ctx, []Record{
		{ID: "new", Text: "t", Chunk: artifactChunk("new", "s"), Hash: "h"},
	}))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].ID)
}

func TestArtifactStore_State(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := OpenArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.SetState(ctx, StateEmbedModel, "bge-m3"))
	require.NoError(t, s.SetState(ctx, StateEmbedDims, "768"))
	require.NoError(t, s.SetState(ctx, StateEmbedModel, "static-hash"))

	model, err := s.GetState(ctx, StateEmbedModel)
	require.NoError(t, err)
	assert.Equal(t, "static-hash", model)

	missing, err := s.GetState(ctx, "unset")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestArtifactStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")

	s, err := OpenArtifactStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(context.Background(), []Record{
		{ID: "c", Text: "t", Chunk: artifactChunk("c", "s"), Hash: "h"},
	}))
	require.NoError(t, s.Close())

	reopened, err := OpenArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
