package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorStore_AddAndSearch(t *testing.T) {
	s, err := NewVectorStore(DefaultVectorConfig(4))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	err = s.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0, 0},
			{0.9, 0.1, 0, 0},
			{0, 0, 0, 1},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	s, err := NewVectorStore(DefaultVectorConfig(4))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	err = s.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)

	_, err = s.Search(ctx, []float32{1, 0}, 5)
	assert.ErrorAs(t, err, &mismatch)
}

func TestVectorStore_DeleteIsLazy(t *testing.T) {
	s, err := NewVectorStore(DefaultVectorConfig(3))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Add(ctx,
		[]string{"keep", "drop"},
		[][]float32{{1, 0, 0}, {0.99, 0.01, 0}}))
	require.NoError(t, s.Delete(ctx, []string{"drop"}))

	assert.False(t, s.Contains("drop"))
	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "drop", r.ID)
	}
}

func TestVectorStore_VectorLookup(t *testing.T) {
	s, err := NewVectorStore(DefaultVectorConfig(2))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{3, 4}}))

	vec, ok := s.Vector("a")
	require.True(t, ok)
	// Stored normalized.
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-5)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-5)

	_, ok = s.Vector("missing")
	assert.False(t, ok)
}

func TestVectorStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s, err := NewVectorStore(DefaultVectorConfig(3))
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	dims, err := ReadStoredDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)

	restored, err := NewVectorStore(DefaultVectorConfig(3))
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()
	require.NoError(t, restored.Load(path))

	assert.Equal(t, 2, restored.Count())
	results, err := restored.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestReadStoredDimensions_Fresh(t *testing.T) {
	dims, err := ReadStoredDimensions(filepath.Join(t.TempDir(), "nope.hnsw"))
	require.NoError(t, err)
	assert.Zero(t, dims)
}
