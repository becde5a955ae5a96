package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/embed"
	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/lexical"
)

func buildChunk(id, sourceID, body string) *chunk.Chunk {
	return &chunk.Chunk{
		ID:        id,
		SourceID:  sourceID,
		Type:      chunk.TypeFacts,
		Lang:      chunk.LangEN,
		Stability: chunk.StabilityStable,
		Title:     "Fixture " + id,
		Body:      body,
		SummaryEN: "summary",
		SummaryZH: "摘要",
	}
}

func writeCorpus(t *testing.T, dir, name string, chunks []*chunk.Chunk) string {
	t.Helper()
	data, err := yaml.Marshal(chunks)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadCorpus_DirectoryDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "b.yaml", []*chunk.Chunk{buildChunk("c3", "s3", "third body text")})
	writeCorpus(t, dir, "a.yaml", []*chunk.Chunk{
		buildChunk("c1", "s1", "first body text"),
		buildChunk("c2", "s2", "second body text"),
	})

	chunks, hash, err := LoadCorpus(dir)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Sorted path order: a.yaml before b.yaml.
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "c2", chunks[1].ID)
	assert.Equal(t, "c3", chunks[2].ID)

	_, hash2, err := LoadCorpus(dir)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestLoadCorpus_SingleChunkDocument(t *testing.T) {
	dir := t.TempDir()
	data, err := yaml.Marshal(buildChunk("solo", "s1", "only body"))
	require.NoError(t, err)
	path := filepath.Join(dir, "solo.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	chunks, _, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "solo", chunks[0].ID)
}

func TestLoadCorpus_MissingPath(t *testing.T) {
	_, _, err := LoadCorpus(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func fixtureCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	dupA := buildChunk("dup-a", "src-dup", "Stake your tokens to earn rewards, the lockup period is seven days.")
	dupA.Title = "Staking basics"
	dupB := buildChunk("dup-b", "src-dup2", "Stake your tokens to earn rewards; the lockup period is seven days!")
	dupB.Title = "Staking basics"

	invalid := buildChunk("bad", "src-bad", "This chunk is missing a summary.")
	invalid.SummaryZH = ""

	bridge := buildChunk("bridge", "src-bridge", "Move assets between chains with the canonical bridge, transfers settle in minutes.")
	contract := buildChunk("contract", "src-contract", "The token contract address is 0x1234abcd5678 on mainnet for every integration.")

	writeCorpus(t, dir, "corpus.yaml", []*chunk.Chunk{dupA, dupB, invalid, bridge, contract})
	return dir
}

func TestBuild_FullPipeline(t *testing.T) {
	corpus := fixtureCorpus(t)
	dataDir := t.TempDir()

	var lastDone, lastTotal int
	p := NewPipeline(embed.NewStaticEmbedder(64), Options{
		DataDir: dataDir,
		Progress: func(done, total int) {
			lastDone, lastTotal = done, total
		},
	})

	res, err := p.Build(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 1, res.Suppressed)
	assert.Equal(t, 3, res.Kept)
	assert.False(t, res.Degraded)
	assert.NotEmpty(t, res.CorpusHash)
	assert.Equal(t, res.Kept, lastDone)
	assert.Equal(t, res.Kept, lastTotal)

	assert.FileExists(t, filepath.Join(dataDir, ArtifactFile))
	assert.FileExists(t, filepath.Join(dataDir, VectorFile))

	snap, err := LoadSnapshot(context.Background(), dataDir, lexical.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	assert.Len(t, snap.Chunks, 3)
	require.NotNil(t, snap.Vectors)
	assert.Equal(t, 3, snap.Vectors.Count())
	assert.Equal(t, 64, snap.EmbedDims)
	assert.Equal(t, "static-hash", snap.EmbedModel)
	assert.Equal(t, res.CorpusHash, snap.CorpusHash)

	// Exactly one of the near-duplicates survives.
	_, hasA := snap.Chunks["dup-a"]
	_, hasB := snap.Chunks["dup-b"]
	assert.True(t, hasA != hasB)

	tokens := snap.Lexical.Tokenizer().Tokenize("contract address 0x1234abcd5678")
	hits := snap.Lexical.Search(tokens, 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "contract", hits[0].DocID)

	stats := snap.Stats()
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 3, stats.Vectors)
	assert.True(t, stats.DenseReady)
	assert.Greater(t, stats.Vocabulary, 0)
}

func TestBuild_NoEmbedderIsLexicalOnly(t *testing.T) {
	corpus := fixtureCorpus(t)
	dataDir := t.TempDir()

	p := NewPipeline(nil, Options{DataDir: dataDir})
	res, err := p.Build(context.Background(), corpus)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.NoFileExists(t, filepath.Join(dataDir, VectorFile))

	snap, err := LoadSnapshot(context.Background(), dataDir, lexical.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	assert.Nil(t, snap.Vectors)
	assert.Zero(t, snap.EmbedDims)
	assert.False(t, snap.Stats().DenseReady)
	assert.True(t, snap.Lexical.Available())
}

func TestBuild_CountsLangMismatch(t *testing.T) {
	dir := t.TempDir()
	mislabeled := buildChunk("zh-body", "src-zh", "质押您的代币可以获得奖励。质押周期为七天，奖励每日发放，到期后可以随时解除质押。")
	english := buildChunk("en-body", "src-en", "Stake your tokens with a validator to earn daily rewards over each epoch.")
	writeCorpus(t, dir, "corpus.yaml", []*chunk.Chunk{mislabeled, english})

	p := NewPipeline(nil, Options{DataDir: t.TempDir()})
	res, err := p.Build(context.Background(), dir)
	require.NoError(t, err)

	// Mismatches are advisory: the chunk is counted, not excluded.
	assert.Equal(t, 1, res.LangMismatched)
	assert.Equal(t, 2, res.Kept)
}

func TestBuild_LockHeld(t *testing.T) {
	corpus := fixtureCorpus(t)
	dataDir := t.TempDir()

	held := flock.New(filepath.Join(dataDir, LockFile))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	p := NewPipeline(nil, Options{DataDir: dataDir})
	_, err = p.Build(context.Background(), corpus)
	require.Error(t, err)
	assert.Equal(t, coreerr.ErrCodeBuildLocked, coreerr.CodeOf(err))
}

func TestLoadSnapshot_MissingArtifact(t *testing.T) {
	_, err := LoadSnapshot(context.Background(), t.TempDir(), lexical.DefaultConfig(), nil)
	require.Error(t, err)
	assert.Equal(t, coreerr.ErrCodeIndexUnavailable, coreerr.CodeOf(err))
}
