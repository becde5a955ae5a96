package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/search"
	"github.com/cognidex/cognidex/internal/store"
)

// Snapshot is a loaded, immutable index: everything the retriever needs to
// serve queries. Vectors is nil when the artifact was built lexical-only or
// the vector file failed validation; serving continues without the dense
// path.
type Snapshot struct {
	Artifact *store.ArtifactStore
	Chunks   search.MapLookup
	Lexical  *lexical.Index
	Vectors  *store.VectorStore

	EmbedModel string
	EmbedDims  int
	CorpusHash string
	BuiltAt    string
}

// LoadSnapshot opens the artifacts under dataDir and reconstructs the
// serving state. The lexical index is rebuilt from the stored index text;
// the vector store is loaded from its file and validated against the
// stamped embedding dimension.
func LoadSnapshot(ctx context.Context, dataDir string, lexCfg lexical.Config, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	artifactPath := filepath.Join(dataDir, ArtifactFile)
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, coreerr.IndexUnavailable("no index artifact found").
			WithDetail("path", artifactPath)
	}
	artifact, err := store.OpenArtifactStore(artifactPath)
	if err != nil {
		return nil, err
	}

	records, err := artifact.LoadAll(ctx)
	if err != nil {
		_ = artifact.Close()
		return nil, err
	}
	if len(records) == 0 {
		_ = artifact.Close()
		return nil, coreerr.IndexUnavailable("index artifact is empty").
			WithDetail("path", artifactPath)
	}

	snap := &Snapshot{
		Artifact: artifact,
		Chunks:   make(search.MapLookup, len(records)),
		Lexical:  lexical.NewIndex(lexCfg),
	}
	docs := make([]lexical.Document, 0, len(records))
	for _, rec := range records {
		snap.Chunks[rec.ID] = rec.Chunk
		docs = append(docs, lexical.Document{ID: rec.ID, Content: rec.Text})
	}
	snap.Lexical.Build(docs)

	snap.EmbedModel, _ = artifact.GetState(ctx, store.StateEmbedModel)
	snap.CorpusHash, _ = artifact.GetState(ctx, store.StateCorpusHash)
	snap.BuiltAt, _ = artifact.GetState(ctx, store.StateBuiltAt)
	if dims, err := artifact.GetState(ctx, store.StateEmbedDims); err == nil {
		snap.EmbedDims, _ = strconv.Atoi(dims)
	}

	snap.Vectors = loadVectors(dataDir, snap.EmbedDims, logger)

	logger.Info("snapshot_loaded",
		slog.Int("chunks", len(records)),
		slog.Int("vocabulary", snap.Lexical.TermCount()),
		slog.Bool("dense", snap.Vectors != nil),
		slog.String("embed_model", snap.EmbedModel),
		slog.String("built_at", snap.BuiltAt))
	return snap, nil
}

// loadVectors opens the vector file when the stamps say one should exist.
// Any mismatch or load failure disables the dense path rather than failing
// the snapshot.
func loadVectors(dataDir string, stampedDims int, logger *slog.Logger) *store.VectorStore {
	if stampedDims <= 0 {
		return nil
	}
	path := filepath.Join(dataDir, VectorFile)
	if _, err := os.Stat(path); err != nil {
		logger.Warn("vector_file_missing_serving_lexical_only",
			slog.String("path", path))
		return nil
	}

	storedDims, err := store.ReadStoredDimensions(path)
	if err != nil {
		logger.Warn("vector_metadata_unreadable_serving_lexical_only",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	if storedDims != stampedDims {
		logger.Warn("vector_dimension_mismatch_serving_lexical_only",
			slog.Int("stamped", stampedDims),
			slog.Int("stored", storedDims))
		return nil
	}

	vectors, err := store.NewVectorStore(store.DefaultVectorConfig(stampedDims))
	if err != nil {
		logger.Warn("vector_store_init_failed_serving_lexical_only",
			slog.String("error", err.Error()))
		return nil
	}
	if err := vectors.Load(path); err != nil {
		logger.Warn("vector_store_load_failed_serving_lexical_only",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	return vectors
}

// Close releases the snapshot's resources.
func (s *Snapshot) Close() error {
	if s.Vectors != nil {
		_ = s.Vectors.Close()
	}
	return s.Artifact.Close()
}
