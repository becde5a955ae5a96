package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/dedup"
	"github.com/cognidex/cognidex/internal/embed"
	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/store"
)

// Artifact file names under the data directory.
const (
	ArtifactFile = "artifact.db"
	VectorFile   = "vectors.hnsw"
	LockFile     = "build.lock"
)

// DefaultBuildBatchSize is the embedding batch size per round.
const DefaultBuildBatchSize = 32

// Options configures a build pipeline.
type Options struct {
	// DataDir receives the artifact database and vector file.
	DataDir string
	// Dedup configures near-duplicate clustering.
	Dedup dedup.Config
	// SizeBounds are the advisory per-language size limits.
	SizeBounds chunk.SizeBounds
	// BatchSize is the embedding batch size (default 32).
	BatchSize int
	// Workers bounds embedding batch concurrency (default 1).
	Workers int
	// Progress receives (completed, total) embedding counts.
	Progress embed.ProgressFunc
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Pipeline builds the index artifact from an authored corpus.
type Pipeline struct {
	embedder embed.Embedder
	deduper  *dedup.Engine
	sizer    *chunk.Sizer
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates a build pipeline. The embedder may be nil, producing a
// lexical-only artifact.
func NewPipeline(embedder embed.Embedder, opts Options) *Pipeline {
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	bounds := opts.SizeBounds
	if bounds.MaxENTokens == 0 && bounds.MaxZHChars == 0 {
		bounds = chunk.DefaultSizeBounds()
	}
	return &Pipeline{
		embedder: embedder,
		deduper:  dedup.NewEngine(opts.Dedup),
		sizer:    chunk.NewSizer(bounds),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// StageTimings records per-stage build durations.
type StageTimings struct {
	Load    time.Duration
	Hygiene time.Duration
	Dedup   time.Duration
	Embed   time.Duration
	Persist time.Duration
}

// BuildResult summarizes one build.
type BuildResult struct {
	// Total is the authored chunk count.
	Total int
	// Invalid chunks failed validation and were excluded.
	Invalid int
	// Oversized chunks violated advisory size bounds (still indexed).
	Oversized int
	// LangMismatched chunks declared one language but detect as the
	// other (still indexed).
	LangMismatched int
	// Suppressed chunks were dropped as near-duplicates.
	Suppressed int
	// Kept is the indexed chunk count.
	Kept int
	// Degraded is true when embedding failed and the artifact is
	// lexical-only.
	Degraded bool
	// CorpusHash identifies the corpus version that was built.
	CorpusHash string
	Duration   time.Duration
	Timings    StageTimings
}

// Build runs the full pipeline: load, hygiene, dedup, embed, persist.
// Exactly one build may run against a data directory at a time; a held lock
// is a fatal error, not a wait.
func (p *Pipeline) Build(ctx context.Context, corpusPath string) (*BuildResult, error) {
	start := time.Now()

	if err := os.MkdirAll(p.opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(p.opts.DataDir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return nil, coreerr.New(coreerr.ErrCodeBuildLocked,
			"another build holds the lock", nil).
			WithDetail("data_dir", p.opts.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	res := &BuildResult{}

	loadStart := time.Now()
	chunks, corpusHash, err := LoadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}
	res.Timings.Load = time.Since(loadStart)
	res.Total = len(chunks)
	res.CorpusHash = corpusHash
	p.logger.Info("build_corpus_loaded",
		slog.Int("chunks", len(chunks)),
		slog.String("corpus_hash", corpusHash[:12]),
		slog.String("path", corpusPath))

	hygieneStart := time.Now()
	valid := p.hygiene(chunks, res)
	res.Timings.Hygiene = time.Since(hygieneStart)
	if len(valid) == 0 {
		return nil, coreerr.ValidationError("no valid chunks in corpus", nil)
	}

	dedupStart := time.Now()
	clustered, err := p.deduper.Cluster(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("cluster corpus: %w", err)
	}
	res.Timings.Dedup = time.Since(dedupStart)
	res.Suppressed = len(clustered.Suppressed)
	res.Kept = len(clustered.Kept)
	p.logger.Info("build_dedup_complete",
		slog.Int("kept", len(clustered.Kept)),
		slog.Int("suppressed", len(clustered.Suppressed)),
		slog.Int("clusters", len(clustered.Clusters)),
		slog.Int("skipped", len(clustered.Skipped)))

	embedStart := time.Now()
	embeddings := p.embedAll(ctx, clustered.Kept, res)
	res.Timings.Embed = time.Since(embedStart)

	persistStart := time.Now()
	if err := p.persist(ctx, clustered.Kept, embeddings, corpusHash, res.Degraded); err != nil {
		return nil, err
	}
	res.Timings.Persist = time.Since(persistStart)

	res.Duration = time.Since(start)
	p.logger.Info("build_complete",
		slog.Int("total", res.Total),
		slog.Int("invalid", res.Invalid),
		slog.Int("suppressed", res.Suppressed),
		slog.Int("indexed", res.Kept),
		slog.Bool("degraded", res.Degraded),
		slog.Duration("duration", res.Duration),
		slog.Int64("load_ms", res.Timings.Load.Milliseconds()),
		slog.Int64("hygiene_ms", res.Timings.Hygiene.Milliseconds()),
		slog.Int64("dedup_ms", res.Timings.Dedup.Milliseconds()),
		slog.Int64("embed_ms", res.Timings.Embed.Milliseconds()),
		slog.Int64("persist_ms", res.Timings.Persist.Milliseconds()))
	return res, nil
}

// hygiene validates, measures, and hashes every chunk. Invalid chunks are
// excluded from the build; size violations and declared-language mismatches
// are advisory and only logged.
func (p *Pipeline) hygiene(chunks []*chunk.Chunk, res *BuildResult) []*chunk.Chunk {
	valid := make([]*chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		check := chunk.Validate(c)
		if !check.Valid() {
			res.Invalid++
			fields := make([]string, 0, len(check.Violations))
			for _, v := range check.Violations {
				fields = append(fields, v.String())
			}
			p.logger.Warn("chunk_rejected",
				slog.String("chunk", c.ID),
				slog.Any("violations", fields))
			continue
		}

		report := p.sizer.MeasureSize(c)
		c.TokenCount = report.TokenCount
		c.CharCount = report.CharCount
		if report.Flag != chunk.SizeOK {
			res.Oversized++
			p.logger.Warn("chunk_size_violation",
				slog.String("chunk", c.ID),
				slog.String("flag", string(report.Flag)),
				slog.Int("tokens", report.TokenCount),
				slog.Int("chars", report.CharCount))
		}

		if lang := chunk.CheckLang(c); lang.Mismatch {
			res.LangMismatched++
			p.logger.Warn("chunk_lang_mismatch",
				slog.String("chunk", c.ID),
				slog.String("declared", string(lang.Declared)),
				slog.String("detected", string(lang.Detected)))
		}

		c.Hash = chunk.ComputeHash(c)
		valid = append(valid, c)
	}
	return valid
}

// embedAll generates embeddings for the kept chunks. Embedding is a
// collaborator: failure degrades the build to lexical-only instead of
// aborting it.
func (p *Pipeline) embedAll(ctx context.Context, chunks []*chunk.Chunk, res *BuildResult) [][]float32 {
	if p.embedder == nil {
		res.Degraded = true
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.IndexText()
	}

	batcher := embed.NewBatcher(p.embedder, p.opts.BatchSize, p.opts.Workers)
	vecs, err := batcher.EmbedAll(ctx, texts, p.opts.Progress)
	if err != nil {
		res.Degraded = true
		p.logger.Warn("build_embedding_degraded",
			slog.String("model", p.embedder.ModelName()),
			slog.String("error", err.Error()))
		return nil
	}
	return vecs
}

// persist writes the artifact database and, for non-degraded builds, the
// vector file, stamping the embedding model and dimension for load-time
// validation.
func (p *Pipeline) persist(ctx context.Context, chunks []*chunk.Chunk, embeddings [][]float32, corpusHash string, degraded bool) error {
	artifact, err := store.OpenArtifactStore(filepath.Join(p.opts.DataDir, ArtifactFile))
	if err != nil {
		return err
	}
	defer func() { _ = artifact.Close() }()

	records := make([]store.Record, len(chunks))
	for i, c := range chunks {
		rec := store.Record{
			ID:    c.ID,
			Text:  c.IndexText(),
			Chunk: c,
			Hash:  c.Hash,
		}
		if embeddings != nil {
			rec.Embedding = embeddings[i]
		}
		records[i] = rec
	}
	if err := artifact.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("persist chunk records: %w", err)
	}

	vectorPath := filepath.Join(p.opts.DataDir, VectorFile)
	model, dims := "", 0
	if !degraded {
		model = p.embedder.ModelName()
		dims = p.embedder.Dimensions()

		vectors, err := store.NewVectorStore(store.DefaultVectorConfig(dims))
		if err != nil {
			return err
		}
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		if err := vectors.Add(ctx, ids, embeddings); err != nil {
			return fmt.Errorf("populate vector store: %w", err)
		}
		if err := vectors.Save(vectorPath); err != nil {
			return fmt.Errorf("save vector store: %w", err)
		}
	} else {
		// A stale vector file from a previous build must not outlive
		// its chunk records.
		_ = os.Remove(vectorPath)
		_ = os.Remove(vectorPath + ".meta")
	}

	stamps := map[string]string{
		store.StateEmbedModel: model,
		store.StateEmbedDims:  strconv.Itoa(dims),
		store.StateCorpusHash: corpusHash,
		store.StateBuiltAt:    time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range stamps {
		if err := artifact.SetState(ctx, key, value); err != nil {
			return fmt.Errorf("stamp %s: %w", key, err)
		}
	}
	return nil
}
