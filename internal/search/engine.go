package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/dedup"
	"github.com/cognidex/cognidex/internal/embed"
	coreerr "github.com/cognidex/cognidex/internal/errors"
	"github.com/cognidex/cognidex/internal/glossary"
	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/store"
)

// ChunkLookup resolves chunk ids to full chunks at result-building time.
type ChunkLookup interface {
	Chunk(id string) (*chunk.Chunk, bool)
}

// MapLookup is a ChunkLookup over an in-memory map.
type MapLookup map[string]*chunk.Chunk

// Chunk implements ChunkLookup.
func (m MapLookup) Chunk(id string) (*chunk.Chunk, bool) {
	c, ok := m[id]
	return c, ok
}

// Retriever orchestrates dense and lexical search over one immutable index
// snapshot: expand, detect intents, search both paths in parallel, fuse with
// query-adaptive weights, rerank, dedup by source. Queries are idempotent
// reads and may run concurrently.
type Retriever struct {
	lexicalIndex *lexical.Index
	vectors      *store.VectorStore
	embedder     embed.Embedder
	glossary     *glossary.Glossary
	detector     *Detector
	chunks       ChunkLookup
	logger       *slog.Logger
}

// RetrieverOption configures optional collaborators.
type RetrieverOption func(*Retriever)

// WithGlossary sets the query-expansion glossary.
func WithGlossary(g *glossary.Glossary) RetrieverOption {
	return func(r *Retriever) { r.glossary = g }
}

// WithDetector replaces the default intent detector.
func WithDetector(d *Detector) RetrieverOption {
	return func(r *Retriever) { r.detector = d }
}

// WithLogger sets the retriever's logger.
func WithLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever over the given index snapshot. The
// lexical index and chunk lookup are required; vectors and embedder may be
// nil only together with LexicalOnly queries.
func NewRetriever(
	lexicalIndex *lexical.Index,
	vectors *store.VectorStore,
	embedder embed.Embedder,
	chunks ChunkLookup,
	opts ...RetrieverOption,
) (*Retriever, error) {
	if lexicalIndex == nil {
		return nil, coreerr.IndexUnavailable("no lexical index provided")
	}
	if chunks == nil {
		return nil, coreerr.IndexUnavailable("no chunk lookup provided")
	}
	r := &Retriever{
		lexicalIndex: lexicalIndex,
		vectors:      vectors,
		embedder:     embedder,
		detector:     NewDetector(IntentRules{}),
		chunks:       chunks,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve answers one query. Collaborator failures degrade to the surviving
// path; an unavailable index is the only fatal condition.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{}, nil
	}
	opts = opts.withDefaults()

	state := StateQueryProcessing
	if !r.lexicalIndex.Available() {
		return nil, coreerr.IndexUnavailable("lexical index not built").
			WithDetail("state", string(state))
	}
	denseReady := r.vectors != nil && r.embedder != nil && !opts.LexicalOnly
	if r.vectors == nil && !opts.LexicalOnly {
		return nil, coreerr.IndexUnavailable("vector store not loaded").
			WithDetail("state", string(state))
	}
	// Vectors without an embedder cannot score the dense path; the query
	// proceeds lexical-only and is flagged.
	embedderMissing := r.vectors != nil && r.embedder == nil && !opts.LexicalOnly

	// QueryProcessing: glossary expansion plus intent detection. Both
	// paths search the expanded text; it carries the original verbatim as
	// a prefix, so exact original-script matching is preserved.
	expandedQuery := query
	queryLang := ""
	if r.glossary != nil {
		exp := r.glossary.Expand(query)
		expandedQuery = exp.Expanded
		queryLang = exp.Language
	} else {
		queryLang = glossary.DetectLanguage(query)
	}
	detection := r.detector.Detect(query)
	denseWeight := detection.DenseWeight
	if opts.DenseWeight > 0 && opts.DenseWeight <= 1 {
		denseWeight = opts.DenseWeight
	}

	// ParallelSearch: the two paths share no state and run concurrently.
	// Neither failure aborts the group; degradation is decided after.
	state = StateParallelSearch
	var (
		denseResults   []*store.VectorResult
		lexResults     []lexical.Result
		queryEmbedding []float32
		denseErr       error
	)
	g, gctx := errgroup.WithContext(ctx)
	if denseReady {
		g.Go(func() error {
			vec, err := r.embedder.Embed(gctx, expandedQuery)
			if err != nil {
				denseErr = err
				return nil
			}
			hits, err := r.vectors.Search(gctx, vec, opts.DenseTopN)
			if err != nil {
				denseErr = err
				return nil
			}
			queryEmbedding = vec
			denseResults = hits
			return nil
		})
	}
	g.Go(func() error {
		tokens := r.lexicalIndex.Tokenizer().Tokenize(expandedQuery)
		lexResults = r.lexicalIndex.Search(tokens, opts.LexicalTopN)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, coreerr.New(coreerr.ErrCodeSearchFailed, "retrieval cancelled", err).
			WithDetail("state", string(state))
	}

	degraded := (denseReady && denseErr != nil) || embedderMissing
	if denseErr != nil {
		r.logger.Warn("dense_path_degraded",
			slog.String("query", query),
			slog.String("error", denseErr.Error()))
	} else if embedderMissing {
		r.logger.Warn("dense_path_degraded",
			slog.String("query", query),
			slog.String("error", "no embedding backend"))
	}

	// Fusion. A degraded query scores on the lexical path alone.
	state = StateFusion
	weight := denseWeight
	if degraded || !denseReady {
		weight = 0
	}
	candidates := fuse(denseResults, lexResults, weight)
	if len(candidates) == 0 {
		return &Response{
			Degraded:      degraded,
			Intents:       detection.Intents,
			ExpandedQuery: expandedQuery,
			QueryLang:     queryLang,
		}, nil
	}

	// Rerank against the query embedding where candidates have one.
	state = StateRerank
	var lookup func(id string) ([]float32, bool)
	if r.vectors != nil {
		lookup = r.vectors.Vector
	}
	ranked := rerank(candidates, queryEmbedding, lookup, opts.MinScore, r.poolSize(opts))

	// Post-retrieval source dedup: one result per source document.
	if !opts.KeepAllSources {
		kept := dedup.KeepBestPerSource(len(ranked),
			func(i int) string {
				if c, ok := r.chunks.Chunk(ranked[i].chunkID); ok {
					return c.SourceID
				}
				return ""
			},
			func(i int) float64 { return ranked[i].finalScore })
		deduped := make([]*fused, 0, len(kept))
		for _, idx := range kept {
			deduped = append(deduped, ranked[idx])
		}
		ranked = deduped
	}
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}

	resp := &Response{
		Results:       make([]*Result, 0, len(ranked)),
		Degraded:      degraded,
		Intents:       detection.Intents,
		ExpandedQuery: expandedQuery,
		QueryLang:     queryLang,
	}
	for _, f := range ranked {
		c, ok := r.chunks.Chunk(f.chunkID)
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, &Result{
			Chunk: c,
			Score: f.finalScore,
			Breakdown: ScoreBreakdown{
				DenseScore:   f.denseScore,
				LexicalScore: f.lexicalScore,
				FusionScore:  f.fusionScore,
				FinalScore:   f.finalScore,
				DenseWeight:  weight,
			},
			MatchedTerms: f.matchedTerms,
		})
	}

	r.logger.Debug("retrieval_done",
		slog.String("state", string(StateDone)),
		slog.String("query", query),
		slog.Int("results", len(resp.Results)),
		slog.Bool("degraded", resp.Degraded),
		slog.Float64("dense_weight", weight))
	return resp, nil
}

// poolSize keeps more than TopK candidates through rerank so source dedup
// has alternatives to promote.
func (r *Retriever) poolSize(opts Options) int {
	if opts.KeepAllSources {
		return opts.TopK
	}
	return opts.TopK * 3
}
