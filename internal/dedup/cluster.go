package dedup

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/cognidex/cognidex/internal/chunk"
)

// Combined pairwise score weights and representative scoring weights.
const (
	jaccardWeight = 0.6
	simhashWeight = 0.4

	repLengthWeight    = 0.3
	repMetadataWeight  = 0.2
	repRelevanceWeight = 0.4
	repShingleWeight   = 0.1

	// secondPassFactor tightens the threshold for the cross-bucket pass.
	secondPassFactor = 0.9
)

// Config configures the deduplication engine.
type Config struct {
	// ShingleSize is the word n-gram size (default 3).
	ShingleSize int
	// Permutations is the MinHash signature length (default 128).
	Permutations int
	// FingerprintBits is the LSH bucket id width in bits (default 16).
	FingerprintBits int
	// Threshold is the combined similarity required to cluster (default 0.8).
	Threshold float64
	// Workers bounds the per-bucket comparison pool (default NumCPU).
	Workers int
}

// DefaultConfig returns the default dedup configuration.
func DefaultConfig() Config {
	return Config{
		ShingleSize:     3,
		Permutations:    128,
		FingerprintBits: 16,
		Threshold:       0.8,
		Workers:         runtime.NumCPU(),
	}
}

// Cluster is a set of chunks judged near-identical, with exactly one
// representative. Suppressed members keep a back-reference via Result.Suppressed.
type Cluster struct {
	Representative *chunk.Chunk
	Suppressed     []*chunk.Chunk
}

// Result is the outcome of clustering a corpus.
type Result struct {
	// Kept contains representatives and unclustered chunks in corpus order.
	Kept []*chunk.Chunk
	// Clusters lists every multi-member cluster.
	Clusters []*Cluster
	// Suppressed maps a suppressed chunk id to its representative's id.
	Suppressed map[string]string
	// Skipped lists ids of chunks with empty shingle sets; they bypass
	// dedup entirely and are passed through unclustered.
	Skipped []string
}

// Engine clusters near-duplicate chunks.
type Engine struct {
	cfg    Config
	hasher *MinHasher
	logger *slog.Logger
}

// NewEngine creates a deduplication engine.
func NewEngine(cfg Config) *Engine {
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = 3
	}
	if cfg.Permutations <= 0 {
		cfg.Permutations = 128
	}
	if cfg.FingerprintBits <= 0 || cfg.FingerprintBits > 32 {
		cfg.FingerprintBits = 16
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = 0.8
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{
		cfg:    cfg,
		hasher: NewMinHasher(cfg.Permutations),
		logger: slog.Default(),
	}
}

// signature holds the per-chunk dedup state.
type signature struct {
	chunk    *chunk.Chunk
	shingles int
	minhash  []uint64
	simhash  uint64
	bucket   uint32
}

// bucketID derives a locality-sensitive bucket from the low-order bits of
// the MinHash signature, so probable duplicates collide before pairwise
// comparison. Signatures may be as short as one word when Permutations is
// overridden.
func (e *Engine) bucketID(sig []uint64) uint32 {
	mask := uint32(1)<<uint(e.cfg.FingerprintBits) - 1
	h := sig[0]
	if len(sig) > 1 {
		h ^= sig[1] << 1
	}
	return uint32(h) & mask
}

// Cluster groups near-duplicate chunks and selects representatives.
// Bucket comparisons run on a bounded worker pool; buckets share no mutable
// state beyond the merge set, which is mutex-guarded.
func (e *Engine) Cluster(ctx context.Context, chunks []*chunk.Chunk) (*Result, error) {
	res := &Result{Suppressed: make(map[string]string)}

	sigs := make([]*signature, 0, len(chunks))
	skipped := make(map[string]struct{})
	for _, c := range chunks {
		sh := Shingles(c.IndexText(), e.cfg.ShingleSize)
		if len(sh) == 0 {
			// Degenerate text bypasses dedup rather than being dropped.
			e.logger.Warn("dedup_skip_empty_shingles", slog.String("chunk_id", c.ID))
			res.Skipped = append(res.Skipped, c.ID)
			skipped[c.ID] = struct{}{}
			continue
		}
		sig := &signature{
			chunk:    c,
			shingles: len(sh),
			minhash:  e.hasher.Signature(sh),
			simhash:  SimHash(c.IndexText()),
		}
		sig.bucket = e.bucketID(sig.minhash)
		sigs = append(sigs, sig)
	}

	uf := newUnionFind(len(sigs))
	if err := e.compareBuckets(ctx, sigs, uf); err != nil {
		return nil, err
	}
	e.secondPass(sigs, uf)

	// Group by root
	groups := make(map[int][]int)
	for i := range sigs {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		cl := e.buildCluster(sigs, members)
		res.Clusters = append(res.Clusters, cl)
		for _, s := range cl.Suppressed {
			res.Suppressed[s.ID] = cl.Representative.ID
		}
	}
	sort.Slice(res.Clusters, func(i, j int) bool {
		return res.Clusters[i].Representative.ID < res.Clusters[j].Representative.ID
	})

	// Kept preserves corpus order: everything not suppressed survives.
	for _, c := range chunks {
		if _, dropped := res.Suppressed[c.ID]; !dropped {
			res.Kept = append(res.Kept, c)
		}
	}

	e.logger.Info("dedup_complete",
		slog.Int("chunks", len(chunks)),
		slog.Int("clusters", len(res.Clusters)),
		slog.Int("suppressed", len(res.Suppressed)),
		slog.Int("skipped", len(res.Skipped)))

	return res, nil
}

// compareBuckets runs pairwise comparison within each bucket on a worker pool.
func (e *Engine) compareBuckets(ctx context.Context, sigs []*signature, uf *unionFind) error {
	buckets := make(map[uint32][]int)
	for i, s := range sigs {
		buckets[s.bucket] = append(buckets[s.bucket], i)
	}

	pool, err := ants.NewPool(e.cfg.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		members := members
		wg.Add(1)
		task := func() {
			defer wg.Done()
			var merges [][2]int
			for i := 0; i < len(members); i++ {
				if ctx.Err() != nil {
					return
				}
				for j := i + 1; j < len(members); j++ {
					a, b := sigs[members[i]], sigs[members[j]]
					if e.combinedScore(a, b) >= e.cfg.Threshold {
						merges = append(merges, [2]int{members[i], members[j]})
					}
				}
			}
			if len(merges) > 0 {
				mu.Lock()
				for _, m := range merges {
					uf.union(m[0], m[1])
				}
				mu.Unlock()
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	return ctx.Err()
}

// secondPass compares still-unclustered chunks across buckets with a stricter
// threshold, SimHash first (cheap) confirmed by MinHash.
func (e *Engine) secondPass(sigs []*signature, uf *unionFind) {
	strict := e.cfg.Threshold * secondPassFactor

	var singles []int
	counts := make(map[int]int)
	for i := range sigs {
		counts[uf.find(i)]++
	}
	for i := range sigs {
		if counts[uf.find(i)] == 1 {
			singles = append(singles, i)
		}
	}

	for i := 0; i < len(singles); i++ {
		for j := i + 1; j < len(singles); j++ {
			a, b := sigs[singles[i]], sigs[singles[j]]
			if SimHashSimilarity(a.simhash, b.simhash) < strict {
				continue
			}
			if EstimateJaccard(a.minhash, b.minhash) >= strict {
				uf.union(singles[i], singles[j])
			}
		}
	}
}

// combinedScore is the clustering criterion: 0.6·Jaccard + 0.4·SimHash.
func (e *Engine) combinedScore(a, b *signature) float64 {
	return jaccardWeight*EstimateJaccard(a.minhash, b.minhash) +
		simhashWeight*SimHashSimilarity(a.simhash, b.simhash)
}

// buildCluster selects the representative by priority score and marks the
// rest suppressed.
func (e *Engine) buildCluster(sigs []*signature, members []int) *Cluster {
	best := members[0]
	bestScore := e.representativeScore(sigs[best])
	for _, idx := range members[1:] {
		score := e.representativeScore(sigs[idx])
		// Ties break on lexicographically smaller chunk id for determinism.
		if score > bestScore || (score == bestScore && sigs[idx].chunk.ID < sigs[best].chunk.ID) {
			best, bestScore = idx, score
		}
	}

	cl := &Cluster{Representative: sigs[best].chunk}
	for _, idx := range members {
		if idx != best {
			cl.Suppressed = append(cl.Suppressed, sigs[idx].chunk)
		}
	}
	sort.Slice(cl.Suppressed, func(i, j int) bool {
		return cl.Suppressed[i].ID < cl.Suppressed[j].ID
	})
	return cl
}

// representativeScore ranks cluster members: longer text, more metadata,
// higher upstream relevance, richer vocabulary, in that priority order.
func (e *Engine) representativeScore(s *signature) float64 {
	textLen := float64(len([]rune(s.chunk.IndexText())))
	return repLengthWeight*math.Log(1+textLen) +
		repMetadataWeight*float64(s.chunk.MetadataFieldCount()) +
		repRelevanceWeight*s.chunk.RelevanceScore +
		repShingleWeight*math.Log(1+float64(s.shingles))
}

// unionFind is a plain union-find with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Lower root wins to keep grouping deterministic.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
