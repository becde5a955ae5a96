package lexical

import (
	"log/slog"
	"math"
	"sort"
	"sync"
)

// BM25 constants per the Okapi formulation.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Config configures the lexical index.
type Config struct {
	// K1 is the BM25 term-frequency saturation constant.
	K1 float64
	// B is the BM25 length-normalization constant.
	B float64
	// StopWords overrides the default English stop-word list.
	StopWords []string
	// DeniedBigrams overrides the default CJK connective-bigram denylist.
	DeniedBigrams []string
}

// DefaultConfig returns the default lexical index configuration.
func DefaultConfig() Config {
	return Config{K1: DefaultK1, B: DefaultB}
}

// Document is the unit of lexical indexing.
type Document struct {
	ID      string
	Content string
}

// Result is a single lexical search hit.
type Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// Posting records one document's term frequency for a token.
type Posting struct {
	DocID    string
	TermFreq int
}

// Index is an inverted index with BM25 scoring. It is rebuilt wholesale on
// corpus change via Build; reads are lock-protected and may run concurrently.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	tokenizer *Tokenizer
	logger    *slog.Logger

	postings   map[string][]Posting
	docLengths map[string]int
	docOrder   map[string]int
	totalLen   int
	built      bool
}

// NewIndex creates an empty lexical index.
func NewIndex(cfg Config) *Index {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultK1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = DefaultB
	}
	return &Index{
		cfg:       cfg,
		tokenizer: NewTokenizer(cfg.StopWords, cfg.DeniedBigrams),
		logger:    slog.Default(),
	}
}

// Tokenizer exposes the index's tokenizer so queries are split with the
// exact same rules as documents.
func (ix *Index) Tokenizer() *Tokenizer { return ix.tokenizer }

// Build replaces the index contents from the given documents. The swap is
// atomic with respect to concurrent Search calls.
func (ix *Index) Build(docs []Document) {
	postings := make(map[string][]Posting)
	docLengths := make(map[string]int, len(docs))
	docOrder := make(map[string]int, len(docs))
	totalLen := 0

	for i, doc := range docs {
		tokens := ix.tokenizer.Tokenize(doc.Content)
		docLengths[doc.ID] = len(tokens)
		docOrder[doc.ID] = i
		totalLen += len(tokens)

		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok, tf := range freqs {
			postings[tok] = append(postings[tok], Posting{DocID: doc.ID, TermFreq: tf})
		}
	}

	ix.mu.Lock()
	ix.postings = postings
	ix.docLengths = docLengths
	ix.docOrder = docOrder
	ix.totalLen = totalLen
	ix.built = true
	ix.mu.Unlock()

	ix.logger.Info("lexical_index_built",
		slog.Int("documents", len(docs)),
		slog.Int("terms", len(postings)))
}

// Available reports whether Build has completed at least once.
func (ix *Index) Available() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docLengths)
}

// TermCount returns the number of distinct tokens in the index.
func (ix *Index) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// Search scores documents against the given query tokens with BM25 and
// returns the top-k, filtered to non-zero token overlap. Score ties keep
// document insertion order.
func (ix *Index) Search(tokens []string, topK int) []Result {
	if len(tokens) == 0 || topK <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.built || len(ix.docLengths) == 0 {
		return nil
	}
	avgLen := float64(ix.totalLen) / float64(len(ix.docLengths))
	if avgLen == 0 {
		avgLen = 1
	}
	n := float64(len(ix.docLengths))

	scores := make(map[string]float64)
	matched := make(map[string]map[string]struct{})

	// A repeated query token scores once; query-side TF is noise for the
	// short queries this index serves.
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}

		plist, ok := ix.postings[tok]
		if !ok {
			continue
		}
		idf := idfScore(n, float64(len(plist)))
		for _, p := range plist {
			tf := float64(p.TermFreq)
			norm := 1 - ix.cfg.B + ix.cfg.B*float64(ix.docLengths[p.DocID])/avgLen
			scores[p.DocID] += idf * (tf * (ix.cfg.K1 + 1)) / (tf + ix.cfg.K1*norm)
			if matched[p.DocID] == nil {
				matched[p.DocID] = make(map[string]struct{})
			}
			matched[p.DocID][tok] = struct{}{}
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		terms := make([]string, 0, len(matched[id]))
		for t := range matched[id] {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		results = append(results, Result{DocID: id, Score: score, MatchedTerms: terms})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return ix.docOrder[results[i].DocID] < ix.docOrder[results[j].DocID]
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// idfScore is the BM25+ style inverse document frequency, floored at a small
// positive value so very common terms still contribute.
func idfScore(n, df float64) float64 {
	idf := math.Log(1 + (n-df+0.5)/(df+0.5))
	if idf < 0.01 {
		idf = 0.01
	}
	return idf
}
