package search

// Retrieval defaults.
const (
	DefaultDenseTopN   = 40
	DefaultLexicalTopN = 40
	DefaultTopK        = 10
	DefaultMinScore    = 0.1
	MaxTopK            = 100
)

// Options tunes one retrieval call. Zero values select the defaults.
type Options struct {
	// TopK is the number of final results to return.
	TopK int
	// DenseTopN is the dense candidate pool size before fusion.
	DenseTopN int
	// LexicalTopN is the lexical candidate pool size before fusion.
	LexicalTopN int
	// MinScore drops candidates scoring below it after rerank.
	MinScore float64
	// LexicalOnly skips the dense path entirely.
	LexicalOnly bool
	// KeepAllSources disables the per-source best-result dedup pass.
	KeepAllSources bool
	// DenseWeight overrides intent-derived weighting when set to a value
	// in (0, 1].
	DenseWeight float64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.TopK > MaxTopK {
		o.TopK = MaxTopK
	}
	if o.DenseTopN <= 0 {
		o.DenseTopN = DefaultDenseTopN
	}
	if o.LexicalTopN <= 0 {
		o.LexicalTopN = DefaultLexicalTopN
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	return o
}
