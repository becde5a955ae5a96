package search

import (
	"github.com/cognidex/cognidex/internal/chunk"
)

// State names the retriever's pipeline stages. A query walks them in order;
// the value is attached to errors and debug logs to show where a query died.
type State string

const (
	StateIdle            State = "idle"
	StateQueryProcessing State = "query_processing"
	StateParallelSearch  State = "parallel_search"
	StateFusion          State = "fusion"
	StateRerank          State = "rerank"
	StateDone            State = "done"
)

// ScoreBreakdown exposes the per-path scores behind a final ranking, for
// observability and tests.
type ScoreBreakdown struct {
	DenseScore   float64 `json:"dense_score"`
	LexicalScore float64 `json:"lexical_score"`
	FusionScore  float64 `json:"fusion_score"`
	FinalScore   float64 `json:"final_score"`
	DenseWeight  float64 `json:"dense_weight"`
}

// Result is one ranked retrieval hit.
type Result struct {
	Chunk        *chunk.Chunk   `json:"chunk"`
	Score        float64        `json:"score"`
	Breakdown    ScoreBreakdown `json:"score_breakdown"`
	MatchedTerms []string       `json:"matched_terms,omitempty"`
}

// Response is the full answer to one retrieval call.
type Response struct {
	Results []*Result `json:"results"`
	// Degraded is set when the dense path failed and results are
	// lexical-only.
	Degraded bool `json:"degraded,omitempty"`
	// Intents lists the detected slot intents, most confident first.
	Intents []Intent `json:"intents,omitempty"`
	// ExpandedQuery is the glossary-expanded query text used for search.
	ExpandedQuery string `json:"expanded_query,omitempty"`
	// QueryLang names the detected query language ("English" or
	// "Mandarin"), empty when the text carries no signal.
	QueryLang string `json:"query_lang,omitempty"`
}
