package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/search"
)

// MaxRetrieveLimit caps per-request result counts.
const MaxRetrieveLimit = 50

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query          string `json:"query" jsonschema:"the natural-language query, English or Chinese"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"maximum number of results, default 10"`
	LexicalOnly    bool   `json:"lexical_only,omitempty" jsonschema:"skip the dense path and rank by exact-term evidence only"`
	KeepAllSources bool   `json:"keep_all_sources,omitempty" jsonschema:"allow multiple results from one source document"`
}

// ScoreBreakdownOutput mirrors the retriever's per-result score breakdown.
type ScoreBreakdownOutput struct {
	Dense       float64 `json:"dense_score" jsonschema:"cosine-based dense channel score"`
	Lexical     float64 `json:"lexical_score" jsonschema:"max-normalized BM25 channel score"`
	Fusion      float64 `json:"fusion_score" jsonschema:"weighted blend of the two channels"`
	Final       float64 `json:"final_score" jsonschema:"score after rerank"`
	DenseWeight float64 `json:"dense_weight" jsonschema:"dense weight used for this query"`
}

// RetrieveResultOutput is one ranked chunk.
type RetrieveResultOutput struct {
	ChunkID      string               `json:"chunk_id"`
	SourceID     string               `json:"source_id"`
	Type         string               `json:"type,omitempty"`
	Lang         string               `json:"lang,omitempty"`
	Title        string               `json:"title"`
	Body         string               `json:"body"`
	SummaryEN    string               `json:"summary_en,omitempty"`
	SummaryZH    string               `json:"summary_zh,omitempty"`
	MetaCard     chunk.MetaCard       `json:"meta_card,omitempty"`
	Score        float64              `json:"score"`
	Breakdown    ScoreBreakdownOutput `json:"breakdown"`
	MatchedTerms []string             `json:"matched_terms,omitempty"`
}

// RetrieveOutput is the retrieve tool's result document.
type RetrieveOutput struct {
	Results       []RetrieveResultOutput `json:"results"`
	Degraded      bool                   `json:"degraded" jsonschema:"true when the dense path failed and ranking is lexical-only"`
	Intents       []string               `json:"intents,omitempty" jsonschema:"detected slot intents"`
	ExpandedQuery string                 `json:"expanded_query,omitempty"`
	QueryLang     string                 `json:"query_lang,omitempty" jsonschema:"detected query language, English or Mandarin"`
}

// StatusInput carries no parameters.
type StatusInput struct{}

// Server serves retrieval over MCP.
type Server struct {
	mcp       *mcp.Server
	retriever *search.Retriever
	snapshot  *index.Snapshot
	logger    *slog.Logger
}

// NewServer creates the MCP server over a loaded snapshot and retriever.
func NewServer(retriever *search.Retriever, snapshot *index.Snapshot, version string, logger *slog.Logger) (*Server, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if snapshot == nil {
		return nil, errors.New("snapshot is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		retriever: retriever,
		snapshot:  snapshot,
		logger:    logger,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "cognidex",
		Version: version,
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "retrieve",
		Description: "Retrieve knowledge-base chunks for a natural-language query " +
			"(English or Chinese) using hybrid lexical + semantic ranking. " +
			"Each result carries a full score breakdown.",
	}, s.retrieveHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics: chunk and source counts, vocabulary size, embedding model, and whether the dense path is available.",
	}, s.statusHandler)

	return s, nil
}

// retrieveHandler answers one retrieve call.
func (s *Server) retrieveHandler(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (
	*mcp.CallToolResult,
	RetrieveOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, NewInvalidParamsError("query must be a non-empty string")
	}

	start := time.Now()
	requestID := newRequestID()

	// A lexical-only artifact still serves; the dense path is simply absent.
	denseAbsent := s.snapshot.Vectors == nil
	opts := search.Options{
		TopK:           input.TopK,
		LexicalOnly:    input.LexicalOnly || denseAbsent,
		KeepAllSources: input.KeepAllSources,
	}
	if opts.TopK > MaxRetrieveLimit {
		opts.TopK = MaxRetrieveLimit
	}

	resp, err := s.retriever.Retrieve(ctx, input.Query, opts)
	if err != nil {
		s.logger.Error("retrieve_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, RetrieveOutput{}, MapError(err)
	}

	out := RetrieveOutput{
		Results:       make([]RetrieveResultOutput, 0, len(resp.Results)),
		Degraded:      resp.Degraded || (denseAbsent && !input.LexicalOnly),
		ExpandedQuery: resp.ExpandedQuery,
		QueryLang:     resp.QueryLang,
	}
	for _, intent := range resp.Intents {
		out.Intents = append(out.Intents, string(intent))
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, toResultOutput(r))
	}

	s.logger.Info("retrieve_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(out.Results)),
		slog.Bool("degraded", out.Degraded))
	return nil, out, nil
}

// statusHandler reports snapshot statistics.
func (s *Server) statusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	index.Stats,
	error,
) {
	return nil, s.snapshot.Stats(), nil
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func toResultOutput(r *search.Result) RetrieveResultOutput {
	return RetrieveResultOutput{
		ChunkID:   r.Chunk.ID,
		SourceID:  r.Chunk.SourceID,
		Type:      string(r.Chunk.Type),
		Lang:      string(r.Chunk.Lang),
		Title:     r.Chunk.Title,
		Body:      r.Chunk.Body,
		SummaryEN: r.Chunk.SummaryEN,
		SummaryZH: r.Chunk.SummaryZH,
		MetaCard:  r.Chunk.MetaCard,
		Score:     r.Score,
		Breakdown: ScoreBreakdownOutput{
			Dense:       r.Breakdown.DenseScore,
			Lexical:     r.Breakdown.LexicalScore,
			Fusion:      r.Breakdown.FusionScore,
			Final:       r.Breakdown.FinalScore,
			DenseWeight: r.Breakdown.DenseWeight,
		},
		MatchedTerms: r.MatchedTerms,
	}
}

// newRequestID creates a short id for log correlation.
func newRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
