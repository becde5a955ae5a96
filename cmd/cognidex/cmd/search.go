package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognidex/cognidex/internal/chunk"
	"github.com/cognidex/cognidex/internal/embed"
	"github.com/cognidex/cognidex/internal/glossary"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/output"
	"github.com/cognidex/cognidex/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit          int
	lexicalOnly    bool
	keepAllSources bool
	format         string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the knowledge base",
		Long: `Query the indexed knowledge base with hybrid retrieval.

Dense and lexical search run in parallel and are fused with
intent-derived weights; exact-fact queries (contract addresses,
tickers, official channels) lean on keyword evidence.

Examples:
  cognidex search "what is the contract address"
  cognidex search "质押奖励怎么领取" --limit 5
  cognidex search "bridge fees" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.lexicalOnly, "lexical-only", false, "Skip the semantic path, rank by exact-term evidence")
	cmd.Flags().BoolVar(&opts.keepAllSources, "keep-all-sources", false, "Allow multiple results from one source document")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	snap, err := index.LoadSnapshot(ctx, cfg.Corpus.DataDir, lexicalConfig(cfg), slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = snap.Close() }()

	// The query embedder must match the stamped vector width; an
	// incompatible backend degrades the dense path at query time.
	var embedder embed.Embedder
	if snap.Vectors != nil && !opts.lexicalOnly {
		cfg.Embeddings.Dimensions = snap.EmbedDims
		if embedder, err = newEmbedder(ctx, cfg, false); err == nil {
			defer func() { _ = embedder.Close() }()
		}
	}

	retriever, err := newRetriever(snap, embedder, cfg)
	if err != nil {
		return err
	}

	topK := opts.limit
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	resp, err := retriever.Retrieve(ctx, query, search.Options{
		TopK:           topK,
		DenseTopN:      cfg.Retrieval.DenseTopN,
		LexicalTopN:    cfg.Retrieval.LexicalTopN,
		MinScore:       cfg.Retrieval.MinScore,
		LexicalOnly:    opts.lexicalOnly || snap.Vectors == nil,
		KeepAllSources: opts.keepAllSources,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return printJSON(cmd, resp)
	}
	renderResults(out, query, resp)
	return nil
}

// renderResults prints results in plain text.
func renderResults(out *output.Writer, query string, resp *search.Response) {
	if resp.Degraded {
		out.Warning("semantic path unavailable, showing keyword matches only")
	}
	if len(resp.Results) == 0 {
		out.Statusf("", "no results for %q", query)
		return
	}

	for i, r := range resp.Results {
		out.Statusf("", "%d. %s  (score %.3f, source %s)", i+1, r.Chunk.Title, r.Score, r.Chunk.SourceID)
		if s := summaryFor(r.Chunk, resp.QueryLang); s != "" {
			out.Statusf("", "   %s", s)
		}
		if len(r.MatchedTerms) > 0 {
			out.Statusf("", "   matched: %s", strings.Join(r.MatchedTerms, ", "))
		}
	}
}

// summaryFor picks the summary in the asker's language, falling back to
// the chunk's primary language.
func summaryFor(c *chunk.Chunk, queryLang string) string {
	switch queryLang {
	case glossary.LanguageMandarin:
		if c.SummaryZH != "" {
			return c.SummaryZH
		}
	case glossary.LanguageEnglish:
		if c.SummaryEN != "" {
			return c.SummaryEN
		}
	}
	if c.Lang == chunk.LangZH && c.SummaryZH != "" {
		return c.SummaryZH
	}
	if c.SummaryEN != "" {
		return c.SummaryEN
	}
	return c.SummaryZH
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
