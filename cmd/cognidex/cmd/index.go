package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognidex/cognidex/internal/config"
	"github.com/cognidex/cognidex/internal/embed"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/output"
	"github.com/cognidex/cognidex/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var (
		offline bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "index [corpus]",
		Short: "Build the retrieval index from the corpus",
		Long: `Build the retrieval index: load and validate corpus chunks, suppress
near-duplicates, embed the survivors, and persist the index artifacts.

If no embedding service is reachable the index is built lexical-only and
queries are answered without the semantic path.

Use --watch to keep running and rebuild whenever the corpus changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Corpus.Path = args[0]
			}
			return runIndex(ctx, cmd, cfg, offline, watch)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip embedding services)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild automatically when the corpus changes")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, cfg *config.Config, offline, watch bool) error {
	out := output.New(cmd.OutOrStdout())

	embedder, err := newEmbedder(ctx, cfg, offline)
	if err != nil {
		out.Warningf("embedding backend unavailable, building lexical-only: %v", err)
		embedder = nil
	}
	if embedder != nil {
		defer func() { _ = embedder.Close() }()
	}

	pipe := index.NewPipeline(embedder, index.Options{
		DataDir:   cfg.Corpus.DataDir,
		Dedup:     dedupConfig(cfg),
		BatchSize: cfg.Embeddings.BatchSize,
		Progress:  embeddingProgress(out),
		Logger:    slog.Default(),
	})

	if err := buildOnce(ctx, pipe, cfg.Corpus.Path, out); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	out.Statusf("↻", "watching %s for changes", cfg.Corpus.Path)
	w := watcher.New(cfg.Corpus.Path, func(ctx context.Context) error {
		return buildOnce(ctx, pipe, cfg.Corpus.Path, out)
	}, watcher.Options{
		DebounceWindow: cfg.Corpus.WatchDebounceDuration(),
		Logger:         slog.Default(),
	})
	return w.Run(ctx)
}

// buildOnce runs one full build and reports the outcome.
func buildOnce(ctx context.Context, pipe *index.Pipeline, corpusPath string, out *output.Writer) error {
	res, err := pipe.Build(ctx, corpusPath)
	if err != nil {
		return err
	}

	out.Successf("indexed %d chunks in %s (%d invalid, %d duplicates suppressed)",
		res.Kept, res.Duration.Round(time.Millisecond), res.Invalid, res.Suppressed)
	if res.Oversized > 0 {
		out.Warningf("%d chunks violate size bounds (indexed anyway)", res.Oversized)
	}
	if res.LangMismatched > 0 {
		out.Warningf("%d chunks declare one language but read as the other (indexed anyway)", res.LangMismatched)
	}
	if res.Degraded {
		out.Warning("embeddings unavailable, index is lexical-only")
	}
	return nil
}

// embeddingProgress renders embedding batch progress.
func embeddingProgress(out *output.Writer) embed.ProgressFunc {
	return func(completed, total int) {
		out.Progress(completed, total, "embedding")
	}
}
