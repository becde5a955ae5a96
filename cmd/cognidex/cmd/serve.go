package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognidex/cognidex/internal/config"
	"github.com/cognidex/cognidex/internal/embed"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/mcp"
	"github.com/cognidex/cognidex/pkg/version"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve retrieval over MCP (stdio)",
		Long: `Serve the retrieve and index_status tools over the Model Context
Protocol on stdio, for use by an assistant orchestration layer.

Requires a built index; run 'cognidex index' first. Logs go to the log
file, never stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	snap, err := index.LoadSnapshot(ctx, cfg.Corpus.DataDir, lexicalConfig(cfg), slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = snap.Close() }()

	var embedder embed.Embedder
	if snap.Vectors != nil {
		cfg.Embeddings.Dimensions = snap.EmbedDims
		if embedder, err = newEmbedder(ctx, cfg, false); err != nil {
			slog.Warn("embedding_backend_unavailable",
				slog.String("error", err.Error()))
			embedder = nil
		} else {
			defer func() { _ = embedder.Close() }()
		}
	}

	retriever, err := newRetriever(snap, embedder, cfg)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(retriever, snap, version.Short(), slog.Default())
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
