// Package cmd provides the CLI commands for cognidex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognidex/cognidex/internal/config"
	"github.com/cognidex/cognidex/internal/dedup"
	"github.com/cognidex/cognidex/internal/embed"
	"github.com/cognidex/cognidex/internal/glossary"
	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/lexical"
	"github.com/cognidex/cognidex/internal/logging"
	"github.com/cognidex/cognidex/internal/search"
	"github.com/cognidex/cognidex/pkg/version"
)

var (
	corpusFlag  string
	dataDirFlag string
	debugMode   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the cognidex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cognidex",
		Short: "Hybrid retrieval engine for bilingual knowledge bases",
		Long: `Cognidex indexes a curated English/Chinese knowledge base and serves
hybrid (BM25 + semantic) retrieval over it, locally.

Run 'cognidex index' to build the index, 'cognidex search' to query it,
and 'cognidex serve' to expose retrieval to an assistant over MCP.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("cognidex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "Corpus file or directory (overrides config)")
	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Index artifact directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRun = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// setupLogging routes slog to the rotating log file, keeping stdout clean
// for command output and the MCP transport.
func setupLogging(_ *cobra.Command, _ []string) {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
}

// loadConfig builds the effective configuration with flag overrides applied.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if corpusFlag != "" {
		cfg.Corpus.Path = corpusFlag
	}
	if dataDirFlag != "" {
		cfg.Corpus.DataDir = dataDirFlag
	}
	return cfg, nil
}

// newEmbedder creates the configured embedding backend. offline forces the
// deterministic static embedder.
func newEmbedder(ctx context.Context, cfg *config.Config, offline bool) (embed.Embedder, error) {
	backend := embed.Backend(cfg.Embeddings.Backend)
	if offline {
		backend = embed.BackendStatic
	}
	return embed.New(ctx, embed.FactoryConfig{
		Backend:    backend,
		Dimensions: cfg.Embeddings.Dimensions,
		Ollama: embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			Timeout:    cfg.Embeddings.TimeoutDuration(),
		},
		OpenAI: embed.OpenAIConfig{
			APIKey:     cfg.Embeddings.APIKey,
			BaseURL:    cfg.Embeddings.OpenAIBaseURL,
			Dimensions: cfg.Embeddings.Dimensions,
		},
	})
}

// dedupConfig maps the config section onto the dedup engine configuration.
func dedupConfig(cfg *config.Config) dedup.Config {
	return dedup.Config{
		ShingleSize:     cfg.Dedup.ShingleSize,
		Permutations:    cfg.Dedup.Permutations,
		FingerprintBits: cfg.Dedup.FingerprintBits,
		Threshold:       cfg.Dedup.Threshold,
		Workers:         cfg.Dedup.Workers,
	}
}

// lexicalConfig maps the config section onto the lexical index configuration.
func lexicalConfig(cfg *config.Config) lexical.Config {
	return lexical.Config{K1: cfg.Lexical.K1, B: cfg.Lexical.B}
}

// newRetriever wires a retriever over a loaded snapshot, attaching the
// glossary and intent rules from configuration.
func newRetriever(snap *index.Snapshot, embedder embed.Embedder, cfg *config.Config) (*search.Retriever, error) {
	opts := []search.RetrieverOption{
		search.WithDetector(search.NewDetector(cfg.Retrieval.Intents)),
	}
	if cfg.Glossary.Path != "" {
		g, err := glossary.LoadFile(cfg.Glossary.Path)
		if err != nil {
			slog.Warn("glossary_unavailable",
				slog.String("path", cfg.Glossary.Path),
				slog.String("error", err.Error()))
		} else {
			opts = append(opts, search.WithGlossary(g))
		}
	}
	return search.NewRetriever(snap.Lexical, snap.Vectors, embedder, snap.Chunks, opts...)
}
