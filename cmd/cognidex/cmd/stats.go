package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cognidex/cognidex/internal/index"
	"github.com/cognidex/cognidex/internal/output"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Display statistics for the built index: chunk and source counts,
lexical vocabulary size, vector count, and the stamped embedding model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			snap, err := index.LoadSnapshot(cmd.Context(), cfg.Corpus.DataDir, lexicalConfig(cfg), slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = snap.Close() }()

			st := snap.Stats()
			if jsonOutput {
				return printJSON(cmd, st)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "chunks:      %d", st.Chunks)
			out.Statusf("", "sources:     %d", st.Sources)
			out.Statusf("", "vocabulary:  %d terms", st.Vocabulary)
			out.Statusf("", "vectors:     %d", st.Vectors)
			if st.DenseReady {
				out.Statusf("", "embeddings:  %s (%d dims)", st.EmbedModel, st.EmbedDims)
			} else {
				out.Statusf("", "embeddings:  none (lexical-only)")
			}
			if st.BuiltAt != "" {
				out.Statusf("", "built:       %s", st.BuiltAt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
