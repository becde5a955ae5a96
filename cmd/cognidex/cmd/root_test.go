package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cognidex/cognidex/internal/chunk"
	coreerr "github.com/cognidex/cognidex/internal/errors"
)

// runCLI executes the root command with args, capturing output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// isolateEnv keeps host configuration and the real home directory out of
// CLI tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COGNIDEX_OPENAI_API_KEY", "")
}

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	chunks := []*chunk.Chunk{
		{
			ID:        "staking-guide",
			SourceID:  "guide-staking",
			Type:      chunk.TypeHowto,
			Lang:      chunk.LangEN,
			Stability: chunk.StabilityStable,
			Title:     "How to stake tokens",
			Body:      "Stake tokens through the dashboard to earn staking rewards. Rewards accrue daily and unlock after a seven day lockup period.",
			SummaryEN: "Staking walkthrough with lockup details.",
			SummaryZH: "质押教程与锁仓说明。",
		},
		{
			ID:        "bridge-guide",
			SourceID:  "guide-bridge",
			Type:      chunk.TypeHowto,
			Lang:      chunk.LangEN,
			Stability: chunk.StabilityStable,
			Title:     "Using the bridge",
			Body:      "Move assets between chains with the canonical bridge. Fees depend on the destination chain and settle within minutes.",
			SummaryEN: "Bridge usage and fees.",
			SummaryZH: "跨链桥使用与费用。",
		},
	}

	data, err := yaml.Marshal(chunks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus.yaml"), data, 0o644))
	return dir
}

func TestIndexSearchStats(t *testing.T) {
	isolateEnv(t)
	corpusDir := writeTestCorpus(t)
	dataDir := t.TempDir()

	out, err := runCLI(t, "index", "--offline", "--corpus", corpusDir, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 chunks")

	out, err = runCLI(t, "search", "staking", "rewards", "--lexical-only", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "How to stake tokens")
	assert.Contains(t, out, "guide-staking")

	out, err = runCLI(t, "stats", "--json", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"chunks": 2`)
	assert.Contains(t, out, `"dense_ready": true`)
}

func TestSearch_JSONFormat(t *testing.T) {
	isolateEnv(t)
	corpusDir := writeTestCorpus(t)
	dataDir := t.TempDir()

	_, err := runCLI(t, "index", "--offline", "--corpus", corpusDir, "--data-dir", dataDir)
	require.NoError(t, err)

	out, err := runCLI(t, "search", "bridge", "fees", "--lexical-only", "--format", "json", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"results"`)
	assert.Contains(t, out, "bridge-guide")
}

func TestSearch_WithoutIndex(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "search", "anything", "--data-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, coreerr.ErrCodeIndexUnavailable, coreerr.CodeOf(err))
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cognidex")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "index")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "stats")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")
}
