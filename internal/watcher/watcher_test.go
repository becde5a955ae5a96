package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, rebuilds *atomic.Int32) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	w := New(dir, func(context.Context) error {
		rebuilds.Add(1)
		return nil
	}, Options{DebounceWindow: 50 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give the watcher a moment to register its watches.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestWatcher_CorpusChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	var rebuilds atomic.Int32
	startWatcher(t, dir, &rebuilds)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.yaml"), []byte("- id: a\n"), 0o644))

	require.Eventually(t, func() bool {
		return rebuilds.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_RapidChangesCoalesce(t *testing.T) {
	dir := t.TempDir()
	var rebuilds atomic.Int32
	startWatcher(t, dir, &rebuilds)

	path := filepath.Join(dir, "chunks.yaml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("- id: a\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rebuilds.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// The burst settles into far fewer rebuilds than writes.
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, rebuilds.Load(), int32(2))
}

func TestWatcher_IgnoresNonCorpusFiles(t *testing.T) {
	dir := t.TempDir()
	var rebuilds atomic.Int32
	startWatcher(t, dir, &rebuilds)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, rebuilds.Load())
}

func TestCorpusFile(t *testing.T) {
	assert.True(t, corpusFile("a/b/chunks.yaml"))
	assert.True(t, corpusFile("chunks.YML"))
	assert.True(t, corpusFile("chunks.json"))
	assert.False(t, corpusFile("chunks.txt"))
	assert.False(t, corpusFile("chunks"))
}
