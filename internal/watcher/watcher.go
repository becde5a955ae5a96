// Package watcher observes an authored corpus and triggers full index
// rebuilds. Any change to a corpus file means a wholesale rebuild, so events
// are not tracked per path: a batch of rapid changes collapses into one
// rebuild after a quiet window.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow is the quiet period before a rebuild fires.
const DefaultDebounceWindow = 500 * time.Millisecond

// corpusFile reports whether a path looks like an authored chunk file.
func corpusFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// RebuildFunc runs one full rebuild. Returning an error does not stop the
// watcher; the next change triggers again.
type RebuildFunc func(ctx context.Context) error

// Options configures a corpus watcher.
type Options struct {
	// DebounceWindow is the quiet period after the last change before the
	// rebuild fires (default 500ms).
	DebounceWindow time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// CorpusWatcher watches a corpus file or directory tree and invokes a
// rebuild callback after changes settle.
type CorpusWatcher struct {
	path    string
	rebuild RebuildFunc
	window  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool

	fire chan struct{}
}

// New creates a corpus watcher for the given path.
func New(path string, rebuild RebuildFunc, opts Options) *CorpusWatcher {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CorpusWatcher{
		path:    path,
		rebuild: rebuild,
		window:  opts.DebounceWindow,
		logger:  opts.Logger,
		fire:    make(chan struct{}, 1),
	}
}

// Run watches until the context is cancelled. Rebuilds run on the caller's
// goroutine, serialized: changes arriving during a rebuild coalesce into one
// follow-up rebuild.
func (w *CorpusWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addWatches(fsw); err != nil {
		return err
	}
	w.logger.Info("corpus_watch_started",
		slog.String("path", w.path),
		slog.Duration("debounce", w.window))

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus_watch_error", slog.String("error", err.Error()))

		case <-w.fire:
			w.logger.Info("corpus_changed_rebuilding", slog.String("path", w.path))
			if err := w.rebuild(ctx); err != nil {
				w.logger.Error("corpus_rebuild_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// addWatches registers the corpus path. Directories are watched recursively;
// a single corpus file is watched via its parent directory because editors
// replace files on save.
func (w *CorpusWatcher) addWatches(fsw *fsnotify.Watcher) error {
	stat, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat corpus path: %w", err)
	}
	if stat.IsDir() {
		return filepath.WalkDir(w.path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") && p != w.path {
				return filepath.SkipDir
			}
			return fsw.Add(p)
		})
	}
	return fsw.Add(filepath.Dir(w.path))
}

// handleEvent filters for corpus-relevant changes and arms the debounce
// timer. A newly created subdirectory is added to the watch set.
func (w *CorpusWatcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warn("corpus_watch_add_failed",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}

	if !corpusFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug("corpus_event",
		slog.String("path", event.Name),
		slog.String("op", event.Op.String()))
	w.arm()
}

// arm starts or resets the debounce timer.
func (w *CorpusWatcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.flush)
}

// flush signals a rebuild. The channel has capacity one, so rebuild signals
// arriving during a rebuild collapse.
func (w *CorpusWatcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || !w.pending {
		return
	}
	w.pending = false
	select {
	case w.fire <- struct{}{}:
	default:
	}
}

func (w *CorpusWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
