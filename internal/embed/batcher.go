package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// Batcher drives an Embedder over a large text set with bounded concurrency
// and a fixed round size, reporting progress after every completed round.
type Batcher struct {
	embedder  Embedder
	batchSize int
	workers   int
	logger    *slog.Logger
}

// NewBatcher creates a batcher. batchSize <= 0 selects DefaultBatchSize and
// is capped at MaxBatchSize; workers <= 0 selects 1 (hosted APIs and local
// daemons rarely benefit from more in-flight embedding requests).
func NewBatcher(embedder Embedder, batchSize, workers int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
		workers:   workers,
		logger:    slog.Default(),
	}
}

// EmbedAll embeds every text, index-aligned with the input. Rounds run on a
// bounded worker pool; progress reports completed text counts and is safe to
// call from multiple rounds concurrently.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	total := len(texts)
	var completed atomic.Int64

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
				}
				mu.Unlock()
				return
			}
			copy(results[start:end], vecs)

			done := completed.Add(int64(end - start))
			if progress != nil {
				progress(int(done), total)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.Debug("embedding_complete",
		slog.Int("texts", total),
		slog.Int("batch_size", b.batchSize),
		slog.String("model", b.embedder.ModelName()))
	return results, nil
}
