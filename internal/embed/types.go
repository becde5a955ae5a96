package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize bounds texts per embedding round to cap peak memory
	// and respect collaborator rate limits.
	DefaultBatchSize = 32

	// MaxBatchSize is the hard upper bound on configured batch size.
	MaxBatchSize = 256

	// DefaultTimeout is the per-request embedding timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts per embedding request.
	DefaultMaxRetries = 3

	// DefaultDimensions is used when the backend cannot report its own.
	DefaultDimensions = 768

	// StaticDimensions is the dimension of the hash-based static embedder.
	StaticDimensions = 256
)

// Embedder turns text into fixed-length vectors. Implementations must be
// deterministic for identical input. Vectors are not assumed pre-normalized;
// consumers normalize before cosine comparison.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, index-aligned
	// with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks whether the backend is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// ProgressFunc reports embedding progress as (completed, total) texts.
type ProgressFunc func(completed, total int)

// Normalize scales a vector to unit length. A zero vector is returned as-is.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
