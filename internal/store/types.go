package store

import "fmt"

// VectorConfig configures the vector store.
type VectorConfig struct {
	// Dimensions is the embedding dimension; all vectors must match.
	Dimensions int
	// M is the HNSW connectivity parameter.
	M int
	// EfSearch is the HNSW search expansion factor.
	EfSearch int
}

// DefaultVectorConfig returns the default vector store configuration.
func DefaultVectorConfig(dims int) VectorConfig {
	return VectorConfig{Dimensions: dims, M: 16, EfSearch: 20}
}

// VectorResult is a nearest-neighbor hit with cosine similarity in [0, 1].
type VectorResult struct {
	ID    string
	Score float64
}

// ErrDimensionMismatch reports a vector whose length differs from the
// store's configured dimension, typically after an embedding model change.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
