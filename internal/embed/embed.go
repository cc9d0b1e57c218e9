// Package embed provides the two embedder variants named in the data
// model: an HTTP-backed ML embedder and a deterministic hash-based
// fallback that needs no network or model download, plus a factory that
// dispatches between them.
package embed

import (
	"context"
	"math"
)

// Default dimension used by the hash-fallback embedder. The ML embedder's
// dimension is whatever its backing model reports.
const HashDimensions = 256

// Embedder generates unit-normalized vector embeddings for text. id() and
// revision() are stored alongside the vector index; CVVI refuses to load
// under a different (id, revision) pair.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ID() string
	Revision() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector normalizes v to unit length, returning v unchanged if
// it's the zero vector.
func normalizeVector(v []float32) []float32 {
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
