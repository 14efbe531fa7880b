// Package embed produces the 384-dimension vectors QFS's vector and hybrid
// search modes run over. Embedder implementations are interchangeable; the
// static implementation here needs no model download or network access,
// trading semantic quality for zero external dependencies.
package embed

import (
	"context"
	"math"
)

// Dimensions is the fixed embedding width QFS's schema and vector index are
// built around.
const Dimensions = 384

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// ModelName returns the model identifier stored alongside each embedding.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases any resources held by the embedder.
	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	magnitude := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
