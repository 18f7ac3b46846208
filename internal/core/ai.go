package core

import "context"

// EmbeddingProvider turns text into fixed-length vectors.
// Implementations must return exactly one vector per input, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the vector length every call returns.
	Dimension() int
	Name() string
}
