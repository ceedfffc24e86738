// Package embedders provides the text embedding client. Embeddings are
// requested one text at a time; batching is not assumed of the endpoint.
package embedders

import "context"

// Provider is the embedding capability consumed by the indexing and
// retrieval stages.
type Provider interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the configured vector dimension.
	Dimension() int

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases any resources held by the provider.
	Close() error
}

// ZeroVector returns an all-zero vector of the given dimension. The pipeline
// substitutes it when embedding fails so downstream stages still run; such
// chunks score poorly in dense retrieval, which is the intended degraded
// behaviour.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
