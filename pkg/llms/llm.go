// Package llms provides the chat-completion client the pipeline uses for
// query expansion, contextual chunking, reranking and answer synthesis.
package llms

import (
	"context"
	"fmt"
)

// Provider is the chat-completion capability consumed by the pipeline.
type Provider interface {
	// Generate sends a single user prompt and returns the model's reply.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderError is an error reported by the inference endpoint itself,
// as opposed to transport failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
