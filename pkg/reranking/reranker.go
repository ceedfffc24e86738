// Package reranking re-orders retrieval candidates before answer
// generation. The default scorer is cheap token overlap; an LLM-based
// listwise reranker can be enabled for deeper relevance judgements at
// the cost of one extra model call per query.
package reranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
)

// DefaultTopK is how many chunks survive reranking into the scratch pad.
const DefaultTopK = 5

// Reranker re-orders candidate chunks by relevance to the query.
// Scores are parallel to the returned chunks; their scale depends on
// the implementation and is only meaningful for ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []models.SemanticChunk, topK int) ([]models.SemanticChunk, []float64, error)
	Name() string
}

// NewReranker builds the reranker selected by cfg.Reranker. The LLM
// reranker needs a provider and falls back to token overlap whenever
// the model call or its response parsing fails.
func NewReranker(cfg *config.Config, llm llms.Provider) (Reranker, error) {
	switch cfg.Reranker {
	case config.RerankerOverlap, "":
		return NewTokenOverlapReranker(), nil
	case config.RerankerLLM:
		if llm == nil {
			return nil, fmt.Errorf("llm reranker requires an LLM provider")
		}
		return NewLLMReranker(llm), nil
	default:
		return nil, fmt.Errorf("unknown reranker: %s", cfg.Reranker)
	}
}

// sanitizeInput strips role markers and instruction overrides from text
// interpolated into reranking prompts.
func sanitizeInput(input string) string {
	sanitized := input
	for _, marker := range []string{
		"SYSTEM:", "System:", "system:",
		"ASSISTANT:", "Assistant:", "assistant:",
		"USER:", "User:", "user:",
		"Ignore previous instructions", "ignore previous instructions",
		"Ignore all previous", "ignore all previous",
		"```",
	} {
		sanitized = strings.ReplaceAll(sanitized, marker, "")
	}
	return strings.TrimSpace(sanitized)
}
