package reranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
)

// promptContentLimit caps how much of each chunk is shown to the model.
const promptContentLimit = 500

// LLMReranker asks the model to rank the whole candidate list in one
// call and assigns position-based scores to the returned order: 1.0 for
// first place, decreasing by 0.05 per position, floored at 0.1. Any
// failure in the call or in parsing degrades to token overlap so a
// flaky model never breaks the pipeline.
type LLMReranker struct {
	llm      llms.Provider
	fallback *TokenOverlapReranker
}

// NewLLMReranker creates a listwise LLM reranker.
func NewLLMReranker(llm llms.Provider) *LLMReranker {
	return &LLMReranker{llm: llm, fallback: NewTokenOverlapReranker()}
}

func (r *LLMReranker) Name() string { return "llm" }

// Rerank implements the Reranker interface.
func (r *LLMReranker) Rerank(ctx context.Context, query string, chunks []models.SemanticChunk, topK int) ([]models.SemanticChunk, []float64, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	prompt := buildRerankingPrompt(query, chunks)
	response, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("LLM reranking failed, falling back to token overlap", "error", err)
		return r.fallback.Rerank(ctx, query, chunks, topK)
	}

	rankedIDs, err := parseRankedIDs(response)
	if err != nil {
		slog.Warn("Unparseable reranking response, falling back to token overlap", "error", err)
		return r.fallback.Rerank(ctx, query, chunks, topK)
	}

	byID := make(map[string]models.SemanticChunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ChunkID] = chunk
	}

	var out []models.SemanticChunk
	var scores []float64
	seen := make(map[string]bool, len(rankedIDs))
	for i, id := range rankedIDs {
		chunk, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, chunk)
		scores = append(scores, positionScore(i))
	}

	// Chunks the model left out keep their retrieval order at the tail.
	for _, chunk := range chunks {
		if !seen[chunk.ChunkID] {
			out = append(out, chunk)
			scores = append(scores, 0.1)
		}
	}

	if len(out) > topK {
		out = out[:topK]
		scores = scores[:topK]
	}
	return out, scores, nil
}

func positionScore(position int) float64 {
	score := 1.0 - float64(position)*0.05
	if score < 0.1 {
		return 0.1
	}
	return score
}

func buildRerankingPrompt(query string, chunks []models.SemanticChunk) string {
	var sb strings.Builder
	sb.WriteString("You are ranking search passages by relevance to a query.\n\n")
	sb.WriteString(fmt.Sprintf("Query: %s\n\n", sanitizeInput(query)))
	sb.WriteString("Passages:\n\n")

	for i, chunk := range chunks {
		content := chunk.Content
		if runes := []rune(content); len(runes) > promptContentLimit {
			content = string(runes[:promptContentLimit]) + "..."
		}
		sb.WriteString(fmt.Sprintf("Passage %d (ID: %s):\n%s\n\n", i+1, chunk.ChunkID, sanitizeInput(content)))
	}

	sb.WriteString("Return a JSON array of passage IDs sorted by relevance, most relevant first.\n")
	sb.WriteString("Format: [\"id1\", \"id2\", ...]\n")
	return sb.String()
}

// parseRankedIDs extracts a JSON string array from the model response,
// tolerating surrounding prose and markdown fences.
func parseRankedIDs(response string) ([]string, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no JSON array in response")
	}

	jsonStr := response[start : end+1]
	var ids []string
	if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
		jsonStr = strings.ReplaceAll(jsonStr, "'", `"`)
		if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
			return nil, fmt.Errorf("parsing ranked ids: %w", err)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty ranking")
	}
	return ids, nil
}
