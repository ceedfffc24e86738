package reranking

import (
	"context"
	"sort"

	"github.com/kadirpekel/delphi/pkg/models"
	"github.com/kadirpekel/delphi/pkg/retrieval"
)

// TokenOverlapReranker scores each chunk by the fraction of distinct
// query tokens it contains. No model call, no network, deterministic.
type TokenOverlapReranker struct{}

// NewTokenOverlapReranker creates the default overlap reranker.
func NewTokenOverlapReranker() *TokenOverlapReranker {
	return &TokenOverlapReranker{}
}

func (r *TokenOverlapReranker) Name() string { return "token_overlap" }

// Rerank sorts chunks by overlap score descending, preserving input
// order on ties, and returns the top topK with their scores.
func (r *TokenOverlapReranker) Rerank(ctx context.Context, query string, chunks []models.SemanticChunk, topK int) ([]models.SemanticChunk, []float64, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	querySet := tokenSet(retrieval.Tokenize(query))

	type scored struct {
		chunk models.SemanticChunk
		score float64
	}
	ranked := make([]scored, len(chunks))
	for i, chunk := range chunks {
		ranked[i] = scored{chunk: chunk, score: overlapScore(querySet, chunk.Content)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]models.SemanticChunk, len(ranked))
	scores := make([]float64, len(ranked))
	for i, s := range ranked {
		out[i] = s.chunk
		scores[i] = s.score
	}
	return out, scores, nil
}

// overlapScore is |query tokens present in content| / |query tokens|,
// over distinct tokens. An empty query scores everything zero.
func overlapScore(querySet map[string]bool, content string) float64 {
	if len(querySet) == 0 {
		return 0
	}
	contentSet := tokenSet(retrieval.Tokenize(content))
	matched := 0
	for tok := range querySet {
		if contentSet[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(querySet))
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}
