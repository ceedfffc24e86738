package retrieval

import (
	"math"
	"sort"

	"github.com/kadirpekel/delphi/pkg/models"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// ScoredChunk pairs a chunk with a retrieval score. Higher is better for
// BM25 and fused scores.
type ScoredChunk struct {
	Chunk models.SemanticChunk
	Score float64
}

// BM25Search scores the corpus against the query and returns up to k
// chunks with positive scores, best first. IDF is not clamped: terms
// occurring in most documents contribute negatively, matching the
// reference formula log((N-df+0.5)/(df+0.5)).
func BM25Search(query string, corpus []models.SemanticChunk, k int) []ScoredChunk {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || len(corpus) == 0 || k <= 0 {
		return nil
	}

	docTokens := make([][]string, len(corpus))
	docFreq := make(map[string]int)
	totalLen := 0
	for i, chunk := range corpus {
		tokens := Tokenize(chunk.Content)
		docTokens[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}
	avgLen := float64(totalLen) / float64(len(corpus))

	n := float64(len(corpus))
	idf := make(map[string]float64, len(queryTokens))
	for _, term := range queryTokens {
		if _, ok := idf[term]; ok {
			continue
		}
		df := float64(docFreq[term])
		idf[term] = math.Log((n - df + 0.5) / (df + 0.5))
	}

	var results []ScoredChunk
	for i, tokens := range docTokens {
		if len(tokens) == 0 {
			continue
		}

		termFreq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
		}

		score := 0.0
		for term, termIDF := range idf {
			tf := float64(termFreq[term])
			if tf == 0 {
				continue
			}
			norm := tf * (bm25K1 + 1) /
				(tf + bm25K1*(1-bm25B+bm25B*float64(len(tokens))/avgLen))
			score += termIDF * norm
		}

		if score > 0 {
			results = append(results, ScoredChunk{Chunk: corpus[i], Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
