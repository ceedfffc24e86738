package retrieval

import (
	"sort"

	"github.com/kadirpekel/delphi/pkg/models"
)

// rrfConstant is the C in 1/(C + rank + 1); ranks are 0-indexed, so rank 0
// in a single list contributes exactly 1/61.
const rrfConstant = 60

// FuseRRF merges ranked lists by reciprocal rank fusion. Lists are unified
// on chunk id; the first occurrence of an id across the lists (in argument
// order) is the canonical chunk object. Ties in fused score break on chunk
// id for determinism.
func FuseRRF(lists ...[]models.SemanticChunk) []ScoredChunk {
	scores := make(map[string]float64)
	canonical := make(map[string]models.SemanticChunk)
	var order []string

	for _, list := range lists {
		for rank, chunk := range list {
			id := chunk.ChunkID
			if _, seen := canonical[id]; !seen {
				canonical[id] = chunk
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfConstant+rank+1)
		}
	}

	results := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		results = append(results, ScoredChunk{Chunk: canonical[id], Score: scores[id]})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})
	return results
}
