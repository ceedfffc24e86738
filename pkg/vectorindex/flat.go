// Package vectorindex provides the in-memory flat L2 index holding the
// active run's chunk vectors.
package vectorindex

import (
	"math"
	"sort"
	"sync"

	"github.com/kadirpekel/delphi/pkg/models"
)

// Result is one index hit. Score is L2 distance: lower is better. The
// retrieval layer treats it purely as a rank.
type Result struct {
	Chunk models.SemanticChunk
	Score float64
}

// FlatIndex is a brute-force L2 index over vectors of one fixed dimension.
// The chunk list is positionally aligned with the vector list: index id i
// resolves to chunks[i]. Chunks are stored by value on insert.
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	chunks    []models.SemanticChunk
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) *FlatIndex {
	return &FlatIndex{dimension: dimension}
}

// Dimension returns the index vector dimension.
func (idx *FlatIndex) Dimension() int {
	return idx.dimension
}

// Add appends chunks that carry an embedding of the index dimension and
// returns how many were added. Chunks without a matching embedding are
// skipped silently; the caller decides whether that is worth logging.
func (idx *FlatIndex) Add(chunks []models.SemanticChunk) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	added := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) != idx.dimension {
			continue
		}
		idx.vectors = append(idx.vectors, chunk.Embedding)
		idx.chunks = append(idx.chunks, chunk)
		added++
	}
	return added
}

// Search returns the k nearest chunks to vec by L2 distance, closest first.
func (idx *FlatIndex) Search(vec []float32, k int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(vec) != idx.dimension || k <= 0 || len(idx.vectors) == 0 {
		return nil
	}

	results := make([]Result, len(idx.vectors))
	for i, v := range idx.vectors {
		results[i] = Result{Chunk: idx.chunks[i], Score: l2Distance(vec, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Chunks returns a copy of the aligned chunk list. BM25 scoring and the
// session save both read it.
func (idx *FlatIndex) Chunks() []models.SemanticChunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]models.SemanticChunk, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// Size returns the number of indexed chunks.
func (idx *FlatIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Clear resets both the vector array and the chunk list.
func (idx *FlatIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = nil
	idx.chunks = nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
