package retrieval

import (
	"context"
	"log/slog"

	"github.com/kadirpekel/delphi/pkg/embedders"
	"github.com/kadirpekel/delphi/pkg/models"
	"github.com/kadirpekel/delphi/pkg/vectorindex"
)

// DefaultTopK is the candidate count handed to the reranker.
const DefaultTopK = 20

// Retriever runs hybrid search: dense nearest neighbours from the flat
// index and BM25 over the same chunk list, fused with RRF.
type Retriever struct {
	embedder embedders.Provider
	index    *vectorindex.FlatIndex
}

// NewRetriever builds a retriever over the given embedder and index.
func NewRetriever(embedder embedders.Provider, index *vectorindex.FlatIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to k chunks for the query, best first. A query
// embedding failure degrades to a zero vector so the sparse side still
// contributes; an empty index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.SemanticChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if r.index.Size() == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("Query embedding failed, dense retrieval degraded", "error", err)
		queryVec = embedders.ZeroVector(r.index.Dimension())
	}

	denseHits := r.index.Search(queryVec, k)
	dense := make([]models.SemanticChunk, len(denseHits))
	for i, hit := range denseHits {
		dense[i] = hit.Chunk
	}

	corpus := r.index.Chunks()
	sparseHits := BM25Search(query, corpus, k)
	sparse := make([]models.SemanticChunk, len(sparseHits))
	for i, hit := range sparseHits {
		sparse[i] = hit.Chunk
	}

	fused := FuseRRF(dense, sparse)
	if len(fused) > k {
		fused = fused[:k]
	}

	chunks := make([]models.SemanticChunk, len(fused))
	for i, sc := range fused {
		chunks[i] = sc.Chunk
	}
	return chunks, nil
}
