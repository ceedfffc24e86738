package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/delphi/pkg/models"
	"github.com/kadirpekel/delphi/pkg/vectorindex"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimension() int    { return len(f.vec) }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) Close() error      { return nil }

func indexedChunk(id, content string, vec []float32) models.SemanticChunk {
	return models.SemanticChunk{ChunkID: id, Content: content, SourceURL: "https://example.com", Embedding: vec}
}

func TestRetrieveCombinesDenseAndSparse(t *testing.T) {
	idx := vectorindex.New(2)
	idx.Add([]models.SemanticChunk{
		indexedChunk("near", "unrelated filler text entirely", []float32{1, 1}),
		indexedChunk("lexical", "quantum computing breakthrough announced today", []float32{100, 100}),
		indexedChunk("far", "another filler document without overlap", []float32{90, 90}),
	})

	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 1}}, idx)
	chunks, err := r.Retrieve(context.Background(), "quantum computing", 3)
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	// "near" leads dense, "lexical" leads sparse; both must surface.
	assert.Contains(t, ids, "near")
	assert.Contains(t, ids, "lexical")
}

func TestRetrieveEmbedFailureFallsBackToZeroVector(t *testing.T) {
	idx := vectorindex.New(2)
	idx.Add([]models.SemanticChunk{
		indexedChunk("a", "quantum computing news", []float32{3, 3}),
		indexedChunk("b", "completely different subject", []float32{1, 1}),
		indexedChunk("c", "yet another unrelated page", []float32{2, 2}),
	})

	r := NewRetriever(&fakeEmbedder{err: errors.New("service down")}, idx)
	chunks, err := r.Retrieve(context.Background(), "quantum computing", 3)
	require.NoError(t, err)

	// Sparse retrieval still works, so the lexical match comes first.
	require.NotEmpty(t, chunks)
	assert.Equal(t, "a", chunks[0].ChunkID)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 1}}, vectorindex.New(2))
	chunks, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestRetrieveDefaultsK(t *testing.T) {
	idx := vectorindex.New(1)
	idx.Add([]models.SemanticChunk{indexedChunk("only", "some content here", []float32{1})})

	r := NewRetriever(&fakeEmbedder{vec: []float32{1}}, idx)
	chunks, err := r.Retrieve(context.Background(), "content", 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}
