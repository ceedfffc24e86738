package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/delphi/pkg/models"
)

func sampleChunk() models.SemanticChunk {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.SemanticChunk{
		ChunkID:   "abc123",
		Content:   "contextualised passage",
		SourceURL: "https://example.com/page",
		Embedding: []float32{0.1, 0.2},
		Metadata: models.ChunkMetadata{
			Position:            800,
			Query:               "original question",
			ParentDocumentID:    "doc-1",
			UpdatedAt:           created,
			OriginalContent:     "raw passage",
			ContextualRetrieval: models.BoolPtr(true),
		},
		CreatedAt: created,
	}
}

func TestChunkPayloadRoundTrip(t *testing.T) {
	chunk := sampleChunk()

	got := chunkFromPayload(chunkPayload(chunk))

	assert.Equal(t, chunk.ChunkID, got.ChunkID)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.SourceURL, got.SourceURL)
	assert.True(t, chunk.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, chunk.Metadata.Position, got.Metadata.Position)
	assert.Equal(t, chunk.Metadata.Query, got.Metadata.Query)
	assert.Equal(t, chunk.Metadata.ParentDocumentID, got.Metadata.ParentDocumentID)
	assert.Equal(t, chunk.Metadata.OriginalContent, got.Metadata.OriginalContent)
	require.NotNil(t, got.Metadata.ContextualRetrieval)
	assert.True(t, *got.Metadata.ContextualRetrieval)
}

func TestChunkPayloadRoundTripThroughStrings(t *testing.T) {
	// chromem stores metadata as strings; decoding must survive the
	// string representation of every field.
	chunk := sampleChunk()

	stringly := stringPayload(chunkPayload(chunk))
	payload := make(map[string]any, len(stringly))
	for k, v := range stringly {
		payload[k] = v
	}

	got := chunkFromPayload(payload)
	assert.Equal(t, chunk.ChunkID, got.ChunkID)
	assert.Equal(t, 800, got.Metadata.Position)
	assert.True(t, chunk.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.Metadata.ContextualRetrieval)
	assert.True(t, *got.Metadata.ContextualRetrieval)
}

func TestChunkPayloadOmitsEmptyOptionalFields(t *testing.T) {
	payload := chunkPayload(models.SemanticChunk{ChunkID: "x", Content: "y", SourceURL: "z"})

	assert.NotContains(t, payload, fieldQuery)
	assert.NotContains(t, payload, fieldParentDocumentID)
	assert.NotContains(t, payload, fieldUpdatedAt)
	assert.NotContains(t, payload, fieldOriginalContent)
	assert.NotContains(t, payload, fieldContextualRetrieval)
}

func TestEmbeddedOnly(t *testing.T) {
	chunks := []models.SemanticChunk{
		{ChunkID: "with", Embedding: []float32{1}},
		{ChunkID: "without"},
	}
	filtered := embeddedOnly(chunks)
	require.Len(t, filtered, 1)
	assert.Equal(t, "with", filtered[0].ChunkID)
}

func TestPointIDDeterministic(t *testing.T) {
	id := "9e107d9d372bb6826bd81d3542a419d6"
	assert.Equal(t, pointID(id), pointID(id))
	assert.NotEqual(t, pointID(id), pointID("e4d909c290d0fb1ca068ffaddf22cbd0"))
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "session_abc", collectionName("abc"))
}
