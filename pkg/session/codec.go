package session

import (
	"strconv"
	"time"

	"github.com/kadirpekel/delphi/pkg/models"
)

// Payload field names shared by both store backends.
const (
	fieldChunkID             = "chunk_id"
	fieldContent             = "content"
	fieldSourceURL           = "source_url"
	fieldCreatedAt           = "created_at"
	fieldPosition            = "position"
	fieldQuery               = "query"
	fieldParentDocumentID    = "parent_document_id"
	fieldUpdatedAt           = "updated_at"
	fieldOriginalContent     = "original_content"
	fieldContextualRetrieval = "contextual_retrieval"
)

// chunkPayload flattens a chunk (minus its embedding, which the backends
// store natively) into a payload map. Optional fields are omitted when
// empty so payloads stay small.
func chunkPayload(chunk models.SemanticChunk) map[string]any {
	payload := map[string]any{
		fieldChunkID:   chunk.ChunkID,
		fieldContent:   chunk.Content,
		fieldSourceURL: chunk.SourceURL,
		fieldCreatedAt: chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldPosition:  int64(chunk.Metadata.Position),
	}
	if chunk.Metadata.Query != "" {
		payload[fieldQuery] = chunk.Metadata.Query
	}
	if chunk.Metadata.ParentDocumentID != "" {
		payload[fieldParentDocumentID] = chunk.Metadata.ParentDocumentID
	}
	if !chunk.Metadata.UpdatedAt.IsZero() {
		payload[fieldUpdatedAt] = chunk.Metadata.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if chunk.Metadata.OriginalContent != "" {
		payload[fieldOriginalContent] = chunk.Metadata.OriginalContent
	}
	if chunk.Metadata.ContextualRetrieval != nil {
		payload[fieldContextualRetrieval] = *chunk.Metadata.ContextualRetrieval
	}
	return payload
}

// chunkFromPayload rebuilds a chunk from a payload map. Values may come
// back as native types (Qdrant) or strings (chromem), so every accessor
// tolerates both.
func chunkFromPayload(payload map[string]any) models.SemanticChunk {
	chunk := models.SemanticChunk{
		ChunkID:   payloadString(payload, fieldChunkID),
		Content:   payloadString(payload, fieldContent),
		SourceURL: payloadString(payload, fieldSourceURL),
		CreatedAt: payloadTime(payload, fieldCreatedAt),
		Metadata: models.ChunkMetadata{
			Position:         payloadInt(payload, fieldPosition),
			Query:            payloadString(payload, fieldQuery),
			ParentDocumentID: payloadString(payload, fieldParentDocumentID),
			UpdatedAt:        payloadTime(payload, fieldUpdatedAt),
			OriginalContent:  payloadString(payload, fieldOriginalContent),
		},
	}
	if v, ok := payload[fieldContextualRetrieval]; ok {
		if b, ok := asBool(v); ok {
			chunk.Metadata.ContextualRetrieval = models.BoolPtr(b)
		}
	}
	return chunk
}

// stringPayload renders a payload as the string map chromem requires.
func stringPayload(payload map[string]any) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		switch t := v.(type) {
		case string:
			out[k] = t
		case bool:
			out[k] = strconv.FormatBool(t)
		case int64:
			out[k] = strconv.FormatInt(t, 10)
		default:
			out[k] = ""
		}
	}
	return out
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	switch t := payload[key].(type) {
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err == nil {
			return n
		}
	}
	return 0
}

func payloadTime(payload map[string]any, key string) time.Time {
	s := payloadString(payload, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		if err == nil {
			return b, true
		}
	}
	return false, false
}
