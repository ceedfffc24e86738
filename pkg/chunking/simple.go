package chunking

import (
	"context"
	"strings"
	"time"

	"github.com/kadirpekel/delphi/pkg/models"
)

// SimpleChunker splits a document with a character sliding window.
type SimpleChunker struct {
	config Config
}

// NewSimpleChunker creates a sliding-window chunker.
func NewSimpleChunker(cfg Config) *SimpleChunker {
	return &SimpleChunker{config: cfg}
}

// rawChunk is one window of the document before any augmentation.
type rawChunk struct {
	text   string
	offset int
}

// slidingWindow partitions content into windows of ChunkSize characters
// starting every ChunkSize-Overlap characters. Windows whose trimmed length
// is below MinChunkChars are discarded. Offsets count characters, not bytes.
func slidingWindow(content string, cfg Config) []rawChunk {
	runes := []rune(content)
	step := cfg.ChunkSize - cfg.Overlap

	var chunks []rawChunk
	for i := 0; i < len(runes); i += step {
		end := i + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		text := string(runes[i:end])
		if len(strings.TrimSpace(text)) < MinChunkChars {
			continue
		}
		chunks = append(chunks, rawChunk{text: text, offset: i})
	}
	return chunks
}

// Chunk implements Chunker.
func (c *SimpleChunker) Chunk(ctx context.Context, doc *models.WebDocumentContent, query string) ([]models.SemanticChunk, error) {
	now := time.Now()

	raw := slidingWindow(doc.Content, c.config)
	chunks := make([]models.SemanticChunk, 0, len(raw))
	for _, rc := range raw {
		chunks = append(chunks, models.SemanticChunk{
			ChunkID:   models.NewChunkID(doc.URL, rc.offset, rc.text),
			Content:   rc.text,
			SourceURL: doc.URL,
			CreatedAt: now,
			Metadata: models.ChunkMetadata{
				Position:         rc.offset,
				Query:            query,
				ParentDocumentID: doc.DocumentID,
				UpdatedAt:        now,
			},
		})
	}
	return chunks, nil
}

// Name returns the strategy name.
func (c *SimpleChunker) Name() string {
	return StrategySimple
}

var _ Chunker = (*SimpleChunker)(nil)
