package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
)

const contextPromptTemplate = `<document>
%s
</document>

Here is the chunk we want to situate within the whole document:
<chunk>
%s
</chunk>

Please give a short succinct context (1-2 sentences) to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.`

// ContextualChunker augments each sliding-window passage with an
// LLM-generated sentence situating it in the whole document. The indexed
// content becomes "context\n\nraw"; the raw passage is preserved in chunk
// metadata and remains the basis of the chunk id, so identical passages
// share ids regardless of the generated context.
type ContextualChunker struct {
	llm    llms.Provider
	config Config
}

// NewContextualChunker creates a contextual chunker.
func NewContextualChunker(llm llms.Provider, cfg Config) *ContextualChunker {
	return &ContextualChunker{llm: llm, config: cfg}
}

// Chunk implements Chunker. Context generation calls fan out unbounded
// within the document; per-chunk failure degrades to the raw passage.
func (c *ContextualChunker) Chunk(ctx context.Context, doc *models.WebDocumentContent, query string) ([]models.SemanticChunk, error) {
	now := time.Now()

	raw := slidingWindow(doc.Content, c.config)
	chunks := make([]models.SemanticChunk, len(raw))

	g, gctx := errgroup.WithContext(ctx)
	for i, rc := range raw {
		g.Go(func() error {
			chunk := models.SemanticChunk{
				ChunkID:   models.NewChunkID(doc.URL, rc.offset, rc.text),
				SourceURL: doc.URL,
				CreatedAt: now,
				Metadata: models.ChunkMetadata{
					Position:         rc.offset,
					Query:            query,
					ParentDocumentID: doc.DocumentID,
					UpdatedAt:        now,
					OriginalContent:  rc.text,
				},
			}

			situating, err := c.generateContext(gctx, doc.Content, rc.text)
			if err != nil {
				slog.Warn("Contextual chunking fell back to raw passage",
					"url", doc.URL,
					"position", rc.offset,
					"error", err)
				chunk.Content = rc.text
				chunk.Metadata.ContextualRetrieval = models.BoolPtr(false)
			} else {
				chunk.Content = situating + "\n\n" + rc.text
				chunk.Metadata.ContextualRetrieval = models.BoolPtr(true)
			}

			chunks[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// generateContext asks the LLM for the situating sentence. The prompt embeds
// the full document once per chunk.
func (c *ContextualChunker) generateContext(ctx context.Context, document, passage string) (string, error) {
	prompt := fmt.Sprintf(contextPromptTemplate, document, passage)

	response, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("empty context from LLM")
	}
	return response, nil
}

// Name returns the strategy name.
func (c *ContextualChunker) Name() string {
	return StrategyContextual
}

var _ Chunker = (*ContextualChunker)(nil)
