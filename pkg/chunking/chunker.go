// Package chunking splits crawled documents into overlapping passages ready
// for embedding. Two strategies exist: a plain sliding window and a
// contextual variant that prepends an LLM-generated situating sentence to
// each passage before indexing.
package chunking

import (
	"context"
	"fmt"

	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
)

// Strategy names.
const (
	StrategySimple     = "simple"
	StrategyContextual = "contextual"
)

// MinChunkChars is the minimum trimmed passage length; shorter chunks are
// discarded.
const MinChunkChars = 50

// Chunker is the document-splitting capability consumed by stage 4.
type Chunker interface {
	// Chunk splits one document into semantic chunks. The query is recorded
	// in chunk metadata for later inspection.
	Chunk(ctx context.Context, doc *models.WebDocumentContent, query string) ([]models.SemanticChunk, error)

	// Name returns the strategy name.
	Name() string
}

// Config holds chunking parameters.
type Config struct {
	Strategy  string `yaml:"strategy"`
	ChunkSize int    `yaml:"chunk_size"`
	Overlap   int    `yaml:"chunk_overlap"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategySimple
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.Overlap == 0 {
		c.Overlap = 200
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", c.Overlap, c.ChunkSize)
	}
	switch c.Strategy {
	case StrategySimple, StrategyContextual:
	default:
		return fmt.Errorf("invalid chunking strategy: %s (must be %q or %q)",
			c.Strategy, StrategySimple, StrategyContextual)
	}
	return nil
}

// NewChunker creates a chunker for the configured strategy. The LLM provider
// is only required for the contextual strategy.
func NewChunker(llm llms.Provider, cfg Config) (Chunker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case StrategyContextual:
		if llm == nil {
			return nil, fmt.Errorf("contextual chunking requires an LLM provider")
		}
		return NewContextualChunker(llm, cfg), nil
	default:
		return NewSimpleChunker(cfg), nil
	}
}
