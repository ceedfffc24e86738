// Package models defines the entities that flow through the question
// answering pipeline: the expanded query, search results, crawled page
// content, semantic chunks, the retrieval scratchpad and the final response.
//
// All types serialise to JSON; the session store persists chunks as their
// JSON field set.
package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultLanguage is the language tag assigned to new queries.
const DefaultLanguage = "ko"

// SearchQuery is one user question plus its search-ready expansions.
// It is created by the query expander and read-only afterwards.
type SearchQuery struct {
	OriginalQuery    string    `json:"original_query"`
	ProcessedQueries []string  `json:"processed_queries"`
	Language         string    `json:"language"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewSearchQuery builds a SearchQuery, falling back to the original question
// as the single expansion when none are supplied.
func NewSearchQuery(original string, processed []string) SearchQuery {
	if len(processed) == 0 {
		processed = []string{original}
	}
	return SearchQuery{
		OriginalQuery:    original,
		ProcessedQueries: processed,
		Language:         DefaultLanguage,
		Timestamp:        time.Now(),
	}
}

// Primary returns the first processed query.
func (q SearchQuery) Primary() string {
	if len(q.ProcessedQueries) > 0 {
		return q.ProcessedQueries[0]
	}
	return q.OriginalQuery
}

// WebDocument is a search-result reference: URL plus provider metadata,
// no page body.
type WebDocument struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`

	// SearchQuery records which expansion produced this result.
	SearchQuery string `json:"search_query"`
}

// WebDocumentContent is a fetched page body in markdown form.
type WebDocumentContent struct {
	URL           string            `json:"url"`
	Content       string            `json:"content"`
	CrawlDatetime time.Time         `json:"crawl_datetime"`
	DocumentID    string            `json:"document_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewWebDocumentContent builds page content with a stable document id
// derived from the URL and the crawl instant.
func NewWebDocumentContent(url, content string, crawledAt time.Time) *WebDocumentContent {
	return &WebDocumentContent{
		URL:           url,
		Content:       content,
		CrawlDatetime: crawledAt,
		DocumentID:    NewDocumentID(url, crawledAt),
	}
}

// ChunkMetadata carries the per-chunk attributes the pipeline consumes.
// ContextualRetrieval is nil when context augmentation was never attempted,
// false when the LLM call failed and the raw passage was kept.
type ChunkMetadata struct {
	Position            int       `json:"position"`
	Query               string    `json:"query,omitempty"`
	ParentDocumentID    string    `json:"parent_document_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
	OriginalContent     string    `json:"original_content,omitempty"`
	ContextualRetrieval *bool     `json:"contextual_retrieval,omitempty"`
}

// SemanticChunk is the atomic unit of retrieval.
//
// Invariants: ChunkID is a pure function of (source URL, offset, first 50
// characters of the raw passage); when Embedding is set its length equals
// the vector index dimension.
type SemanticChunk struct {
	ChunkID   string        `json:"chunk_id"`
	Content   string        `json:"content"`
	SourceURL string        `json:"source_url"`
	Embedding []float32     `json:"embedding,omitempty"`
	Metadata  ChunkMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *SemanticChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScratchPad is the reranked result set handed to the answerer.
// Scores is parallel to Chunks.
type ScratchPad struct {
	Query    string            `json:"query"`
	Chunks   []SemanticChunk   `json:"chunks"`
	Scores   []float64         `json:"scores"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SourceURLs returns the chunk source URLs in scratchpad order.
// Duplicates are preserved: repetition is evidence of rank.
func (s *ScratchPad) SourceURLs() []string {
	urls := make([]string, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		urls = append(urls, c.SourceURL)
	}
	return urls
}

// QAResponse is the terminal artifact of a pipeline run.
type QAResponse struct {
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	Confidence     float64  `json:"confidence"`
	ProcessingTime float64  `json:"processing_time"`
}

// NewChunkID derives the deterministic chunk identifier: the MD5 hex digest
// of the source URL, the chunk's character offset and the first 50
// characters of the raw passage. Offsets and the 50-character head count
// Unicode characters, not bytes.
func NewChunkID(sourceURL string, offset int, passage string) string {
	head := []rune(passage)
	if len(head) > 50 {
		head = head[:50]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", sourceURL, offset, string(head))))
	return hex.EncodeToString(sum[:])
}

// NewDocumentID derives a stable identifier for one crawl of one URL.
func NewDocumentID(url string, crawledAt time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", url, crawledAt.UTC().Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:])
}

// BoolPtr returns a pointer to b, for optional metadata flags.
func BoolPtr(b bool) *bool {
	return &b
}
