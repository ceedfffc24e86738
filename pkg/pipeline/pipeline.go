// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline orchestrates the seven-stage question answering run:
// query expansion, web search, crawling, chunking, embedding + indexing,
// hybrid retrieval + reranking, and answer generation. System is the
// public entry point; Pipeline is the run loop over injected components.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kadirpekel/delphi/pkg/chunking"
	"github.com/kadirpekel/delphi/pkg/crawler"
	"github.com/kadirpekel/delphi/pkg/embedders"
	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
	"github.com/kadirpekel/delphi/pkg/reranking"
	"github.com/kadirpekel/delphi/pkg/retrieval"
	"github.com/kadirpekel/delphi/pkg/vectorindex"
	"github.com/kadirpekel/delphi/pkg/websearch"
)

const (
	// MaxCrawlURLs caps how many unique URLs stage 3 fetches per run.
	MaxCrawlURLs = 10

	// maxExpansions caps the reformulations kept from stage 1.
	maxExpansions = 3
)

var numberedLinePattern = regexp.MustCompile(`^\s*\d+\.\s*(.+)$`)

// Options wires the pipeline's components. All fields are required
// except MaxResults and MaxConcurrentChunks, which default.
type Options struct {
	LLM                 llms.Provider
	Embedder            embedders.Provider
	Search              websearch.Provider
	Crawler             crawler.Crawler
	Chunker             chunking.Chunker
	Index               *vectorindex.FlatIndex
	Reranker            reranking.Reranker
	MaxResults          int
	MaxConcurrentChunks int
}

// Pipeline runs the staged workflow. Stages are sequential; fan-out
// happens inside a stage.
type Pipeline struct {
	llm                 llms.Provider
	embedder            embedders.Provider
	search              websearch.Provider
	crawler             crawler.Crawler
	chunker             chunking.Chunker
	index               *vectorindex.FlatIndex
	retriever           *retrieval.Retriever
	reranker            reranking.Reranker
	maxResults          int
	maxConcurrentChunks int64
}

// New assembles a pipeline from its components.
func New(opts Options) *Pipeline {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = websearch.DefaultMaxResults
	}
	concurrent := opts.MaxConcurrentChunks
	if concurrent <= 0 {
		concurrent = 2
	}
	return &Pipeline{
		llm:                 opts.LLM,
		embedder:            opts.Embedder,
		search:              opts.Search,
		crawler:             opts.Crawler,
		chunker:             opts.Chunker,
		index:               opts.Index,
		retriever:           retrieval.NewRetriever(opts.Embedder, opts.Index),
		reranker:            opts.Reranker,
		maxResults:          maxResults,
		maxConcurrentChunks: int64(concurrent),
	}
}

// Run executes one query through all stages and returns the response.
// The context bounds the whole run; cancellation aborts in-flight work.
func (p *Pipeline) Run(ctx context.Context, query string) (*models.QAResponse, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := slog.With("run_id", runID)
	log.Info("Pipeline run started", "query", query)

	searchQuery := p.expandQuery(ctx, query)
	log.Debug("Query expanded", "expansions", searchQuery.ProcessedQueries)

	docs, err := p.searchWeb(ctx, searchQuery)
	if err != nil {
		return nil, err
	}
	log.Debug("Search completed", "documents", len(docs))

	contents := p.crawlAll(ctx, docs)
	log.Debug("Crawl completed", "pages", len(contents))

	chunks, err := p.chunkAll(ctx, contents, query)
	if err != nil {
		return nil, err
	}
	log.Debug("Chunking completed", "chunks", len(chunks))

	p.embedAndIndex(ctx, chunks)

	pad, err := p.retrieveAndRerank(ctx, query)
	if err != nil {
		return nil, err
	}

	response, err := p.answer(ctx, query, pad)
	if err != nil {
		return nil, err
	}
	response.ProcessingTime = time.Since(start).Seconds()

	log.Info("Pipeline run completed",
		"sources", len(response.Sources),
		"processing_time", response.ProcessingTime)
	return response, nil
}

// expandQuery is stage 1. It never fails the run: any LLM or parsing
// problem degrades to the user query as the single expansion.
func (p *Pipeline) expandQuery(ctx context.Context, query string) models.SearchQuery {
	response, err := p.llm.Generate(ctx, fmt.Sprintf(queryExpansionPromptTemplate, query))
	if err != nil {
		slog.Warn("Query expansion failed, using original query", "error", err)
		return models.NewSearchQuery(query, nil)
	}

	expansions := parseNumberedList(response)
	if len(expansions) == 0 {
		slog.Warn("No expansions parsed from LLM response, using original query")
		return models.NewSearchQuery(query, nil)
	}
	if len(expansions) > maxExpansions {
		expansions = expansions[:maxExpansions]
	}
	return models.NewSearchQuery(query, expansions)
}

// parseNumberedList extracts the trailing text of lines shaped like
// "1. some query", preserving case and order.
func parseNumberedList(response string) []string {
	var items []string
	for _, line := range strings.Split(response, "\n") {
		m := numberedLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// searchWeb is stage 2: one search per expansion, in parallel. Failed
// expansions are logged and skipped; the stage fails only when every
// expansion failed.
func (p *Pipeline) searchWeb(ctx context.Context, query models.SearchQuery) ([]models.WebDocument, error) {
	perQuery := make([][]models.WebDocument, len(query.ProcessedQueries))
	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range query.ProcessedQueries {
		g.Go(func() error {
			docs, err := p.search.Search(gctx, q, p.maxResults)
			if err != nil {
				slog.Warn("Search failed for expansion", "query", q, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			perQuery[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if failures == len(query.ProcessedQueries) {
		return nil, fmt.Errorf("all %d search queries failed", failures)
	}

	var docs []models.WebDocument
	for _, batch := range perQuery {
		docs = append(docs, batch...)
	}
	return docs, nil
}

// crawlAll is stage 3: fetch the first MaxCrawlURLs unique URLs in
// parallel. Failed fetches are logged and dropped; an empty result is
// not fatal.
func (p *Pipeline) crawlAll(ctx context.Context, docs []models.WebDocument) []*models.WebDocumentContent {
	urls := uniqueURLs(docs, MaxCrawlURLs)
	results := make([]*models.WebDocumentContent, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		g.Go(func() error {
			content, err := p.crawler.Crawl(gctx, url)
			if err != nil {
				slog.Warn("Crawl failed, skipping URL", "url", url, "error", err)
				return nil
			}
			results[i] = content
			return nil
		})
	}
	_ = g.Wait()

	contents := make([]*models.WebDocumentContent, 0, len(results))
	for _, c := range results {
		if c != nil {
			contents = append(contents, c)
		}
	}
	return contents
}

// uniqueURLs keeps the first occurrence of each URL, capped at limit.
func uniqueURLs(docs []models.WebDocument, limit int) []string {
	seen := make(map[string]bool, len(docs))
	var urls []string
	for _, doc := range docs {
		if doc.URL == "" || seen[doc.URL] {
			continue
		}
		seen[doc.URL] = true
		urls = append(urls, doc.URL)
		if len(urls) == limit {
			break
		}
	}
	return urls
}

// chunkAll is stage 4: per-document chunking under a weighted semaphore
// bounding cross-document concurrency. A document that fails to chunk
// aborts the stage; chunk order follows document order, offset order
// within a document.
func (p *Pipeline) chunkAll(ctx context.Context, contents []*models.WebDocumentContent, query string) ([]models.SemanticChunk, error) {
	perDoc := make([][]models.SemanticChunk, len(contents))
	sem := semaphore.NewWeighted(p.maxConcurrentChunks)

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range contents {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			chunks, err := p.chunker.Chunk(gctx, doc, query)
			if err != nil {
				return fmt.Errorf("chunking %s: %w", doc.URL, err)
			}
			perDoc[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []models.SemanticChunk
	for _, batch := range perDoc {
		chunks = append(chunks, batch...)
	}
	return chunks, nil
}

// embedAndIndex is stage 5: sequential embedding, zero vector on
// failure so the chunk still indexes and persists.
func (p *Pipeline) embedAndIndex(ctx context.Context, chunks []models.SemanticChunk) {
	for i := range chunks {
		embedding, err := p.embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			slog.Warn("Embedding failed, substituting zero vector",
				"chunk_id", chunks[i].ChunkID, "error", err)
			embedding = embedders.ZeroVector(p.index.Dimension())
		}
		chunks[i].Embedding = embedding
	}
	added := p.index.Add(chunks)
	if added < len(chunks) {
		slog.Warn("Some chunks were not indexed",
			"indexed", added, "total", len(chunks))
	}
}

// retrieveAndRerank is stage 6: hybrid retrieval of candidates, then
// rerank down to the scratchpad.
func (p *Pipeline) retrieveAndRerank(ctx context.Context, query string) (*models.ScratchPad, error) {
	candidates, err := p.retriever.Retrieve(ctx, query, retrieval.DefaultTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	ranked, scores, err := p.reranker.Rerank(ctx, query, candidates, reranking.DefaultTopK)
	if err != nil {
		slog.Warn("Reranking failed, keeping retrieval order", "error", err)
		ranked = candidates
		if len(ranked) > reranking.DefaultTopK {
			ranked = ranked[:reranking.DefaultTopK]
		}
		scores = make([]float64, len(ranked))
	}

	return &models.ScratchPad{Query: query, Chunks: ranked, Scores: scores}, nil
}

// answer is stage 7. An LLM failure here fails the run; there is no
// weaker fallback for the final artifact.
func (p *Pipeline) answer(ctx context.Context, query string, pad *models.ScratchPad) (*models.QAResponse, error) {
	blocks := make([]string, 0, len(pad.Chunks))
	for _, chunk := range pad.Chunks {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", chunk.SourceURL, chunk.Content))
	}
	contextText := strings.Join(blocks, "\n\n")

	answer, err := p.llm.Generate(ctx, fmt.Sprintf(answerPromptTemplate, contextText, query))
	if err != nil {
		return nil, fmt.Errorf("answer generation: %w", err)
	}

	return &models.QAResponse{
		Query:      query,
		Answer:     answer,
		Sources:    pad.SourceURLs(),
		Confidence: meanScore(pad.Scores),
	}, nil
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
