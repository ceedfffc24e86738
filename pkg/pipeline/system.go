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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/delphi/pkg/chunking"
	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/crawler"
	"github.com/kadirpekel/delphi/pkg/embedders"
	"github.com/kadirpekel/delphi/pkg/llms"
	"github.com/kadirpekel/delphi/pkg/models"
	"github.com/kadirpekel/delphi/pkg/reranking"
	"github.com/kadirpekel/delphi/pkg/session"
	"github.com/kadirpekel/delphi/pkg/vectorindex"
	"github.com/kadirpekel/delphi/pkg/websearch"
)

// Result is the outcome of one ProcessQuery call. ProcessQuery encodes
// every outcome here; it never returns a Go error and never panics.
type Result struct {
	Success        bool               `json:"success"`
	Response       *models.QAResponse `json:"response,omitempty"`
	Error          string             `json:"error,omitempty"`
	ProcessingTime float64            `json:"processing_time"`
}

// System owns the pipeline, the in-memory index and the session store
// for one session. Construction validates configuration and connects
// providers; queries after that cannot fail on configuration.
type System struct {
	cfg       *config.Config
	sessionID string
	pipeline  *Pipeline
	index     *vectorindex.FlatIndex
	store     session.Store
	llm       llms.Provider
	embedder  embedders.Provider
	loadOnce  sync.Once
}

// NewSystem builds the full component graph from configuration. An empty
// sessionID starts a fresh session with a generated id.
func NewSystem(cfg *config.Config, sessionID string) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	llm, err := llms.NewOpenAIProvider(llms.OpenAIConfig{
		BaseURL: cfg.VLLMBaseURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.LLMAPIKey,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := embedders.NewOpenAIEmbedder(embedders.OpenAIConfig{
		BaseURL:   cfg.VLLMBaseURL,
		Model:     cfg.EmbeddingModel,
		APIKey:    cfg.LLMAPIKey,
		Dimension: cfg.VectorDimension,
	})
	if err != nil {
		return nil, err
	}

	search, err := websearch.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	chunker, err := chunking.NewChunker(llm, chunking.Config{
		Strategy:  cfg.ChunkingStrategy,
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	reranker, err := reranking.NewReranker(cfg, llm)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	index := vectorindex.New(cfg.VectorDimension)

	p := New(Options{
		LLM:                 llm,
		Embedder:            embedder,
		Search:              search,
		Crawler:             crawler.New(),
		Chunker:             chunker,
		Index:               index,
		Reranker:            reranker,
		MaxResults:          cfg.MaxResults,
		MaxConcurrentChunks: cfg.MaxConcurrentChunks,
	})

	return &System{
		cfg:       cfg,
		sessionID: sessionID,
		pipeline:  p,
		index:     index,
		store:     store,
		llm:       llm,
		embedder:  embedder,
	}, nil
}

// SessionID returns the session this system reads and writes.
func (s *System) SessionID() string {
	return s.sessionID
}

type runOutcome struct {
	response *models.QAResponse
	err      error
}

// ProcessQuery runs one query end to end under the configured deadline.
// Session chunks are loaded into the index before the run and the index
// is saved back after a successful run; both are best effort.
func (s *System) ProcessQuery(ctx context.Context, query string) Result {
	start := time.Now()

	s.loadSession(ctx)

	timeout := time.Duration(s.cfg.MaxProcessingTime * float64(time.Second))
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- runOutcome{err: fmt.Errorf("pipeline panic: %v", r)}
			}
		}()
		response, err := s.pipeline.Run(runCtx, query)
		outcome <- runOutcome{response: response, err: err}
	}()

	var out runOutcome
	select {
	case <-runCtx.Done():
		out = runOutcome{err: runCtx.Err()}
	case out = <-outcome:
	}
	elapsed := time.Since(start).Seconds()

	// The deadline wins over whatever the pipeline produced: a run that
	// straddles it is a timeout, its partial results are discarded.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		slog.Error("Query processing timeout", "query", query, "timeout", timeout)
		return Result{
			Success:        false,
			Error:          fmt.Sprintf("processing timeout after %.1fs", timeout.Seconds()),
			ProcessingTime: elapsed,
		}
	}
	if out.err != nil {
		slog.Error("Query processing failed", "query", query, "error", out.err)
		return Result{Success: false, Error: out.err.Error(), ProcessingTime: elapsed}
	}

	s.saveSession(ctx)
	return Result{Success: true, Response: out.response, ProcessingTime: elapsed}
}

// Close releases the providers and the session store.
func (s *System) Close() error {
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.llm.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// loadSession pre-populates the index with the session's stored chunks,
// once per System. Failures degrade to an empty session.
func (s *System) loadSession(ctx context.Context) {
	s.loadOnce.Do(func() {
		chunks, err := s.store.Load(ctx, s.sessionID, session.DefaultLoadLimit)
		if err != nil {
			slog.Warn("Session load failed, starting with empty index",
				"session_id", s.sessionID, "error", err)
			return
		}
		if len(chunks) == 0 {
			return
		}
		added := s.index.Add(chunks)
		slog.Info("Session restored", "session_id", s.sessionID, "chunks", added)
	})
}

// saveSession persists the indexed chunks. Failures are logged and
// swallowed; the answer has already been produced.
func (s *System) saveSession(ctx context.Context) {
	chunks := s.index.Chunks()
	if len(chunks) == 0 {
		return
	}
	if err := s.store.Save(ctx, s.sessionID, chunks); err != nil {
		slog.Error("Session save failed", "session_id", s.sessionID, "error", err)
		return
	}
	slog.Debug("Session saved", "session_id", s.sessionID, "chunks", len(chunks))
}
