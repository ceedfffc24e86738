package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/delphi/pkg/models"
)

// mockLLM answers expansion prompts with a canned numbered list and
// everything else with a fixed answer.
type mockLLM struct {
	mu         sync.Mutex
	expansions string
	answer     string
	err        error
	calls      []string
}

func newMockLLM() *mockLLM {
	return &mockLLM{
		expansions: "1. first query\n2. second query\n3. third query",
		answer:     "the answer",
	}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if strings.Contains(prompt, "numbered list") {
		return m.expansions, nil
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }
func (m *mockLLM) Close() error      { return nil }

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1]
}

// mockEmbedder returns a deterministic vector per text.
type mockEmbedder struct {
	dimension int
	err       error
	mu        sync.Mutex
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	vec := make([]float32, m.dimension)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) + 1
	}
	return vec, nil
}

func (m *mockEmbedder) Dimension() int    { return m.dimension }
func (m *mockEmbedder) ModelName() string { return "mock-embedder" }
func (m *mockEmbedder) Close() error      { return nil }

// mockSearch returns the same documents for every expansion, or fails.
type mockSearch struct {
	docs []models.WebDocument
	err  error
	mu   sync.Mutex
	seen []string
}

func (m *mockSearch) Search(ctx context.Context, query string, maxResults int) ([]models.WebDocument, error) {
	m.mu.Lock()
	m.seen = append(m.seen, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockSearch) Name() string { return "mock-search" }

// mockCrawler serves canned page bodies by URL; unknown URLs fail. An
// optional delay simulates slow fetches.
type mockCrawler struct {
	pages map[string]string
	delay time.Duration
	mu    sync.Mutex
	urls  []string
}

func (m *mockCrawler) Crawl(ctx context.Context, url string) (*models.WebDocumentContent, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	body, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch failed for %s", url)
	}
	return models.NewWebDocumentContent(url, body, time.Now()), nil
}

func (m *mockCrawler) crawledURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.urls))
	copy(out, m.urls)
	return out
}

// mockStore records saves and serves canned loads.
type mockStore struct {
	mu      sync.Mutex
	loaded  []models.SemanticChunk
	loadErr error
	saved   [][]models.SemanticChunk
	saveErr error
}

func (m *mockStore) Load(ctx context.Context, sessionID string, limit int) ([]models.SemanticChunk, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.loaded, nil
}

func (m *mockStore) Save(ctx context.Context, sessionID string, chunks []models.SemanticChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, chunks)
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}
