package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/models"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.TavilyAPIKey = "test-key"
	cfg.VectorDimension = testDimension
	return cfg
}

func newTestSystem(t *testing.T, f *testFixture, store *mockStore) *System {
	t.Helper()
	return &System{
		cfg:       testConfig(),
		sessionID: "test-session",
		pipeline:  f.pipeline,
		index:     f.index,
		store:     store,
		llm:       f.llm,
		embedder:  f.embedder,
	}
}

func TestProcessQuerySuccessSavesSession(t *testing.T) {
	search := &mockSearch{docs: []models.WebDocument{{URL: "https://a.example.com"}}}
	crawl := &mockCrawler{pages: map[string]string{"https://a.example.com": longBody("topic")}}
	f := newFixture(t, search, crawl)
	store := &mockStore{}
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")

	require.True(t, result.Success, "error: %s", result.Error)
	require.NotNil(t, result.Response)
	assert.Empty(t, result.Error)
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)

	require.Equal(t, 1, store.saveCount())
	for _, chunk := range store.saved[0] {
		assert.Len(t, chunk.Embedding, testDimension)
	}
}

func TestProcessQueryTimeoutNoSave(t *testing.T) {
	search := &mockSearch{docs: []models.WebDocument{{URL: "https://slow.example.com"}}}
	crawl := &mockCrawler{
		pages: map[string]string{"https://slow.example.com": longBody("topic")},
		delay: 500 * time.Millisecond,
	}
	f := newFixture(t, search, crawl)
	store := &mockStore{}
	sys := newTestSystem(t, f, store)
	sys.cfg.MaxProcessingTime = 0.05

	result := sys.ProcessQuery(context.Background(), "topic")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
	assert.Nil(t, result.Response)
	assert.Equal(t, 0, store.saveCount())
}

func TestProcessQueryPipelineErrorNoSave(t *testing.T) {
	search := &mockSearch{err: errors.New("search provider down")}
	f := newFixture(t, search, &mockCrawler{})
	store := &mockStore{}
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, 0, store.saveCount())
}

type panicLLM struct{ mockLLM }

func (p *panicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	panic("boom")
}

func TestProcessQueryRecoversPanic(t *testing.T) {
	search := &mockSearch{docs: []models.WebDocument{{URL: "https://a.example.com"}}}
	f := newFixture(t, search, &mockCrawler{})
	f.pipeline.llm = &panicLLM{}
	store := &mockStore{}
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panic")
	assert.Equal(t, 0, store.saveCount())
}

func TestProcessQueryResumesSession(t *testing.T) {
	stored := models.SemanticChunk{
		ChunkID:   "stored-chunk",
		Content:   "previously ingested passage about the topic with plenty of words",
		SourceURL: "https://stored.example.com",
		Embedding: []float32{1, 2, 3, 4},
	}
	store := &mockStore{loaded: []models.SemanticChunk{stored}}

	// No new material this run: search succeeds with zero documents.
	search := &mockSearch{docs: nil}
	f := newFixture(t, search, &mockCrawler{})
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")

	require.True(t, result.Success, "error: %s", result.Error)
	require.NotNil(t, result.Response)
	assert.Contains(t, result.Response.Sources, "https://stored.example.com")
}

func TestProcessQueryLoadFailureTolerated(t *testing.T) {
	search := &mockSearch{docs: []models.WebDocument{{URL: "https://a.example.com"}}}
	crawl := &mockCrawler{pages: map[string]string{"https://a.example.com": longBody("topic")}}
	f := newFixture(t, search, crawl)
	store := &mockStore{loadErr: errors.New("store unreachable")}
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")
	assert.True(t, result.Success, "error: %s", result.Error)
}

func TestProcessQuerySaveFailureStillSucceeds(t *testing.T) {
	search := &mockSearch{docs: []models.WebDocument{{URL: "https://a.example.com"}}}
	crawl := &mockCrawler{pages: map[string]string{"https://a.example.com": longBody("topic")}}
	f := newFixture(t, search, crawl)
	store := &mockStore{saveErr: errors.New("store unreachable")}
	sys := newTestSystem(t, f, store)

	result := sys.ProcessQuery(context.Background(), "topic")
	assert.True(t, result.Success, "error: %s", result.Error)
	require.NotNil(t, result.Response)
}

func TestProcessQuerySessionLoadedOnce(t *testing.T) {
	stored := models.SemanticChunk{
		ChunkID:   "stored-chunk",
		Content:   "previously ingested passage about the topic",
		SourceURL: "https://stored.example.com",
		Embedding: []float32{1, 2, 3, 4},
	}
	store := &mockStore{loaded: []models.SemanticChunk{stored}}
	search := &mockSearch{docs: nil}
	f := newFixture(t, search, &mockCrawler{})
	sys := newTestSystem(t, f, store)

	sys.ProcessQuery(context.Background(), "first")
	sys.ProcessQuery(context.Background(), "second")

	// The stored chunk must not be indexed twice.
	count := 0
	for _, c := range f.index.Chunks() {
		if c.ChunkID == "stored-chunk" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNewSystemValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkOverlap = cfg.ChunkSize + 1
	_, err := NewSystem(cfg, "")
	assert.Error(t, err)
}

func TestNewSystemGeneratesSessionID(t *testing.T) {
	sys, err := NewSystem(testConfig(), "")
	require.NoError(t, err)
	defer sys.Close()
	assert.NotEmpty(t, sys.SessionID())
}
