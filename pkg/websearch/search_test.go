package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/delphi/pkg/config"
)

func TestTavilySearch(t *testing.T) {
	var captured tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://a.example","title":"A","content":"snippet a"},
			{"url":"https://b.example","title":"B","content":"snippet b"}
		]}`))
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("tvly-key")
	require.NoError(t, err)
	provider.endpoint = server.URL

	docs, err := provider.Search(context.Background(), "what is ai", 7)
	require.NoError(t, err)

	assert.Equal(t, "tvly-key", captured.APIKey)
	assert.Equal(t, "what is ai", captured.Query)
	assert.Equal(t, "basic", captured.SearchDepth)
	assert.False(t, captured.IncludeAnswer)
	assert.Equal(t, 7, captured.MaxResults)

	require.Len(t, docs, 2)
	assert.Equal(t, "https://a.example", docs[0].URL)
	assert.Equal(t, "snippet a", docs[0].Snippet)
	assert.Equal(t, "what is ai", docs[0].SearchQuery)
}

func TestTavilySearchTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://a.example"},{"url":"https://b.example"},{"url":"https://c.example"}
		]}`))
	}))
	defer server.Close()

	provider, err := NewTavilyProvider("key")
	require.NoError(t, err)
	provider.endpoint = server.URL

	docs, err := provider.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestGoogleSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "api-key", q.Get("key"))
		assert.Equal(t, "cx-id", q.Get("cx"))
		assert.Equal(t, "test query", q.Get("q"))
		assert.Equal(t, "5", q.Get("num"))
		_, _ = w.Write([]byte(`{"items":[{"link":"https://x.example","title":"X","snippet":"about x"}]}`))
	}))
	defer server.Close()

	provider, err := NewGoogleProvider("api-key", "cx-id")
	require.NoError(t, err)
	provider.endpoint = server.URL

	docs, err := provider.Search(context.Background(), "test query", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://x.example", docs[0].URL)
	assert.Equal(t, "about x", docs[0].Snippet)
}

func TestGoogleSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	provider, err := NewGoogleProvider("k", "cx")
	require.NoError(t, err)
	provider.endpoint = server.URL

	_, err = provider.Search(context.Background(), "q", 5)
	require.Error(t, err)

	var serr *SearchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "google", serr.Provider)
	assert.Equal(t, "q", serr.Query)
}

func TestNewProviderSelection(t *testing.T) {
	cfg := config.Default()
	cfg.TavilyAPIKey = "k"
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "tavily", p.Name())

	cfg = config.Default()
	cfg.SearchProvider = config.SearchProviderGoogle
	cfg.GoogleAPIKey = "k"
	cfg.GoogleCX = "cx"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}

func TestNewProviderMissingKeys(t *testing.T) {
	cfg := config.Default()
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}
