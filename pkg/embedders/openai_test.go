package embedders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	var captured embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, Model: "bge-m3", Dimension: 3})
	require.NoError(t, err)

	vec, err := embedder.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "bge-m3", captured.Model)
	assert.Equal(t, "hello world", captured.Input)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, Model: "m", Dimension: 3})
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbedEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, Model: "m", Dimension: 3})
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestZeroVector(t *testing.T) {
	vec := ZeroVector(4)
	assert.Equal(t, []float32{0, 0, 0, 0}, vec)
}

func TestNewOpenAIEmbedderValidation(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 3})
	assert.Error(t, err)

	_, err = NewOpenAIEmbedder(OpenAIConfig{BaseURL: "http://x", Model: "m"})
	assert.Error(t, err)
}
