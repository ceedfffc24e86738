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

// Package config defines the pipeline configuration: YAML keys, defaults,
// environment overrides and validation. Invalid configuration fails at
// system construction, never at query time.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Search provider names.
const (
	SearchProviderTavily = "tavily"
	SearchProviderGoogle = "google"
)

// Chunking strategy names.
const (
	ChunkingSimple     = "simple"
	ChunkingContextual = "contextual"
)

// Reranker names.
const (
	RerankerOverlap = "overlap"
	RerankerLLM     = "llm"
)

// Session store provider names.
const (
	SessionStoreQdrant  = "qdrant"
	SessionStoreChromem = "chromem"
)

// Config holds every knob the pipeline reads. Zero values are filled by
// SetDefaults; Validate enforces the cross-field invariants.
type Config struct {
	// LLM inference.
	LLMModel       string `yaml:"llm_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	VLLMBaseURL    string `yaml:"vllm_base_url"`
	LLMAPIKey      string `yaml:"llm_api_key,omitempty"`

	// Web search.
	SearchProvider string `yaml:"search_provider"`
	TavilyAPIKey   string `yaml:"tavily_api_key,omitempty"`
	GoogleAPIKey   string `yaml:"google_api_key,omitempty"`
	GoogleCX       string `yaml:"google_cx,omitempty"`
	MaxResults     int    `yaml:"max_results"`

	// Chunking and indexing.
	VectorDimension     int    `yaml:"vector_dimension"`
	ChunkSize           int    `yaml:"chunk_size"`
	ChunkOverlap        int    `yaml:"chunk_overlap"`
	ChunkingStrategy    string `yaml:"chunking_strategy"`
	MaxConcurrentChunks int    `yaml:"max_concurrent_chunks"`

	// Retrieval.
	Reranker string `yaml:"reranker"`

	// Pipeline.
	MaxProcessingTime float64 `yaml:"max_processing_time"`

	// Session persistence.
	SessionStore string `yaml:"session_store"`
	QdrantHost   string `yaml:"qdrant_host"`
	QdrantPort   int    `yaml:"qdrant_port"`
	ChromemPath  string `yaml:"chromem_path,omitempty"`

	// Logging.
	LogLevel string `yaml:"log_level"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.LLMModel == "" {
		c.LLMModel = "meta-llama/Llama-2-7b-chat-hf"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "BAAI/bge-m3"
	}
	if c.VLLMBaseURL == "" {
		c.VLLMBaseURL = "http://localhost:8000/v1"
	}
	if c.SearchProvider == "" {
		c.SearchProvider = SearchProviderTavily
	}
	if c.MaxResults == 0 {
		c.MaxResults = 7
	}
	if c.VectorDimension == 0 {
		c.VectorDimension = 1024
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
	if c.ChunkingStrategy == "" {
		c.ChunkingStrategy = ChunkingSimple
	}
	if c.MaxConcurrentChunks == 0 {
		c.MaxConcurrentChunks = 2
	}
	if c.Reranker == "" {
		c.Reranker = RerankerOverlap
	}
	if c.MaxProcessingTime == 0 {
		c.MaxProcessingTime = 10.0
	}
	if c.SessionStore == "" {
		c.SessionStore = SessionStoreChromem
	}
	if c.QdrantHost == "" {
		c.QdrantHost = "localhost"
	}
	if c.QdrantPort == 0 {
		c.QdrantPort = 6334
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ApplyEnvOverrides applies the environment variables that take precedence
// over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.TavilyAPIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.GoogleAPIKey = v
	}
	if v := os.Getenv("GOOGLE_CX"); v != "" {
		c.GoogleCX = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.QdrantPort = port
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrentChunks = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for construction-time errors.
func (c *Config) Validate() error {
	switch c.SearchProvider {
	case SearchProviderTavily, SearchProviderGoogle:
	default:
		return fmt.Errorf("invalid search_provider: %s (must be %q or %q)",
			c.SearchProvider, SearchProviderTavily, SearchProviderGoogle)
	}

	switch c.ChunkingStrategy {
	case ChunkingSimple, ChunkingContextual:
	default:
		return fmt.Errorf("invalid chunking_strategy: %s (must be %q or %q)",
			c.ChunkingStrategy, ChunkingSimple, ChunkingContextual)
	}

	switch c.Reranker {
	case RerankerOverlap, RerankerLLM:
	default:
		return fmt.Errorf("invalid reranker: %s (must be %q or %q)",
			c.Reranker, RerankerOverlap, RerankerLLM)
	}

	switch c.SessionStore {
	case SessionStoreQdrant, SessionStoreChromem:
	default:
		return fmt.Errorf("invalid session_store: %s (must be %q or %q)",
			c.SessionStore, SessionStoreQdrant, SessionStoreChromem)
	}

	if c.VectorDimension <= 0 {
		return fmt.Errorf("vector_dimension must be positive, got %d", c.VectorDimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be in [0, chunk_size), chunk_size is %d",
			c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxProcessingTime <= 0 {
		return fmt.Errorf("max_processing_time must be positive, got %v", c.MaxProcessingTime)
	}
	if c.MaxConcurrentChunks <= 0 {
		return fmt.Errorf("max_concurrent_chunks must be positive, got %d", c.MaxConcurrentChunks)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}

	return nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
