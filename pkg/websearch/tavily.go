package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/delphi/pkg/httpclient"
	"github.com/kadirpekel/delphi/pkg/models"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider implements Provider against the Tavily search API.
type TavilyProvider struct {
	httpClient *httpclient.Client
	apiKey     string
	endpoint   string
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeImages     bool   `json:"include_images"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewTavilyProvider creates a Tavily search client.
func NewTavilyProvider(apiKey string) (*TavilyProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for tavily search")
	}
	return &TavilyProvider{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		),
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
	}, nil
}

// Search runs one basic-depth Tavily query. The result snippet maps from the
// provider's content field.
func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]models.WebDocument, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	reqBody, err := json.Marshal(tavilyRequest{
		APIKey:      p.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}

	var response tavilyResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	docs := make([]models.WebDocument, 0, len(response.Results))
	for _, r := range response.Results {
		if r.URL == "" {
			continue
		}
		docs = append(docs, models.WebDocument{
			URL:         r.URL,
			Title:       r.Title,
			Snippet:     r.Content,
			SearchQuery: query,
		})
	}

	if len(docs) > maxResults {
		docs = docs[:maxResults]
	}
	return docs, nil
}

// Name returns the provider name.
func (p *TavilyProvider) Name() string {
	return "tavily"
}

var _ Provider = (*TavilyProvider)(nil)
