package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kadirpekel/delphi/pkg/httpclient"
	"github.com/kadirpekel/delphi/pkg/models"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider implements Provider against the Google Custom Search API.
type GoogleProvider struct {
	httpClient *httpclient.Client
	apiKey     string
	cx         string
	endpoint   string
}

type googleResponse struct {
	Items []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGoogleProvider creates a Google Custom Search client.
func NewGoogleProvider(apiKey, cx string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for google search")
	}
	if cx == "" {
		return nil, fmt.Errorf("search engine id (cx) is required for google search")
	}
	return &GoogleProvider{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		),
		apiKey:   apiKey,
		cx:       cx,
		endpoint: googleEndpoint,
	}, nil
}

// Search runs one Custom Search query.
func (p *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]models.WebDocument, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	// The API caps num at 10.
	num := maxResults
	if num > 10 {
		num = 10
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query, Err: err}
	}

	var response googleResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if response.Error != nil {
		return nil, &SearchError{Provider: p.Name(), Query: query,
			Err: fmt.Errorf("API error: %s", response.Error.Message)}
	}

	docs := make([]models.WebDocument, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Link == "" {
			continue
		}
		docs = append(docs, models.WebDocument{
			URL:         item.Link,
			Title:       item.Title,
			Snippet:     item.Snippet,
			SearchQuery: query,
		})
	}

	if len(docs) > maxResults {
		docs = docs[:maxResults]
	}
	return docs, nil
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return "google"
}

var _ Provider = (*GoogleProvider)(nil)
