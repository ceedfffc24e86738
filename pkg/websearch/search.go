// Package websearch provides web search providers returning ranked URL
// candidates for a query. Providers are selected by configuration.
package websearch

import (
	"context"
	"fmt"

	"github.com/kadirpekel/delphi/pkg/config"
	"github.com/kadirpekel/delphi/pkg/models"
)

// DefaultMaxResults is the per-query result cap when none is configured.
const DefaultMaxResults = 7

// Provider is the web search capability consumed by stage 2.
type Provider interface {
	// Search returns up to maxResults documents for the query, in the
	// provider's ranking order.
	Search(ctx context.Context, query string, maxResults int) ([]models.WebDocument, error)

	// Name returns the provider name.
	Name() string
}

// SearchError reports a failed search for one query.
type SearchError struct {
	Provider string
	Query    string
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s search failed for %q: %v", e.Provider, e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewProvider builds the search provider selected by cfg.SearchProvider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.SearchProvider {
	case config.SearchProviderTavily:
		return NewTavilyProvider(cfg.TavilyAPIKey)
	case config.SearchProviderGoogle:
		return NewGoogleProvider(cfg.GoogleAPIKey, cfg.GoogleCX)
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.SearchProvider)
	}
}
