// Package crawler fetches web pages and extracts their main content as
// markdown. Script, style, nav and footer elements are stripped; links and
// images are dropped from the markdown rendering; bodies are truncated to a
// fixed character budget.
package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/kadirpekel/delphi/pkg/models"
)

const (
	// MaxContentChars is the per-document markdown budget.
	MaxContentChars = 50000

	// DefaultTimeout bounds one crawl, politeness sleep included.
	DefaultTimeout = 10 * time.Second

	minJitter = 500 * time.Millisecond
	maxJitter = 2 * time.Second
)

// Crawler is the page-fetching capability consumed by stage 3.
type Crawler interface {
	// Crawl fetches one URL and returns its content, or an error when the
	// page could not be fetched or parsed.
	Crawl(ctx context.Context, url string) (*models.WebDocumentContent, error)
}

// CrawlError reports a failed crawl of one URL.
type CrawlError struct {
	URL string
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl failed for %s: %v", e.URL, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// HTTPCrawler implements Crawler over plain HTTP with browser headers.
type HTTPCrawler struct {
	client    *http.Client
	converter *md.Converter
	timeout   time.Duration
	jitter    bool
}

// Option configures an HTTPCrawler.
type Option func(*HTTPCrawler)

// WithTimeout overrides the per-URL crawl deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPCrawler) {
		c.timeout = d
	}
}

// WithoutJitter disables the politeness sleep. Used by tests.
func WithoutJitter() Option {
	return func(c *HTTPCrawler) {
		c.jitter = false
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPCrawler) {
		c.client = client
	}
}

// New creates an HTTPCrawler.
func New(opts ...Option) *HTTPCrawler {
	converter := md.NewConverter("", true, nil)
	converter.AddRules(
		// Links keep their text, images disappear entirely.
		md.Rule{
			Filter: []string{"a"},
			Replacement: func(content string, selec *goquery.Selection, options *md.Options) *string {
				return md.String(content)
			},
		},
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selec *goquery.Selection, options *md.Options) *string {
				return md.String("")
			},
		},
	)

	c := &HTTPCrawler{
		client:    &http.Client{Timeout: DefaultTimeout},
		converter: converter,
		timeout:   DefaultTimeout,
		jitter:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches one URL: jitter sleep, GET with a rotated User-Agent,
// strip boilerplate elements, render markdown, truncate.
func (c *HTTPCrawler) Crawl(ctx context.Context, url string) (*models.WebDocumentContent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.jitter {
		sleep := minJitter + time.Duration(rand.Int63n(int64(maxJitter-minJitter)))
		select {
		case <-ctx.Done():
			return nil, &CrawlError{URL: url, Err: ctx.Err()}
		case <-time.After(sleep):
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &CrawlError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &CrawlError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &CrawlError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &CrawlError{URL: url, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	doc.Find("script, style, nav, footer").Remove()

	markdown := c.converter.Convert(doc.Selection)
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, &CrawlError{URL: url, Err: fmt.Errorf("no extractable content")}
	}
	markdown = truncateChars(markdown, MaxContentChars)

	content := models.NewWebDocumentContent(url, markdown, time.Now())
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		content.Metadata = map[string]string{"title": title}
	}
	return content, nil
}

// truncateChars truncates s to at most n characters (not bytes).
func truncateChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var _ Crawler = (*HTTPCrawler)(nil)
