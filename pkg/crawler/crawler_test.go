package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Test Page</title><style>body { color: red; }</style></head>
<body>
<nav><a href="/home">Home</a></nav>
<script>console.log("tracking");</script>
<h1>Heading</h1>
<p>Some <a href="https://example.com">linked text</a> and an image <img src="/pic.png" alt="pic">.</p>
<footer>Copyright</footer>
</body>
</html>`

func TestCrawlExtractsMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	}))
	defer server.Close()

	c := New(WithoutJitter())
	content, err := c.Crawl(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, content.URL)
	assert.NotEmpty(t, content.DocumentID)
	assert.Contains(t, content.Content, "Heading")
	assert.Contains(t, content.Content, "linked text")
	assert.NotContains(t, content.Content, "https://example.com")
	assert.NotContains(t, content.Content, "console.log")
	assert.NotContains(t, content.Content, "Copyright")
	assert.NotContains(t, content.Content, "color: red")
	assert.Equal(t, "Test Page", content.Metadata["title"])
}

func TestCrawlHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(WithoutJitter())
	_, err := c.Crawl(context.Background(), server.URL)
	require.Error(t, err)

	var cerr *CrawlError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, server.URL, cerr.URL)
}

func TestCrawlTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(testPage))
	}))
	defer server.Close()

	c := New(WithoutJitter(), WithTimeout(50*time.Millisecond))
	_, err := c.Crawl(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestCrawlTruncatesContent(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><p>")
	for sb.Len() < MaxContentChars+10000 {
		sb.WriteString("long content segment ")
	}
	sb.WriteString("</p></body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sb.String()))
	}))
	defer server.Close()

	c := New(WithoutJitter())
	content, err := c.Crawl(context.Background(), server.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(content.Content)), MaxContentChars)
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "abc", truncateChars("abc", 5))
	assert.Equal(t, "ab", truncateChars("abc", 2))
	assert.Equal(t, "한국", truncateChars("한국어", 2))
}
