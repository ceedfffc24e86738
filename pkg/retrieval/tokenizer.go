// Package retrieval implements hybrid search over the in-memory index:
// dense nearest-neighbour lookup fused with BM25 lexical scoring via
// reciprocal rank fusion.
package retrieval

import (
	"regexp"
	"strings"
)

// tokenPattern matches runs of Latin letters, digits and Hangul syllables.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9가-힣]+`)

// Tokenize splits text into lower-cased tokens, dropping tokens shorter
// than two characters. Punctuation never survives tokenisation.
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if len([]rune(m)) < 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(m))
	}
	return tokens
}
