// Package tokenizer implements the whitespace/ASCII-punctuation splitter and
// edge-n-gram expansion used by the lexical index's content and prefix
// fields. Unlike a code-search tokenizer, it does not sub-split
// camelCase or snake_case identifiers: this corpus is prose and pasted code,
// not a symbol index.
package tokenizer

import (
	"strings"
	"unicode"
)

// MaxTokenLength is the longest token kept, in characters (runes); anything longer is dropped
// rather than truncated, since very long "tokens" are almost always
// base64 blobs, hashes, or minified text with no lexical value.
const MaxTokenLength = 40

// MinPrefixLength is the shortest edge-n-gram emitted for a token.
const MinPrefixLength = 2

// isSplit reports whether r is whitespace or ASCII punctuation, i.e. a
// token boundary. Non-ASCII runes are never boundaries, so Unicode text is
// tokenized as whole words.
func isSplit(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return r < unicode.MaxASCII && unicode.IsPunct(r)
}

// Tokenize splits text on whitespace and ASCII punctuation, lowercases each
// piece, and drops tokens longer than MaxTokenLength. Unicode letters and
// digits outside ASCII punctuation are preserved within a token.
func Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.FieldsFunc(text, isSplit) {
		if len([]rune(word)) > MaxTokenLength {
			continue
		}
		tokens = append(tokens, strings.ToLower(word))
	}
	return tokens
}

// EdgePrefixes returns every prefix of token with length in
// [MinPrefixLength, len(token)], e.g. "async" -> ["as","asy","asyn","async"].
// Tokens shorter than MinPrefixLength produce no prefixes.
func EdgePrefixes(token string) []string {
	runes := []rune(token)
	if len(runes) < MinPrefixLength {
		return nil
	}
	prefixes := make([]string, 0, len(runes)-MinPrefixLength+1)
	for n := MinPrefixLength; n <= len(runes); n++ {
		prefixes = append(prefixes, string(runes[:n]))
	}
	return prefixes
}

// ExpandEdgeNgrams tokenizes text and returns the edge-n-gram prefixes of
// every resulting token, suitable for feeding title_prefix/content_prefix.
func ExpandEdgeNgrams(text string) []string {
	tokens := Tokenize(text)
	var out []string
	for _, tok := range tokens {
		out = append(out, EdgePrefixes(tok)...)
	}
	return out
}
