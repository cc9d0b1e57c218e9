package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_SplitsOnWhitespaceAndPunctuation(t *testing.T) {
	got := Tokenize("Hello, world! async/await-pattern")
	assert.Equal(t, []string{"hello", "world", "async", "await", "pattern"}, got)
}

func TestTokenize_DropsOverlongTokens(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "a"
	}
	got := Tokenize("short " + long + " ok")
	assert.Equal(t, []string{"short", "ok"}, got)
}

func TestTokenize_PreservesUnicode(t *testing.T) {
	got := Tokenize("café naïve")
	assert.Equal(t, []string{"café", "naïve"}, got)
}

func TestEdgePrefixes(t *testing.T) {
	assert.Equal(t, []string{"as", "asy", "asyn", "async"}, EdgePrefixes("async"))
	assert.Nil(t, EdgePrefixes("a"))
	assert.Equal(t, []string{"ok"}, EdgePrefixes("ok"))
}

func TestExpandEdgeNgrams(t *testing.T) {
	got := ExpandEdgeNgrams("go async")
	assert.Contains(t, got, "go")
	assert.Contains(t, got, "as")
	assert.Contains(t, got, "async")
}
