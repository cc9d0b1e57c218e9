package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", Canonicalize("  hello   world  \n"))
	assert.Equal(t, "", Canonicalize("   \t\n  "))
}

func TestHashContent_IsDeterministicUnderWhitespaceVariance(t *testing.T) {
	a := HashContent("hello   world")
	b := HashContent("  hello world  ")
	assert.Equal(t, a, b)

	c := HashContent("hello world!")
	assert.NotEqual(t, a, c)
}

func TestWithComputedHash(t *testing.T) {
	d := Document{Content: "auth bug"}.WithComputedHash()
	assert.Equal(t, HashContent("auth bug"), d.ContentHash)
}
