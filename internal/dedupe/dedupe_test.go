package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
)

func TestDedupe_PreservesSourceBoundary(t *testing.T) {
	hits := []lexical.Hit{
		{DocID: 1, SourceID: "local", Content: "hello world", Score: 5},
		{DocID: 2, SourceID: "remote:hostA", Content: "hello world", Score: 4},
	}
	out := Dedupe(hits)
	require.Len(t, out, 2)
}

func TestDedupe_CollapsesWithinSameSource(t *testing.T) {
	hits := []lexical.Hit{
		{DocID: 1, SourceID: "local", Content: "hello   world", Score: 5},
		{DocID: 2, SourceID: "local", Content: " hello world ", Score: 9},
	}
	out := Dedupe(hits)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].DocID)
	assert.Equal(t, 9.0, out[0].Score)
}

func TestDedupe_TieBreaksOnSmallestDocID(t *testing.T) {
	hits := []lexical.Hit{
		{DocID: 5, SourceID: "local", Content: "hello world", Score: 9},
		{DocID: 2, SourceID: "local", Content: "hello world", Score: 9},
	}
	out := Dedupe(hits)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].DocID)
}

func TestDedupe_DropsToolInvocationMarkers(t *testing.T) {
	hits := []lexical.Hit{
		{DocID: 1, SourceID: "local", Content: "[Tool: bash - list files]", Score: 5},
		{DocID: 2, SourceID: "local", Content: "real message content", Score: 4},
	}
	out := Dedupe(hits)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].DocID)
}

func TestDedupe_EmptyInput(t *testing.T) {
	out := Dedupe(nil)
	assert.Empty(t, out)
}
