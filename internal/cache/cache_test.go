package cache

import (
	"testing"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHits() []lexical.Hit {
	return []lexical.Hit{
		{DocID: 1, SourceID: "local", Content: "authentication middleware rewrite", Title: "auth"},
		{DocID: 2, SourceID: "local", Content: "unrelated database migration", Title: "db"},
	}
}

func TestStore_ExactHit(t *testing.T) {
	s := New(DefaultOptions())
	filters := lexical.Filters{}
	s.Put("auth", filters, "schema1", "", sampleHits(), lexical.SearchMeta{Strategy: lexical.StrategyTerm})

	hits, _, outcome := s.Lookup("auth", filters, "schema1", "", 1)
	require.Equal(t, Hit, outcome)
	assert.Len(t, hits, 2)
}

func TestStore_MissOnUnseenQuery(t *testing.T) {
	s := New(DefaultOptions())
	_, _, outcome := s.Lookup("anything", lexical.Filters{}, "schema1", "", 1)
	assert.Equal(t, Miss, outcome)
}

func TestStore_SchemaChangeInvalidatesKey(t *testing.T) {
	s := New(DefaultOptions())
	filters := lexical.Filters{}
	s.Put("auth", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})

	_, _, outcome := s.Lookup("auth", filters, "schema2", "", 1)
	assert.Equal(t, Miss, outcome)
}

func TestStore_PrefixRefinementServesSubset(t *testing.T) {
	s := New(DefaultOptions())
	filters := lexical.Filters{}
	s.Put("auth", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})

	hits, _, outcome := s.Lookup("authe", filters, "schema1", "", 1)
	require.Equal(t, Hit, outcome)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].DocID)
}

func TestStore_PrefixRefinementShortfallWhenBelowLimit(t *testing.T) {
	s := New(DefaultOptions())
	filters := lexical.Filters{}
	s.Put("auth", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})

	_, _, outcome := s.Lookup("authe", filters, "schema1", "", 5)
	assert.Equal(t, Shortfall, outcome)
}

func TestStore_DifferentFiltersDoNotRefine(t *testing.T) {
	s := New(DefaultOptions())
	s.Put("auth", lexical.Filters{Agent: "claude"}, "schema1", "", sampleHits(), lexical.SearchMeta{})

	_, _, outcome := s.Lookup("authe", lexical.Filters{Agent: "other"}, "schema1", "", 1)
	assert.Equal(t, Miss, outcome)
}

func TestStore_NewTokenIsNotAPrefixRefinement(t *testing.T) {
	s := New(DefaultOptions())
	filters := lexical.Filters{}
	s.Put("auth", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})

	_, _, outcome := s.Lookup("auth middleware", filters, "schema1", "", 1)
	assert.Equal(t, Miss, outcome)
}

func TestIsPrefixExtension(t *testing.T) {
	assert.True(t, isPrefixExtension("aut", "auth"))
	assert.False(t, isPrefixExtension("auth", "auth"))
	assert.False(t, isPrefixExtension("auth", "auth foo"))
	assert.False(t, isPrefixExtension("auth", "other"))
	assert.False(t, isPrefixExtension("", "auth"))
}

func TestBloomContains_NoFalseNegatives(t *testing.T) {
	cached := bloomMask("authentication middleware rewrite")
	query := bloomMask("auth")
	assert.True(t, bloomContains(cached, query))
}

func TestBloomMonotonicity_RefinedMaskHasSupersetBits(t *testing.T) {
	base := bloomMask("aut")
	refined := bloomMask("auth")
	// masks are built over edge-n-gram prefixes, so "auth" sets the bits of
	// "au" and "aut" plus its own; re-deriving from the same text is stable.
	assert.True(t, bloomContains(refined, base))
	assert.Equal(t, base, bloomMask("aut"))
	assert.NotEqual(t, uint64(0), refined)
}

func TestStore_ByteCapEvictsOldEntries(t *testing.T) {
	s := New(Options{ShardCount: 1, ShardCap: 256, ByteCap: 1})
	filters := lexical.Filters{}
	s.Put("a", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})
	s.Put("b", filters, "schema1", "", sampleHits(), lexical.SearchMeta{})

	_, _, outcome := s.Lookup("a", filters, "schema1", "", 1)
	assert.Equal(t, Miss, outcome)
}
