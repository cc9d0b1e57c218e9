// Package lexical is the BM25-scored keyword index: a bleve-backed writer
// and reader pair with background segment merging and the wildcard/phrase/
// boolean/range query strategies named in the data model.
package lexical

import (
	"time"

	"github.com/justSteve/coding-agent-session-search/internal/doc"
)

// Filters narrows a search to a slice of the corpus. Zero values mean "no
// constraint" for that dimension.
type Filters struct {
	Agent     string
	Workspace string
	SourceID  string
	Origin    doc.OriginKind
	CreatedAfter  int64
	CreatedBefore int64
}

// Hit is one scored lexical match.
type Hit struct {
	DocID        uint64
	SourceID     string
	Score        float64
	Title        string
	Content      string
	Preview      string
	MatchedTerms []string
}

// SearchMeta carries routing/diagnostic information about a search call,
// independent of the hits themselves.
type SearchMeta struct {
	Strategy        string
	WildcardFallback bool
	Elapsed         time.Duration
}

// Strategy names surfaced in SearchMeta.Strategy.
const (
	StrategyTerm        = "term"
	StrategyPrefix       = "prefix"
	StrategyRegexFallback = "regex_fallback"
	StrategyPhrase       = "phrase"
	StrategyBoolean      = "boolean"
	StrategyRange        = "range"
)
