package facade

import (
	"github.com/justSteve/coding-agent-session-search/internal/doc"
	"github.com/justSteve/coding-agent-session-search/internal/snippet"
)

// Mode selects which engine(s) a search executes against.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Filters narrows a search. SessionPaths is deliberately not part of
// lexical.Filters: path sets are sparse, query-specific, and applied
// post-retrieval rather than folded into the lexical/vector Must clauses
// (see the "session-paths filter" design note).
type Filters struct {
	Agent         string
	Workspace     string
	SourceID      string
	Origin        doc.OriginKind
	CreatedAfter  int64
	CreatedBefore int64
	SessionPaths  []string
}

// ResultHit is one ranked, deduplicated, snippeted search result.
type ResultHit struct {
	DocID    uint64
	SourceID string
	Score    float64
	Title    string
	Snippet  snippet.Snippet
}

// SearchMeta carries routing and diagnostic information alongside a
// search's hits.
type SearchMeta struct {
	ElapsedMS        int64
	Strategy         string
	WildcardFallback bool
	CacheOutcome     string
	IndexFreshnessMS int64
	Warnings         []string
	NextCursor       int
}

// SearchResult is the return value of Search.
type SearchResult struct {
	Hits []ResultHit
	Meta SearchMeta
}

// HealthStatus is the return value of Health.
type HealthStatus struct {
	IndexExists    bool
	LastIndexedAt  int64
	Segments       int
	VectorRows     int
	PendingMerges  bool
	WarmWorkerOK   bool
}

// OptimizeResult is the return value of OptimizeIfIdle.
type OptimizeResult struct {
	Merged bool
}

// MetricsSnapshot is the return value of Metrics.
type MetricsSnapshot struct {
	CacheHits       int64
	CacheMiss       int64
	CacheShortfall  int64
	Reloads         int64
	ReloadMSTotal   int64
	SearchP50MS     int64
	SearchP95MS     int64
	WarmWorkerRuns  int64
	WarmWorkerFails int64
}
