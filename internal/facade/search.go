package facade

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justSteve/coding-agent-session-search/internal/cache"
	"github.com/justSteve/coding-agent-session-search/internal/dedupe"
	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
	"github.com/justSteve/coding-agent-session-search/internal/idstore"
	"github.com/justSteve/coding-agent-session-search/internal/lexical"
	"github.com/justSteve/coding-agent-session-search/internal/snippet"
	"github.com/justSteve/coding-agent-session-search/internal/telemetry"
	"github.com/justSteve/coding-agent-session-search/internal/vectorindex"
)

// MaxSearchLimit bounds the page size any caller may request; Search clamps
// larger limits to it.
const MaxSearchLimit = 100

// DefaultSearchLimit is used when a caller passes limit <= 0.
const DefaultSearchLimit = 10

// Search is the primary read path: cache -> planner -> {lexical, semantic,
// hybrid} -> dedup -> snippet -> cache populate, per the data-flow
// described in the façade design. Query parsing and strategy
// classification happen inside the lexical engine (internal/planner feeds
// internal/lexical's query builder); this method only routes between
// engines and handles everything downstream of them.
func (f *Facade) Search(ctx context.Context, queryText string, mode Mode, filters Filters, limit, offset int) (SearchResult, error) {
	start := time.Now()
	defer func() { f.metrics.RecordSearch(time.Since(start)) }()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	lexFilters := lexical.Filters{
		Agent:         filters.Agent,
		Workspace:     filters.Workspace,
		SourceID:      filters.SourceID,
		Origin:        filters.Origin,
		CreatedAfter:  filters.CreatedAfter,
		CreatedBefore: filters.CreatedBefore,
	}
	sessionDigest := cache.SessionPathsDigest(filters.SessionPaths)

	var warnings []string

	if hits, cmeta, outcome := f.cacheSt.Lookup(queryText, lexFilters, schemaHash(), sessionDigest, limit+offset); outcome != cache.Miss {
		if outcome == cache.Hit {
			f.metrics.RecordCache(telemetry.CacheHit)
			hits = applySessionPaths(hits, filters.SessionPaths)
			return f.paginate(hits, cmeta, start, limit, offset, "hit", warnings), nil
		}
		f.metrics.RecordCache(telemetry.CacheShortfall)
		warnings = append(warnings, "cache_shortfall")
	} else {
		f.metrics.RecordCache(telemetry.CacheMiss)
	}

	if filters.SourceID != "" {
		if _, ok, err := f.ids.Lookup(ctx, idstore.KindSource, filters.SourceID); err == nil && !ok {
			warnings = append(warnings, "unknown_source")
		}
	}

	// Fetch one extra candidate beyond the requested page so paginate can
	// tell whether a next page exists without a second round-trip.
	candidateDepth := limit + offset + 1
	if candidateDepth > MaxSearchLimit*2 {
		candidateDepth = MaxSearchLimit * 2
	}

	var (
		hits []lexical.Hit
		meta lexical.SearchMeta
		err  error
	)

	switch mode {
	case ModeSemantic:
		hits, meta, err = f.searchSemantic(ctx, queryText, filters, candidateDepth)
	case ModeHybrid:
		hits, meta, err = f.searchHybrid(ctx, queryText, filters, lexFilters, limit)
	default: // ModeLexical and unrecognized modes fall back to lexical-only
		hits, meta, err = f.lex.Search(ctx, queryText, lexFilters, candidateDepth, 0)
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return SearchResult{}, corerr.Timeout("search deadline exceeded", err)
		}
		return SearchResult{}, err
	}

	hits = applySessionPaths(hits, filters.SessionPaths)
	hits = dedupe.Dedupe(hits)

	f.cacheSt.Put(queryText, lexFilters, schemaHash(), sessionDigest, hits, meta)

	return f.paginate(hits, meta, start, limit, offset, "miss", warnings), nil
}

// searchSemantic embeds queryText, narrows the vector scan to a prefilter
// derived from the lexical filters (agent/workspace/source/time-range —
// origin has no row in the CVVI row table and so cannot be prefiltered
// here), and enriches the raw CVVI rows with the title/content/preview the
// lexical index already holds for the same documents (CVVI stores no
// text, only ids and hashes).
func (f *Facade) searchSemantic(ctx context.Context, queryText string, filters Filters, k int) ([]lexical.Hit, lexical.SearchMeta, error) {
	start := time.Now()

	f.vecMu.RLock()
	vh := f.vec
	f.vecMu.RUnlock()
	if vh == nil {
		return nil, lexical.SearchMeta{Strategy: "semantic"}, nil
	}

	queryVec, err := f.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, lexical.SearchMeta{}, err
	}

	// Acquire once and use the same borrowed generation for both the
	// prefilter scan and the query itself — a concurrent rebuild must not
	// be able to swap in a different generation between the two, since
	// row indices from one generation are meaningless against another's
	// slab, and the old generation must not be unmapped while either call
	// is still reading it.
	vec := vh.acquire()
	defer vh.release()

	prefilter, err := f.vectorPrefilter(ctx, filters, vec)
	if err != nil {
		return nil, lexical.SearchMeta{}, err
	}

	results, err := vec.Query(ctx, queryVec, k, prefilter)
	if err != nil {
		return nil, lexical.SearchMeta{}, err
	}

	hits, err := f.hydrateVectorResults(ctx, results)
	if err != nil {
		return nil, lexical.SearchMeta{}, err
	}

	return hits, lexical.SearchMeta{Strategy: "semantic", Elapsed: time.Since(start)}, nil
}

// searchHybrid runs the lexical and semantic paths concurrently over the
// same filter set and merges their ranked lists via RRF. Candidate depth
// is rrf_candidate_mult x limit per engine, per the data model.
func (f *Facade) searchHybrid(ctx context.Context, queryText string, filters Filters, lexFilters lexical.Filters, limit int) ([]lexical.Hit, lexical.SearchMeta, error) {
	start := time.Now()
	mult := f.cfg.RRFCandidateMult
	if mult <= 0 {
		mult = 3
	}
	depth := mult * limit
	if depth > MaxSearchLimit*mult {
		depth = MaxSearchLimit * mult
	}

	var (
		lexHits []lexical.Hit
		vecHits []lexical.Hit
		lexMeta lexical.SearchMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexHits, lexMeta, err = f.lex.Search(gctx, queryText, lexFilters, depth, 0)
		return err
	})
	g.Go(func() error {
		var err error
		vecHits, _, err = f.searchSemantic(gctx, queryText, filters, depth)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, lexical.SearchMeta{}, err
	}

	fused := f.fuser.Fuse(lexHits, vecHits)
	out := make([]lexical.Hit, len(fused))
	for i, fh := range fused {
		out[i] = fh.Hit
	}

	return out, lexical.SearchMeta{
		Strategy:         "hybrid",
		Elapsed:          time.Since(start),
		WildcardFallback: lexMeta.WildcardFallback,
	}, nil
}

// hydrateVectorResults resolves each CVVI result's interned source id back
// to its string form and fetches the matching lexical document's stored
// fields, so a vector-only hit can still be snippeted and deduped the same
// way a lexical hit is. Results absent from the lexical index (a race with
// a concurrent delete) are silently dropped rather than erroring the whole
// search.
func (f *Facade) hydrateVectorResults(ctx context.Context, results []vectorindex.Result) ([]lexical.Hit, error) {
	if len(results) == 0 {
		return nil, nil
	}

	sourceCache := make(map[uint32]string, len(results))
	ids := make([]string, 0, len(results))
	rank := make(map[string]int, len(results))
	scores := make(map[string]float64, len(results))

	for i, r := range results {
		srcStr, ok := sourceCache[r.Row.SourceID]
		if !ok {
			resolved, err := f.ids.Resolve(ctx, idstore.KindSource, r.Row.SourceID)
			if err != nil {
				continue
			}
			srcStr = resolved
			sourceCache[r.Row.SourceID] = srcStr
		}
		composite := lexical.ComposeDocID(srcStr, r.Row.DocID)
		ids = append(ids, composite)
		rank[composite] = i
		scores[composite] = float64(r.Score)
	}

	fetched, err := f.lex.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]lexical.Hit, len(fetched))
	for _, h := range fetched {
		byID[lexical.ComposeDocID(h.SourceID, h.DocID)] = h
	}

	out := make([]lexical.Hit, 0, len(ids))
	for _, id := range ids {
		h, ok := byID[id]
		if !ok {
			continue
		}
		h.Score = scores[id]
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri := rank[lexical.ComposeDocID(out[i].SourceID, out[i].DocID)]
		rj := rank[lexical.ComposeDocID(out[j].SourceID, out[j].DocID)]
		return ri < rj
	})
	return out, nil
}

// applySessionPaths narrows hits to those whose SourceID appears in paths,
// applied post-retrieval since session-paths are deliberately not indexed
// (see the "session-paths filter" design note).
func applySessionPaths(hits []lexical.Hit, paths []string) []lexical.Hit {
	if len(paths) == 0 {
		return hits
	}
	allowed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allowed[p] = struct{}{}
	}
	out := make([]lexical.Hit, 0, len(hits))
	for _, h := range hits {
		if _, ok := allowed[h.SourceID]; ok {
			out = append(out, h)
		}
	}
	return out
}

// paginate slices hits to [offset, offset+limit), builds each surviving
// hit's snippet, and assembles the SearchResult meta.
func (f *Facade) paginate(hits []lexical.Hit, meta lexical.SearchMeta, start time.Time, limit, offset int, cacheOutcome string, warnings []string) SearchResult {
	total := len(hits)
	lo := offset
	if lo > total {
		lo = total
	}
	hi := lo + limit
	if hi > total {
		hi = total
	}
	page := hits[lo:hi]

	out := make([]ResultHit, len(page))
	for i, h := range page {
		out[i] = ResultHit{
			DocID:    h.DocID,
			SourceID: h.SourceID,
			Score:    h.Score,
			Title:    h.Title,
			Snippet:  snippet.ForHit(h, snippet.DefaultMaxLength),
		}
	}

	nextCursor := 0
	if hi < total {
		nextCursor = hi
	}

	age := int64(0)
	if f.lastIndexed > 0 {
		age = time.Now().UnixMilli() - f.lastIndexed
	}

	strategy := meta.Strategy
	if strategy == "" {
		strategy = "cache"
	}

	return SearchResult{
		Hits: out,
		Meta: SearchMeta{
			ElapsedMS:        time.Since(start).Milliseconds(),
			Strategy:         strategy,
			WildcardFallback: meta.WildcardFallback,
			CacheOutcome:     cacheOutcome,
			IndexFreshnessMS: age,
			Warnings:         warnings,
			NextCursor:       nextCursor,
		},
	}
}
