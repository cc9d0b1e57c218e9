package lexical

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/justSteve/coding-agent-session-search/internal/doc"
	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
	"github.com/justSteve/coding-agent-session-search/internal/planner"
	"github.com/justSteve/coding-agent-session-search/internal/schema"
)

// MergePolicy controls when a commit triggers a background segment merge.
type MergePolicy struct {
	// SegmentThreshold is the minimum commits-since-last-merge before a
	// merge is attempted.
	SegmentThreshold int
	// ForceThreshold merges regardless of cooldown once this many commits
	// have accumulated, preventing unbounded segment growth under a
	// pathological commit rate.
	ForceThreshold int
	Cooldown       time.Duration
}

// DefaultMergePolicy matches the 4-segments / 5-minute-cooldown policy.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{SegmentThreshold: 4, ForceThreshold: 16, Cooldown: 5 * time.Minute}
}

// Index is the lexical (BM25) index: a bleve-backed writer/reader pair
// with a persisted merge cooldown and a schema_hash guard against opening
// a stale on-disk index.
type Index struct {
	mu     sync.RWMutex
	bi     bleve.Index
	path   string
	policy MergePolicy
	logger *slog.Logger

	pendingBatch   *bleve.Batch
	commitsSinceMerge int
	lastMerge      time.Time
}

type lexicalDoc struct {
	Title             string `json:"title"`
	TitlePrefix       string `json:"title_prefix"`
	Content           string `json:"content"`
	ContentPrefix     string `json:"content_prefix"`
	Agent             string `json:"agent"`
	Workspace         string `json:"workspace"`
	SourceID          string `json:"source_id"`
	OriginKind        string `json:"origin_kind"`
	CreatedAt         int64  `json:"created_at"`
	MsgIdx            uint64 `json:"msg_idx"`
	WorkspaceOriginal string `json:"workspace_original"`
	OriginHost        string `json:"origin_host"`
	Preview           string `json:"preview"`
}

const mergeStateFile = "merge_state.json"

// Open opens (or creates) the lexical index at path, verifying the
// schema_hash marker. A mismatch returns a corerr.SchemaMismatch and
// refuses to open — callers must rebuild.
func Open(path string, policy MergePolicy, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exists := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		exists = false
	}

	if exists {
		matches, err := schema.CheckHash(path)
		if err != nil {
			return nil, corerr.IndexCorruption("failed to read schema_hash", err)
		}
		if !matches {
			return nil, corerr.SchemaMismatch("lexical index schema_hash does not match compiled-in schema; rebuild required", nil)
		}
	}

	mapping, err := schema.BuildIndexMapping()
	if err != nil {
		return nil, corerr.Bug("failed to build index mapping", err)
	}

	var bi bleve.Index
	if !exists {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, corerr.New(corerr.ErrCodeFilePermission, "cannot create index directory", err)
		}
		bi, err = bleve.New(path, mapping)
	} else {
		bi, err = bleve.Open(path)
	}
	if err != nil {
		return nil, corerr.IndexCorruption("failed to open lexical index", err)
	}

	if !exists {
		if err := schema.WriteHash(path); err != nil {
			_ = bi.Close()
			return nil, corerr.New(corerr.ErrCodeFilePermission, "failed to write schema_hash", err)
		}
	}

	idx := &Index{
		bi:     bi,
		path:   path,
		policy: policy,
		logger: logger,
	}
	idx.loadMergeState()
	idx.pendingBatch = bi.NewBatch()
	return idx, nil
}

func (idx *Index) mergeStatePath() string {
	return filepath.Join(idx.path, mergeStateFile)
}

func (idx *Index) loadMergeState() {
	data, err := os.ReadFile(idx.mergeStatePath())
	if err != nil {
		return
	}
	var state struct {
		LastMergeUnixMS int64 `json:"last_merge_unix_ms"`
	}
	if json.Unmarshal(data, &state) == nil {
		idx.lastMerge = time.UnixMilli(state.LastMergeUnixMS)
	}
}

func (idx *Index) saveMergeState() {
	state := struct {
		LastMergeUnixMS int64 `json:"last_merge_unix_ms"`
	}{LastMergeUnixMS: idx.lastMerge.UnixMilli()}
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = os.WriteFile(idx.mergeStatePath(), data, 0o644)
}

// AddDocument enqueues d in the current writer batch. It fails only on
// schema rejection, a programming error propagated to the caller.
func (idx *Index) AddDocument(_ context.Context, d doc.Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ld := lexicalDoc{
		Title:             d.Title,
		TitlePrefix:       d.Title,
		Content:           d.Content,
		ContentPrefix:     d.Content,
		Agent:             d.Agent,
		Workspace:         d.Workspace,
		SourceID:          d.SourceID,
		OriginKind:        string(d.OriginKind),
		CreatedAt:         d.CreatedAt,
		MsgIdx:            d.MsgIdx,
		WorkspaceOriginal: d.WorkspaceOriginal,
		OriginHost:        d.OriginHost,
		Preview:           d.Preview,
	}
	if err := idx.pendingBatch.Index(docID(d.SourceID, d.DocID), ld); err != nil {
		return corerr.New(corerr.ErrCodeSchemaRejection, "document rejected by lexical schema", err)
	}
	return nil
}

// docID composes a source-scoped document identifier as
// "<len(sourceID)>:<sourceID>:<id>". The length prefix lets parseDocID
// split deterministically even when sourceID itself contains colons (a
// legitimate value per spec.md's own "remote:hostA" example).
func docID(sourceID string, id uint64) string {
	return strconv.Itoa(len(sourceID)) + ":" + sourceID + ":" + strconv.FormatUint(id, 10)
}

// parseDocID reverses docID, returning ok=false if s isn't a well-formed
// composite id (e.g. a legacy bare id).
func parseDocID(s string) (sourceID string, id uint64, ok bool) {
	lenStr, rest, found := strings.Cut(s, ":")
	if !found {
		return "", 0, false
	}
	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 || n > len(rest) {
		return "", 0, false
	}
	if len(rest) < n+1 || rest[n] != ':' {
		return "", 0, false
	}
	sourceID = rest[:n]
	idNum, err := strconv.ParseUint(rest[n+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return sourceID, idNum, true
}

// ComposeDocID builds the composite document id lexical uses internally,
// for callers outside this package that need to fetch a specific document
// by its vector-index row identity (GetByIDs).
func ComposeDocID(sourceID string, id uint64) string {
	return docID(sourceID, id)
}

// DeleteBySource removes every document belonging to sourceID, then
// commits.
func (idx *Index) DeleteBySource(ctx context.Context, sourceID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tq := bleve.NewTermQuery(sourceID)
	tq.SetField(schema.FieldSourceID)
	req := bleve.NewSearchRequest(tq)
	req.Size = 1 << 20
	req.Fields = nil

	result, err := idx.bi.SearchInContext(ctx, req)
	if err != nil {
		return corerr.New(corerr.ErrCodeFileNotFound, "failed to enumerate source for deletion", err)
	}
	for _, hit := range result.Hits {
		idx.pendingBatch.Delete(hit.ID)
	}
	return idx.commitLocked()
}

// Commit fsyncs the pending batch and publishes a new searchable snapshot.
// A commit error is fatal to this writer: the caller must rebuild it.
// Previously committed data is unaffected.
func (idx *Index) Commit() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.commitLocked()
}

func (idx *Index) commitLocked() error {
	if idx.pendingBatch.Size() == 0 {
		return nil
	}
	if err := idx.bi.Batch(idx.pendingBatch); err != nil {
		return corerr.New(corerr.ErrCodeDiskFull, "lexical commit failed", err)
	}
	idx.pendingBatch = idx.bi.NewBatch()
	idx.commitsSinceMerge++
	return nil
}

// ReloadReader is a best-effort, idempotent no-op in this embedded
// single-process design: bleve's reader already reflects the latest
// commit. It exists to preserve the operation named in the data model and
// as the hook point for a future memory-mapped multi-process reader.
// Errors are logged and the previous snapshot is retained, per the
// best-effort contract.
func (idx *Index) ReloadReader() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if _, err := idx.bi.DocCount(); err != nil {
		idx.logger.Warn("lexical_reload_failed", slog.String("error", err.Error()))
	}
	return nil
}

// MergeIfIdle reports whether a merge is due: enough commits have
// accumulated and the cooldown has elapsed (or the force threshold is
// reached). When one is due it logs it, resets the commit count and
// persists the cooldown timestamp so it survives restarts. It never blocks
// concurrent searches and issues no compaction request of its own: bleve's
// embedded scorch engine performs its own segment compaction.
func (idx *Index) MergeIfIdle() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.commitsSinceMerge < idx.policy.SegmentThreshold {
		return false
	}
	elapsed := time.Since(idx.lastMerge)
	forced := idx.commitsSinceMerge >= idx.policy.ForceThreshold
	if elapsed < idx.policy.Cooldown && !forced {
		return false
	}

	idx.logger.Info("lexical_merge",
		slog.Int("commits_since_merge", idx.commitsSinceMerge),
		slog.Bool("forced", forced))

	idx.commitsSinceMerge = 0
	idx.lastMerge = time.Now()
	idx.saveMergeState()
	return true
}

// Search runs the parsed query against the current reader.
func (idx *Index) Search(ctx context.Context, queryText string, filters Filters, limit, offset int) ([]Hit, SearchMeta, error) {
	start := time.Now()
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	plan := classify(queryText)
	bq, wildcardFallback := buildQuery(plan.ast)

	if filterQ := buildFilterQuery(filters); filterQ != nil {
		bq = bleve.NewConjunctionQuery(bq, filterQ)
	}

	req := bleve.NewSearchRequestOptions(bq, limit, offset, false)
	req.IncludeLocations = true
	req.Fields = []string{
		schema.FieldTitle, schema.FieldContent, schema.FieldSourceID,
		schema.FieldPreview,
	}

	result, err := idx.bi.SearchInContext(ctx, req)
	if err != nil {
		return nil, SearchMeta{}, corerr.New(corerr.ErrCodeSearchTimeout, "lexical search failed", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}

	meta := SearchMeta{
		Strategy:         plan.strategy,
		WildcardFallback: wildcardFallback,
		Elapsed:          time.Since(start),
	}
	return hits, meta, nil
}

func hitFromMatch(h *search.DocumentMatch) Hit {
	sourceID, docIDNum, _ := parseDocID(h.ID)

	hit := Hit{
		DocID:    docIDNum,
		SourceID: sourceID,
		Score:    h.Score,
	}
	if v, ok := h.Fields[schema.FieldTitle].(string); ok {
		hit.Title = v
	}
	if v, ok := h.Fields[schema.FieldContent].(string); ok {
		hit.Content = v
	}
	if v, ok := h.Fields[schema.FieldPreview].(string); ok {
		hit.Preview = v
	}

	termSet := map[string]struct{}{}
	for _, locations := range h.Locations {
		for term := range locations {
			termSet[term] = struct{}{}
		}
	}
	for term := range termSet {
		hit.MatchedTerms = append(hit.MatchedTerms, term)
	}
	return hit
}

// GetByIDs fetches the stored fields for a set of composite document ids
// (as produced by docID), used to enrich vector-only hits (CVVI stores no
// text, only ids and hashes) with the title/content/preview the lexical
// index already holds for the same document.
func (idx *Index) GetByIDs(ctx context.Context, ids []string) ([]Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(ids), len(ids), 0, false)
	req.Fields = []string{schema.FieldTitle, schema.FieldContent, schema.FieldSourceID, schema.FieldPreview}

	result, err := idx.bi.SearchInContext(ctx, req)
	if err != nil {
		return nil, corerr.New(corerr.ErrCodeSearchTimeout, "lexical id lookup failed", err)
	}
	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}
	return hits, nil
}

// WarmTouch runs a trivial MatchAll(limit=1) search whose only purpose is
// to touch segment pages, for the warm worker's reload pass — a plain
// empty-string Search would resolve to MatchNone (see termQuery) and
// touch nothing.
func (idx *Index) WarmTouch(ctx context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 1, 0, false)
	_, err := idx.bi.SearchInContext(ctx, req)
	if err != nil {
		return corerr.New(corerr.ErrCodeSearchTimeout, "warm touch search failed", err)
	}
	return nil
}

// Close releases the underlying bleve index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.bi.Close()
}

// DocCount returns the number of documents currently in the index.
func (idx *Index) DocCount() (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bi.DocCount()
}
