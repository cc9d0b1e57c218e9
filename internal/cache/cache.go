// Package cache implements the sharded, Bloom-gated prefix-refinement
// result cache: a bounded LRU of previous search result sets that can
// answer a "type one more character" query without a full re-search.
package cache

import (
	"hash/fnv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
	"github.com/justSteve/coding-agent-session-search/internal/tokenizer"
)

// CachedHit is one hit as stored in a cache entry: the original hit plus
// the lowercased fields and Bloom mask needed for prefix-refinement
// verification without re-touching the index.
type CachedHit struct {
	Hit          lexical.Hit
	LowerContent string
	LowerTitle   string
	LowerPreview string
	Bloom        uint64
}

// Entry is a cached result set for one (query, filters, schema) key.
type Entry struct {
	Query   string
	Filters lexical.Filters
	Hits    []CachedHit
	Meta    lexical.SearchMeta
	bytes   int
}

func newEntry(queryText string, filters lexical.Filters, hits []lexical.Hit, meta lexical.SearchMeta) *Entry {
	cached := make([]CachedHit, len(hits))
	size := 0
	for i, h := range hits {
		lc := lowerString(h.Content)
		lt := lowerString(h.Title)
		lp := lowerString(h.Preview)
		cached[i] = CachedHit{
			Hit:          h,
			LowerContent: lc,
			LowerTitle:   lt,
			LowerPreview: lp,
			Bloom:        bloomMask(lc),
		}
		size += len(lc) + len(lt) + len(lp)
	}
	return &Entry{Query: queryText, Filters: filters, Hits: cached, Meta: meta, bytes: size}
}

func lowerString(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}

// Outcome classifies the result of a Lookup.
type Outcome int

const (
	// Miss means no usable cache entry exists; the caller must run a full
	// search and Put its result.
	Miss Outcome = iota
	// Hit means the cache satisfied the request with at least limit
	// verified hits.
	Hit
	// Shortfall means a related cache entry existed but verification
	// produced fewer than limit hits; the caller must fall through to a
	// full search (and may still Put the fresh result).
	Shortfall
)

type shardState struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, *Entry]
	recent map[string]*Entry // filters fingerprint -> most recent entry, for prefix refinement
	bytes  int
}

// Store is the sharded prefix-refinement cache.
type Store struct {
	shards     []*shardState
	shardCap   int
	byteCap    int
	shardCount int
}

// Options configures a Store.
type Options struct {
	ShardCount int // number of independent LRU shards
	ShardCap   int // max entries per shard
	ByteCap    int // byte budget of each shard; the store as a whole can hold up to ShardCount*ByteCap; 0 = unbounded
}

// DefaultOptions matches the core's configuration defaults.
func DefaultOptions() Options {
	return Options{ShardCount: 16, ShardCap: 256, ByteCap: 0}
}

// New creates a Store with the given options.
func New(opts Options) *Store {
	if opts.ShardCount <= 0 {
		opts.ShardCount = 1
	}
	if opts.ShardCap <= 0 {
		opts.ShardCap = 256
	}
	s := &Store{shardCap: opts.ShardCap, byteCap: opts.ByteCap, shardCount: opts.ShardCount}
	s.shards = make([]*shardState, opts.ShardCount)
	for i := range s.shards {
		c, _ := lru.New[string, *Entry](opts.ShardCap)
		s.shards[i] = &shardState{lru: c, recent: make(map[string]*Entry)}
	}
	return s
}

// shardFor hashes only the key's filters-fingerprint component (its last
// "|"-separated field), so every query under the same filters shares one
// shard and a prefix refinement finds the recent entry it extends.
func (s *Store) shardFor(key string) *shardState {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key[strings.LastIndex(key, "|")+1:]))
	return s.shards[h.Sum32()%uint32(s.shardCount)]
}

// Lookup attempts to serve queryText from the cache, either as an exact
// hit or via Bloom-gated prefix refinement of a previously cached query
// under the same filters and session-paths set.
func (s *Store) Lookup(queryText string, filters lexical.Filters, schemaHash, sessionPathsDigest string, limit int) ([]lexical.Hit, lexical.SearchMeta, Outcome) {
	key := Key(queryText, filters, schemaHash, sessionPathsDigest)
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if entry, ok := sh.lru.Get(key); ok {
		return hitsFrom(entry.Hits), entry.Meta, Hit
	}

	fingerprint := FiltersFingerprint(filters, sessionPathsDigest)
	recent, ok := sh.recent[fingerprint]
	if !ok || !isPrefixExtension(recent.Query, queryText) {
		return nil, lexical.SearchMeta{}, Miss
	}

	queryTokens := tokenizer.Tokenize(queryText)
	queryBloom := bloomMask(sanitizeQuery(queryText))

	var matched []lexical.Hit
	for _, ch := range recent.Hits {
		if !bloomContains(ch.Bloom, queryBloom) {
			continue
		}
		if containsAllTokens(ch.LowerContent, queryTokens) {
			matched = append(matched, ch.Hit)
		}
	}

	if len(matched) >= limit {
		return matched, recent.Meta, Hit
	}
	return nil, lexical.SearchMeta{}, Shortfall
}

// Put stores a fresh result set under (queryText, filters, schemaHash,
// sessionPathsDigest), evicting from the shard's LRU and recent-query
// tracker as needed to respect the byte budget.
func (s *Store) Put(queryText string, filters lexical.Filters, schemaHash, sessionPathsDigest string, hits []lexical.Hit, meta lexical.SearchMeta) {
	key := Key(queryText, filters, schemaHash, sessionPathsDigest)
	entry := newEntry(queryText, filters, hits, meta)

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if old, ok := sh.lru.Peek(key); ok {
		sh.bytes -= old.bytes
	}
	sh.lru.Add(key, entry)
	sh.bytes += entry.bytes
	sh.recent[FiltersFingerprint(filters, sessionPathsDigest)] = entry

	if s.byteCap > 0 {
		for sh.bytes > s.byteCap {
			_, evicted, ok := sh.lru.RemoveOldest()
			if !ok {
				break
			}
			sh.bytes -= evicted.bytes
			for fp, e := range sh.recent {
				if e == evicted {
					delete(sh.recent, fp)
				}
			}
		}
	}
}

func hitsFrom(cached []CachedHit) []lexical.Hit {
	out := make([]lexical.Hit, len(cached))
	for i, c := range cached {
		out[i] = c.Hit
	}
	return out
}
