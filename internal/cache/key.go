package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
)

// CacheKeyVersion is bumped whenever the key format or entry contents
// change shape, invalidating all previously cached entries implicitly.
const CacheKeyVersion = 1

// Key composes the cache key for a query under the given filters, schema,
// and session-paths set. Two calls with equal (queryText, filters,
// schemaHash, sessionPaths) always produce the same key; any schema
// rebuild changes schemaHash and so invalidates every previously cached
// entry for free.
func Key(queryText string, filters lexical.Filters, schemaHash, sessionPathsDigest string) string {
	return fmt.Sprintf("v%d|%s|%s|%s", CacheKeyVersion, schemaHash, sanitizeQuery(queryText), FiltersFingerprint(filters, sessionPathsDigest))
}

func sanitizeQuery(queryText string) string {
	return strings.ToLower(strings.TrimSpace(queryText))
}

// FiltersFingerprint is a stable digest over a filter set and its
// session-paths set, used as part of the cache key and to detect whether
// two queries share identical filters for prefix-refinement purposes.
// Session-paths are folded in here even though they are never folded into
// the lexical/vector Must clauses: they still narrow the result set
// (applied post-retrieval), so two queries that differ only in
// session-paths must never share a cache entry.
func FiltersFingerprint(f lexical.Filters, sessionPathsDigest string) string {
	parts := []string{
		"agent=" + f.Agent,
		"workspace=" + f.Workspace,
		"source=" + f.SourceID,
		"origin=" + string(f.Origin),
		"after=" + strconv.FormatInt(f.CreatedAfter, 10),
		"before=" + strconv.FormatInt(f.CreatedBefore, 10),
		"sessions=" + sessionPathsDigest,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

// SessionPathsDigest reduces an unordered session-paths set to a stable
// digest, sorting a copy first so callers don't need to pre-sort.
func SessionPathsDigest(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:8])
}
