// Package dedupe implements the façade's post-retrieval pass: collapsing
// duplicate hits within a source while preserving the same text surfaced
// from a different source, and dropping tool-invocation noise that isn't a
// useful search result on its own.
package dedupe

import (
	"regexp"
	"strings"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
)

// toolMarkerPattern matches a hit whose entire (trimmed) content is nothing
// but a bracketed tool-invocation marker, e.g. "[Tool: bash - list files]".
// Such hits carry no searchable prose of their own and are dropped outright
// rather than deduplicated.
var toolMarkerPattern = regexp.MustCompile(`^\[Tool:[^\]]*\]$`)

// normalize collapses whitespace runs to single spaces and strips
// leading/trailing whitespace, the same canonicalization rule content_hash
// is computed under (doc.Canonicalize), applied here to the Hit's surfaced
// content rather than the full stored document.
func normalize(content string) string {
	fields := strings.Fields(content)
	return strings.Join(fields, " ")
}

// isToolNoise reports whether hit's content is nothing but a bracketed
// tool-invocation marker in isolation.
func isToolNoise(content string) bool {
	return toolMarkerPattern.MatchString(strings.TrimSpace(content))
}

// groupKey identifies the (source_id, normalized_content) dedup group a
// hit belongs to. The source boundary invariant means two groups with
// identical normalized content but different SourceID are always distinct.
type groupKey struct {
	sourceID string
	content  string
}

// Dedupe groups hits by (source_id, normalized_content), keeping the
// highest-scoring hit per group (ties broken by the smallest doc_id), and
// drops any hit whose content is pure tool-invocation noise. The relative
// order of surviving hits (by score, as already established by the caller)
// is preserved.
func Dedupe(hits []lexical.Hit) []lexical.Hit {
	if len(hits) == 0 {
		return hits
	}

	best := make(map[groupKey]lexical.Hit, len(hits))
	order := make([]groupKey, 0, len(hits))

	for _, h := range hits {
		if isToolNoise(h.Content) {
			continue
		}
		key := groupKey{sourceID: h.SourceID, content: normalize(h.Content)}
		existing, ok := best[key]
		if !ok {
			best[key] = h
			order = append(order, key)
			continue
		}
		if h.Score > existing.Score || (h.Score == existing.Score && h.DocID < existing.DocID) {
			best[key] = h
		}
	}

	out := make([]lexical.Hit, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
