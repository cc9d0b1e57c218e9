package cache

import (
	"hash/fnv"
	"strings"

	"github.com/justSteve/coding-agent-session-search/internal/tokenizer"
)

// BloomBits is the fixed width of the per-hit/per-query Bloom mask.
const BloomBits = 64

// bloomMask sets bit hash(prefix) mod 64 for every edge-n-gram prefix of
// every token in text. Building the mask over prefixes rather than whole
// tokens is what makes the gate monotone under prefix refinement: a
// query's mask for "auth" is a byproduct of the same prefix family that a
// cached full word like "authentication" already sets bits for, so
// lengthening the query can only ask for bits already present in a true
// match — never introduce a bit a genuine match wouldn't have set.
func bloomMask(text string) uint64 {
	var mask uint64
	for _, prefix := range tokenizer.ExpandEdgeNgrams(text) {
		mask |= 1 << bloomBit(prefix)
	}
	return mask
}

func bloomBit(token string) uint64 {
	h := fnv.New64()
	_, _ = h.Write([]byte(token))
	return h.Sum64() % BloomBits
}

// bloomContains reports whether cached's bits are a superset of query's:
// every bit the query needs is present in the cached entry's mask. Bloom
// false positives are possible (the gate may pass a non-match through to
// substring verification); false negatives are not.
func bloomContains(cachedMask, queryMask uint64) bool {
	return cachedMask&queryMask == queryMask
}

// containsAllTokens authoritatively verifies that every token of query
// appears as a substring of lowerContent, which is how the cache resolves
// Bloom false positives.
func containsAllTokens(lowerContent string, queryTokens []string) bool {
	for _, tok := range queryTokens {
		if !strings.Contains(lowerContent, tok) {
			return false
		}
	}
	return true
}
