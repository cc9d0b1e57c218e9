// Package snippet generates match-highlighted excerpts of a hit's content
// for display, producing a bounded excerpt around the first match rather
// than highlighting the full stored content.
package snippet

import (
	"strings"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
)

// DefaultMaxLength is the default excerpt length in bytes, used when no
// length is supplied.
const DefaultMaxLength = 240

// maxMatchesPerTerm caps per-term highlight work so a pathological term
// that matches thousands of times can't blow up snippet generation.
const maxMatchesPerTerm = 10

// Range is a highlighted span, expressed as byte offsets into the
// returned Text.
type Range struct {
	Start int
	End   int
}

// Snippet is an excerpt of a document's content with the matched-term
// spans it contains.
type Snippet struct {
	Text       string
	Highlights []Range
}

// Generate builds a Snippet from content given the terms that matched it.
// When matchedTerms is empty (a boolean/phrase/range query with no
// highlightable terms) or content is empty, it falls back to a plain
// leading excerpt with no highlights — the invariant that every
// highlighted span is a substring of the stored content holds trivially
// since there are none.
func Generate(content string, matchedTerms []string, maxLen int) Snippet {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if content == "" {
		return Snippet{}
	}

	center := firstMatchOffset(content, matchedTerms)
	text, offset := excerptAround(content, center, maxLen)
	highlights := highlightsIn(text, offset, matchedTerms)

	return Snippet{Text: text, Highlights: highlights}
}

// ForHit is a convenience wrapper generating a snippet from a lexical.Hit's
// content and matched terms, preferring the stored Preview field when
// content is unavailable (stored-only documents).
func ForHit(h lexical.Hit, maxLen int) Snippet {
	content := h.Content
	if content == "" {
		content = h.Preview
	}
	return Generate(content, h.MatchedTerms, maxLen)
}

// firstMatchOffset returns the byte offset of the earliest matched-term
// occurrence in content, or 0 if none matched (prefix-only / boolean
// queries without a direct term literal, or no terms at all).
func firstMatchOffset(content string, matchedTerms []string) int {
	lower := strings.ToLower(content)
	best := -1
	for _, term := range matchedTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if idx := strings.Index(lower, term); idx != -1 && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return 0
	}
	return best
}

// excerptAround extracts up to maxLen bytes of content centered on center,
// returning the excerpt and the byte offset within content where it
// starts (needed to translate highlight offsets back into excerpt-local
// ones).
func excerptAround(content string, center, maxLen int) (string, int) {
	if len(content) <= maxLen {
		return content, 0
	}
	half := maxLen / 2
	start := center - half
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}
	return content[start:end], start
}

// highlightsIn finds every matched-term occurrence within excerpt (already
// offset by baseOffset relative to the full content, though callers only
// ever use excerpt-local ranges here), sorted by start position.
func highlightsIn(excerpt string, _ int, matchedTerms []string) []Range {
	if len(matchedTerms) == 0 || excerpt == "" {
		return nil
	}
	lower := strings.ToLower(excerpt)
	var out []Range
	for _, term := range matchedTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		start := 0
		count := 0
		for count < maxMatchesPerTerm {
			idx := strings.Index(lower[start:], term)
			if idx == -1 {
				break
			}
			abs := start + idx
			out = append(out, Range{Start: abs, End: abs + len(term)})
			start = abs + len(term)
			count++
		}
	}
	sortRanges(out)
	return out
}

func sortRanges(r []Range) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j-1].Start > r[j].Start; j-- {
			r[j-1], r[j] = r[j], r[j-1]
		}
	}
}
