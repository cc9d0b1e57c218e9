package cache

import "strings"

// isPrefixExtension reports whether current is prev with characters
// appended to prev's last token — the only shape the cache will attempt
// to serve from a prior result set rather than falling through to a full
// search. Appending a new token (introducing whitespace) or changing any
// earlier character counts as new boolean structure and is rejected.
func isPrefixExtension(prev, current string) bool {
	if prev == "" || len(current) <= len(prev) {
		return false
	}
	if !strings.HasPrefix(current, prev) {
		return false
	}
	// The appended suffix must not introduce a new token boundary: no
	// whitespace, and no boolean/grouping syntax characters.
	suffix := current[len(prev):]
	if strings.ContainsAny(suffix, " \t\n()\"") {
		return false
	}
	return true
}
