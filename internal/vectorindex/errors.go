package vectorindex

import (
	"strconv"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

var (
	errBadMagic    = corerr.IndexCorruption("cvvi: bad magic, index requires rebuild", nil)
	errBadCRC      = corerr.IndexCorruption("cvvi: header CRC mismatch, index requires rebuild", nil)
	errShortHeader = corerr.IndexCorruption("cvvi: truncated header, index requires rebuild", nil)
)

// errDimensionMismatch is returned when a query vector's dimension doesn't
// match the index's declared dimension.
func errDimensionMismatch(expected, got int) error {
	return corerr.New(corerr.ErrCodeDimensionMismatch, "cvvi: query vector dimension mismatch", nil).
		WithDetail("expected", strconv.Itoa(expected)).
		WithDetail("got", strconv.Itoa(got))
}

// errEmbedderMismatch is returned when the index's embedder id/revision
// doesn't match the caller's, per the fatal "refuses to load" contract.
func errEmbedderMismatch(wantID, wantRev, gotID, gotRev string) error {
	return corerr.IndexCorruption("cvvi: embedder id/revision mismatch, index requires rebuild", nil).
		WithDetail("index_embedder", wantID+"@"+wantRev).
		WithDetail("query_embedder", gotID+"@"+gotRev)
}
