// Package schema defines the lexical index's field catalog and the
// schema_hash used to detect a stale on-disk index at startup.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FieldType is the indexing treatment applied to a field.
type FieldType string

const (
	// FieldText is tokenized through the core analyzer (content + its
	// edge-n-gram prefix sibling).
	FieldText FieldType = "text"
	// FieldExact is a single-token, case-sensitive, verbatim-compared
	// string (agent, workspace, source_id, origin_kind).
	FieldExact FieldType = "exact"
	// FieldNumericFast is an indexed, non-analyzed, range-queryable
	// number (created_at).
	FieldNumericFast FieldType = "numeric_fast"
	// FieldNumericStored is an indexed, stored number (msg_idx).
	FieldNumericStored FieldType = "numeric_stored"
	// FieldStoredOnly is retrievable but never indexed or searchable
	// (workspace_original, origin_host, preview).
	FieldStoredOnly FieldType = "stored_only"
)

// Field names exactly as named in the data model.
const (
	FieldTitle             = "title"
	FieldTitlePrefix       = "title_prefix"
	FieldContent           = "content"
	FieldContentPrefix     = "content_prefix"
	FieldAgent             = "agent"
	FieldWorkspace         = "workspace"
	FieldSourceID          = "source_id"
	FieldOriginKind        = "origin_kind"
	FieldCreatedAt         = "created_at"
	FieldMsgIdx            = "msg_idx"
	FieldWorkspaceOriginal = "workspace_original"
	FieldOriginHost        = "origin_host"
	FieldPreview           = "preview"
)

// FieldSpec describes one field's name, type, and (for text fields) the
// analyzer variant it's indexed with.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Analyzer string // only meaningful for FieldType == FieldText
}

// Catalog is the full, ordered field list. Order is part of the
// schema_hash input, so it must never be reordered without bumping the
// hash (i.e. without triggering a rebuild).
var Catalog = []FieldSpec{
	{Name: FieldTitle, Type: FieldText, Analyzer: "core_content_analyzer"},
	{Name: FieldTitlePrefix, Type: FieldText, Analyzer: "core_prefix_analyzer"},
	{Name: FieldContent, Type: FieldText, Analyzer: "core_content_analyzer"},
	{Name: FieldContentPrefix, Type: FieldText, Analyzer: "core_prefix_analyzer"},
	{Name: FieldAgent, Type: FieldExact},
	{Name: FieldWorkspace, Type: FieldExact},
	{Name: FieldSourceID, Type: FieldExact},
	{Name: FieldOriginKind, Type: FieldExact},
	{Name: FieldCreatedAt, Type: FieldNumericFast},
	{Name: FieldMsgIdx, Type: FieldNumericStored},
	{Name: FieldWorkspaceOriginal, Type: FieldStoredOnly},
	{Name: FieldOriginHost, Type: FieldStoredOnly},
	{Name: FieldPreview, Type: FieldStoredOnly},
}

// Hash is the compile-time schema hash: a short hex digest over every
// field's name, type, and analyzer. Bump the catalog (add/remove/retype a
// field) and this value changes automatically, which is exactly the signal
// a mismatch check needs.
var Hash = computeHash()

func computeHash() string {
	h := sha256.New()
	for _, f := range Catalog {
		fmt.Fprintf(h, "%s|%s|%s\n", f.Name, f.Type, f.Analyzer)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

const hashFileName = "schema_hash"

// HashPath returns the path of the schema_hash marker file under an index
// root directory.
func HashPath(indexRoot string) string {
	return filepath.Join(indexRoot, hashFileName)
}

// WriteHash writes the current schema Hash to indexRoot/schema_hash,
// creating indexRoot if necessary.
func WriteHash(indexRoot string) error {
	if err := os.MkdirAll(indexRoot, 0o755); err != nil {
		return err
	}
	return os.WriteFile(HashPath(indexRoot), []byte(Hash), 0o644)
}

// CheckHash reads indexRoot/schema_hash and reports whether it matches the
// current compiled-in Hash. A missing file is treated as a mismatch (forces
// the caller to rebuild rather than open an index of unknown schema).
func CheckHash(indexRoot string) (matches bool, err error) {
	data, err := os.ReadFile(HashPath(indexRoot))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(data) == Hash, nil
}
