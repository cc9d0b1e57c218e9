// Package doc defines the indexed unit — a single message within a recorded
// coding-agent conversation — and the canonicalization rule used to derive
// its content hash.
package doc

import (
	"crypto/sha256"
	"strings"
)

// OriginKind distinguishes documents ingested from the local machine from
// those mirrored from a remote host.
type OriginKind string

const (
	OriginLocal  OriginKind = "local"
	OriginRemote OriginKind = "remote"
)

// Role is the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Document is the indexed unit: one message within one conversation.
//
// (SourceID, DocID) is unique. MsgIdx is monotonic within a ConversationID.
// ContentHash is deterministic under Canonicalize and is shared between the
// lexical document and its corresponding CVVI row.
type Document struct {
	DocID      uint64
	SourceID   string
	OriginKind OriginKind
	OriginHost string // stored only

	Workspace         string // exact-match token
	WorkspaceOriginal string // stored only, for audit

	Agent          string // slug
	ConversationID string
	MsgIdx         uint64

	Role Role

	CreatedAt int64 // milliseconds since epoch

	Title   string
	Content string
	Preview string // stored only, truncated content

	ContentHash [32]byte
}

// Canonicalize collapses whitespace runs to single spaces and strips
// leading/trailing whitespace. content_hash is computed over this form so
// that cosmetic whitespace differences never produce distinct hashes.
func Canonicalize(content string) string {
	fields := strings.Fields(content)
	return strings.Join(fields, " ")
}

// HashContent computes the 32-byte content_hash used for dedup and vector
// addressing: SHA-256 over the canonicalized content.
func HashContent(content string) [32]byte {
	return sha256.Sum256([]byte(Canonicalize(content)))
}

// WithComputedHash returns a copy of d with ContentHash set from d.Content.
func (d Document) WithComputedHash() Document {
	d.ContentHash = HashContent(d.Content)
	return d
}
