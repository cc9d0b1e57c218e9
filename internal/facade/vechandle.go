package facade

import (
	"sync"

	"github.com/justSteve/coding-agent-session-search/internal/vectorindex"
)

// vecHandle refcounts borrows of a single *vectorindex.Index generation so
// a rebuild's pointer swap never unmaps the old mmap out from under a
// search that is still reading it. acquire/release bracket the whole
// borrow — prefilter scan and Query must run against the same acquired
// pointer, since row indices from one generation are meaningless against
// another's slab. retire marks the handle as superseded; the underlying
// index is only closed once the last outstanding borrow releases it,
// matching §5's "old maps drop once no outstanding search references them."
type vecHandle struct {
	idx *vectorindex.Index

	mu      sync.Mutex
	refs    int
	retired bool
}

func newVecHandle(idx *vectorindex.Index) *vecHandle {
	return &vecHandle{idx: idx}
}

// acquire borrows the underlying index for the duration of one search.
// Callers must call release exactly once for every acquire.
func (h *vecHandle) acquire() *vectorindex.Index {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
	return h.idx
}

// release ends a borrow started by acquire. If the handle has already
// been retired and this was the last outstanding borrow, it closes the
// underlying index.
func (h *vecHandle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.retired && h.refs <= 0
	h.mu.Unlock()
	if closeNow {
		_ = h.idx.Close()
	}
}

// retire marks the handle as superseded by a newer generation. The
// underlying index closes immediately if no borrow is outstanding, or
// is deferred to the last release otherwise.
func (h *vecHandle) retire() {
	h.mu.Lock()
	h.retired = true
	closeNow := h.refs <= 0
	h.mu.Unlock()
	if closeNow {
		_ = h.idx.Close()
	}
}
