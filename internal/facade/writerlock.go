package facade

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// writerLockName is the cross-process advisory lock file guarding the
// "at most one writer across lexical + vector at any time" invariant
// against a second OS process opening the same data directory, not just
// a second goroutine within this one — the in-process writeMu only
// protects the latter.
const writerLockName = ".writer.lock"

// acquireWriterLock takes a non-blocking exclusive lock on dataDir's
// writer-lock file via gofrs/flock. Open fails fast with ConfigError
// rather than blocking if another process already holds it, since a
// blocking wait here would silently violate the single-writer
// invariant's intent of surfacing the conflict immediately.
func acquireWriterLock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, corerr.ConfigError("failed to create data directory", err)
	}
	fl := flock.New(filepath.Join(dataDir, writerLockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, corerr.ConfigError("failed to acquire writer lock", err)
	}
	if !ok {
		return nil, corerr.ConfigError("another process already holds the writer lock for this data directory", nil)
	}
	return fl, nil
}
