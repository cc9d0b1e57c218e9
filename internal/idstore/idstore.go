// Package idstore interns agent, workspace and source identifiers into
// small stable integers backed by SQLite, for use in CVVI's fixed-width
// row table (u32 agent_id/workspace_id/source_id).
package idstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// Kind names an interning namespace. All kinds share one (kind, value) ->
// id table; ids are only unique within a kind.
type Kind string

const (
	KindAgent     Kind = "agent"
	KindWorkspace Kind = "workspace"
	KindSource    Kind = "source"
)

// Store interns strings to small integers, stable within an index
// generation. Interning is append-only: once assigned, an id is never
// reused or reassigned to a different value within the same store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the interning database at path. An
// empty path opens an in-memory store, used by tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, corerr.New(corerr.ErrCodeFilePermission, "failed to open id store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, corerr.New(corerr.ErrCodeFilePermission, "failed to configure id store", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS interned_ids (
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		id INTEGER NOT NULL,
		PRIMARY KEY (kind, value)
	);
	CREATE TABLE IF NOT EXISTS id_counters (
		kind TEXT PRIMARY KEY,
		next_id INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return corerr.New(corerr.ErrCodeIndexCorruption, "failed to initialize id store schema", err)
	}
	return nil
}

// Intern returns the stable integer id for value under kind, assigning a
// new one if value has not been seen before.
func (s *Store) Intern(ctx context.Context, kind Kind, value string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, corerr.New(corerr.ErrCodeInternal, "failed to begin id store transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM interned_ids WHERE kind = ? AND value = ?`, string(kind), value).Scan(&existing)
	if err == nil {
		return uint32(existing), nil
	}
	if err != sql.ErrNoRows {
		return 0, corerr.New(corerr.ErrCodeInternal, "failed to query interned id", err)
	}

	var next int64
	err = tx.QueryRowContext(ctx, `SELECT next_id FROM id_counters WHERE kind = ?`, string(kind)).Scan(&next)
	switch {
	case err == sql.ErrNoRows:
		next = 1
		if _, err := tx.ExecContext(ctx, `INSERT INTO id_counters(kind, next_id) VALUES (?, ?)`, string(kind), next+1); err != nil {
			return 0, corerr.New(corerr.ErrCodeInternal, "failed to seed id counter", err)
		}
	case err != nil:
		return 0, corerr.New(corerr.ErrCodeInternal, "failed to read id counter", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE id_counters SET next_id = ? WHERE kind = ?`, next+1, string(kind)); err != nil {
			return 0, corerr.New(corerr.ErrCodeInternal, "failed to advance id counter", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interned_ids(kind, value, id) VALUES (?, ?, ?)`, string(kind), value, next); err != nil {
		return 0, corerr.New(corerr.ErrCodeInternal, "failed to insert interned id", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, corerr.New(corerr.ErrCodeInternal, "failed to commit interned id", err)
	}
	return uint32(next), nil
}

// Lookup returns the id already assigned to value under kind, without
// assigning a new one. The second return is false if value is unknown.
func (s *Store) Lookup(ctx context.Context, kind Kind, value string) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM interned_ids WHERE kind = ? AND value = ?`, string(kind), value).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, corerr.New(corerr.ErrCodeInternal, "failed to query interned id", err)
	default:
		return uint32(id), true, nil
	}
}

// Resolve returns the original string for (kind, id), or NotFound.
func (s *Store) Resolve(ctx context.Context, kind Kind, id uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM interned_ids WHERE kind = ? AND id = ?`, string(kind), id).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", corerr.NotFound(fmt.Sprintf("no %s interned with id %d", kind, id), nil)
	case err != nil:
		return "", corerr.New(corerr.ErrCodeInternal, "failed to resolve interned id", err)
	default:
		return value, nil
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
