package idstore

import (
	"context"
	"testing"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InternIsStableAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.Intern(ctx, KindAgent, "claude")
	require.NoError(t, err)
	id2, err := s.Intern(ctx, KindAgent, "claude")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestStore_InternAssignsDistinctIDsPerValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Intern(ctx, KindWorkspace, "repo-a")
	require.NoError(t, err)
	b, err := s.Intern(ctx, KindWorkspace, "repo-b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStore_KindsAreIndependentNamespaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agentID, err := s.Intern(ctx, KindAgent, "same-name")
	require.NoError(t, err)
	sourceID, err := s.Intern(ctx, KindSource, "same-name")
	require.NoError(t, err)

	// Both may coincidentally be 1 (separate per-kind counters); what matters
	// is they resolve back to the correct kind independently.
	agentVal, err := s.Resolve(ctx, KindAgent, agentID)
	require.NoError(t, err)
	assert.Equal(t, "same-name", agentVal)

	sourceVal, err := s.Resolve(ctx, KindSource, sourceID)
	require.NoError(t, err)
	assert.Equal(t, "same-name", sourceVal)
}

func TestStore_LookupUnknownValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Lookup(ctx, KindSource, "never-interned")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LookupKnownValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Intern(ctx, KindSource, "local")
	require.NoError(t, err)

	got, ok, err := s.Lookup(ctx, KindSource, "local")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestStore_ResolveUnknownIDIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Resolve(context.Background(), KindAgent, 9999)
	require.Error(t, err)
	assert.Equal(t, corerr.ErrCodeNotFound, corerr.Code(err))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir() + "/meta.sqlite"
	s1, err := Open(dir)
	require.NoError(t, err)
	id, err := s1.Intern(context.Background(), KindWorkspace, "persisted-repo")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Lookup(context.Background(), KindWorkspace, "persisted-repo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got)
}
