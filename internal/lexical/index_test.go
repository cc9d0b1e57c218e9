package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justSteve/coding-agent-session-search/internal/doc"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx")
	idx, err := Open(path, DefaultMergePolicy(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndex_AddCommitSearch(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	d := doc.Document{
		DocID: 1, SourceID: "src-1", Title: "async worker design",
		Content: "the warm worker debounces background reindex signals",
		Agent:   "claude", Workspace: "searchcore",
	}
	require.NoError(t, idx.AddDocument(ctx, d))
	require.NoError(t, idx.Commit())

	hits, meta, err := idx.Search(ctx, "worker", Filters{}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.False(t, meta.WildcardFallback)
}

func TestIndex_DeleteBySource(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocument(ctx, doc.Document{DocID: 1, SourceID: "src-a", Content: "alpha"}))
	require.NoError(t, idx.Commit())

	require.NoError(t, idx.DeleteBySource(ctx, "src-a"))

	count, err := idx.DocCount()
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
}

func TestIndex_PrefixWildcard(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.AddDocument(ctx, doc.Document{DocID: 1, SourceID: "src-1", Content: "asynchronous pipeline"}))
	require.NoError(t, idx.Commit())

	hits, meta, err := idx.Search(ctx, "async*", Filters{}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.False(t, meta.WildcardFallback)
}
