package facade

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justSteve/coding-agent-session-search/internal/config"
	"github.com/justSteve/coding-agent-session-search/internal/doc"
)

func openTestFacade(t *testing.T) *Facade {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Embedder = config.EmbedderHash

	f, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func seedDocs(t *testing.T, f *Facade, docs []doc.Document) {
	t.Helper()
	_, err := f.IndexBatch(context.Background(), docs)
	require.NoError(t, err)
}

func TestFacade_Search_LexicalPrefixWildcard(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "auth bug", Content: "fix the auth bug in the login flow"},
		{DocID: 2, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "authn refactor", Content: "refactor authn middleware"},
		{DocID: 3, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "payments", Content: "payments service cleanup"},
		{DocID: 4, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "auth retry", Content: "retry auth token refresh on 401"},
	})

	res, err := f.Search(context.Background(), "auth*", ModeLexical, Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	require.Equal(t, "prefix", res.Meta.Strategy)
	require.False(t, res.Meta.WildcardFallback)
}

func TestFacade_Search_DedupPreservesSourceBoundary(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "local", Agent: "claude", Workspace: "ws", Content: "hello world"},
		{DocID: 2, SourceID: "remote:hostA", Agent: "claude", Workspace: "ws", Content: "hello world"},
	})

	res, err := f.Search(context.Background(), "hello", ModeLexical, Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	sources := map[string]bool{}
	for _, h := range res.Hits {
		sources[h.SourceID] = true
	}
	require.True(t, sources["local"])
	require.True(t, sources["remote:hostA"])
}

func TestFacade_Search_SemanticFindsSeedDocument(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "src-1", Agent: "claude", Workspace: "ws", Content: "debounced warm worker reload logic"},
		{DocID: 2, SourceID: "src-1", Agent: "claude", Workspace: "ws", Content: "unrelated payments invoice formatting"},
	})

	res, err := f.Search(context.Background(), "debounced warm worker reload logic", ModeSemantic, Filters{}, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	require.Equal(t, uint64(1), res.Hits[0].DocID)
	require.Equal(t, "semantic", res.Meta.Strategy)
}

func TestFacade_Search_HybridMergesBothEngines(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "auth bug", Content: "fix the auth bug in login"},
		{DocID: 2, SourceID: "src-1", Agent: "claude", Workspace: "ws", Title: "payments", Content: "payments cleanup"},
	})

	res, err := f.Search(context.Background(), "auth", ModeHybrid, Filters{}, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	require.Equal(t, "hybrid", res.Meta.Strategy)
}

func TestFacade_Search_FilterByAgentAndWorkspace(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "src-1", Agent: "claude", Workspace: "ws-a", Content: "deploy pipeline notes"},
		{DocID: 2, SourceID: "src-1", Agent: "codex", Workspace: "ws-b", Content: "deploy pipeline notes"},
	})

	res, err := f.Search(context.Background(), "deploy", ModeLexical, Filters{Agent: "claude", Workspace: "ws-a"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Equal(t, uint64(1), res.Hits[0].DocID)
}

func TestFacade_Search_CacheRefinementAcrossIncrementalQueries(t *testing.T) {
	f := openTestFacade(t)
	seedDocs(t, f, []doc.Document{
		{DocID: 1, SourceID: "src-1", Agent: "claude", Workspace: "ws", Content: "authentication flow across services"},
	})

	ctx := context.Background()
	_, err := f.Search(ctx, "a", ModeLexical, Filters{}, 10, 0)
	require.NoError(t, err)

	final, err := f.Search(ctx, "auth", ModeLexical, Filters{}, 10, 0)
	require.NoError(t, err)

	direct, err := f.Search(ctx, "auth", ModeLexical, Filters{}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, len(direct.Hits), len(final.Hits))
}

func TestFacade_Search_PaginationNextCursor(t *testing.T) {
	f := openTestFacade(t)
	docs := make([]doc.Document, 0, 5)
	for i := uint64(1); i <= 5; i++ {
		docs = append(docs, doc.Document{DocID: i, SourceID: "src-1", Agent: "claude", Workspace: "ws", Content: "paginated result entry " + strconv.FormatUint(i, 10)})
	}
	seedDocs(t, f, docs)

	res, err := f.Search(context.Background(), "paginated", ModeLexical, Filters{}, 2, 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	require.Equal(t, 2, res.Meta.NextCursor)
}
