package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, HashDimensions)
}

func TestHashEmbedder_UnitNormalized(t *testing.T) {
	e := NewHashEmbedder()
	v, err := e.Embed(context.Background(), "search over coding sessions")
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashEmbedder()
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestHashEmbedder_DistinctTextsDiffer(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()
	v1, _ := e.Embed(ctx, "renaming a function across the repo")
	v2, _ := e.Embed(ctx, "adding a new database migration")
	assert.NotEqual(t, v1, v2)
}

func TestHashEmbedder_EmbedBatch(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()
	texts := []string{"one", "two", "three"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestHashEmbedder_ClosedRejectsEmbed(t *testing.T) {
	e := NewHashEmbedder()
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestHashEmbedder_IDAndRevision(t *testing.T) {
	e := NewHashEmbedder()
	assert.Equal(t, "hash", e.ID())
	assert.Equal(t, "v1", e.Revision())
	assert.Equal(t, HashDimensions, e.Dimensions())
}
