package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, quant Quantization, rows int, dim int) string {
	t.Helper()
	b := NewBuilder("hash-v1", "r1", dim, quant)
	for i := 0; i < rows; i++ {
		vec := make([]float32, dim)
		vec[i%dim] = 1 // distinct unit vectors so nearest-neighbor order is deterministic
		require.NoError(t, b.Add(Row{DocID: uint64(i + 1)}, vec))
	}
	path := filepath.Join(t.TempDir(), "vectors.cvvi")
	require.NoError(t, b.Flush(path))
	return path
}

func TestIndex_OpenAndQuery(t *testing.T) {
	path := buildTestIndex(t, QuantF32, 16, 4)
	idx, err := Open(path, OpenOptions{ExpectedEmbedderID: "hash-v1", ExpectedEmbedderRev: "r1", ExpectedDimension: 4})
	require.NoError(t, err)
	defer idx.Close()

	query := []float32{1, 0, 0, 0}
	results, err := idx.Query(context.Background(), query, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestIndex_EmbedderMismatchRejected(t *testing.T) {
	path := buildTestIndex(t, QuantF32, 4, 4)
	_, err := Open(path, OpenOptions{ExpectedEmbedderID: "other", ExpectedEmbedderRev: "r1", ExpectedDimension: 4})
	assert.Error(t, err)
}

func TestIndex_DimensionMismatchRejected(t *testing.T) {
	path := buildTestIndex(t, QuantF32, 4, 4)
	_, err := Open(path, OpenOptions{ExpectedDimension: 8})
	assert.Error(t, err)
}

func TestIndex_F16Preconvert(t *testing.T) {
	path := buildTestIndex(t, QuantF16, 4, 4)
	idx, err := Open(path, OpenOptions{ExpectedDimension: 4, Preconvert: true})
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestIndex_PrefilterRestrictsScan(t *testing.T) {
	path := buildTestIndex(t, QuantF32, 10, 4)
	idx, err := Open(path, OpenOptions{ExpectedDimension: 4})
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, 10, []int{0, 1})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_ParallelScanMatchesSequential(t *testing.T) {
	path := buildTestIndex(t, QuantF32, 11_000, 4)
	idx, err := Open(path, OpenOptions{ExpectedDimension: 4})
	require.NoError(t, err)
	defer idx.Close()

	require.True(t, idx.RowCount() >= ParallelRowThreshold)
	results, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
}
