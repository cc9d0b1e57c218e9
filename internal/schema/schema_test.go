package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsStableAcrossCalls(t *testing.T) {
	assert.Equal(t, computeHash(), computeHash())
	assert.Equal(t, Hash, computeHash())
}

func TestWriteAndCheckHash(t *testing.T) {
	dir := t.TempDir()

	matches, err := CheckHash(dir)
	require.NoError(t, err)
	assert.False(t, matches, "missing schema_hash file must be treated as a mismatch")

	require.NoError(t, WriteHash(dir))
	matches, err = CheckHash(dir)
	require.NoError(t, err)
	assert.True(t, matches)

	assert.FileExists(t, filepath.Join(dir, "schema_hash"))
}

func TestBuildIndexMapping(t *testing.T) {
	im, err := BuildIndexMapping()
	require.NoError(t, err)
	require.NotNil(t, im)
	assert.Equal(t, "core_content_analyzer", im.DefaultAnalyzer)
}
