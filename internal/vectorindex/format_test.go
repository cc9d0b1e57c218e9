package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{Version: FormatVersion, EmbedderID: "hash-v1", EmbedderRev: "r3", Dimension: 128, Quantization: QuantF16, RowCount: 42}
	encoded := EncodeHeader(h)

	got, pos, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, len(encoded), pos)
}

func TestDecodeHeader_BadMagic(t *testing.T) {
	data := []byte("NOPE0000000000")
	_, _, err := DecodeHeader(data)
	assert.Error(t, err)
}

func TestDecodeHeader_CorruptedCRC(t *testing.T) {
	h := Header{Version: 1, EmbedderID: "a", EmbedderRev: "b", Dimension: 4, Quantization: QuantF32, RowCount: 1}
	encoded := EncodeHeader(h)
	encoded[len(encoded)-1] ^= 0xFF // flip a CRC byte

	_, _, err := DecodeHeader(encoded)
	assert.Error(t, err)
}

func TestRow_RoundTrip(t *testing.T) {
	r := Row{DocID: 7, CreatedAtMS: 123456, AgentID: 1, WorkspaceID: 2, SourceID: 3, Role: 1, ChunkIdx: 0, VecOffset: 512}
	r.ContentHash[0] = 0xAB

	buf := make([]byte, RowSize)
	EncodeRow(buf, r)
	got := DecodeRow(buf)
	assert.Equal(t, r, got)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 32, alignUp(1, 32))
	assert.Equal(t, 32, alignUp(32, 32))
	assert.Equal(t, 64, alignUp(33, 32))
}
