// Package vectorindex implements CVVI (Custom Vector Vector Index): a
// memory-mapped, row-oriented nearest-neighbor store with a fixed binary
// header, a fixed-size row table, and a separate vector slab. Search is
// exact brute-force (not approximate), matching this domain's requirement
// for deterministic, reproducible nearest-neighbor results.
package vectorindex

import (
	"encoding/binary"
	"hash/crc32"
)

// Magic is the 4-byte file signature.
var Magic = [4]byte{'C', 'V', 'V', 'I'}

// FormatVersion is the current on-disk format version.
const FormatVersion uint16 = 1

// Quantization selects the on-disk element width of the vector slab.
type Quantization uint8

const (
	QuantF32 Quantization = 0
	QuantF16 Quantization = 1
)

func (q Quantization) ElementSize() int {
	if q == QuantF16 {
		return 2
	}
	return 4
}

// RowSize is the fixed size in bytes of one row-table entry:
// u64 doc_id, i64 created_at_ms, u32 agent_id, u32 workspace_id,
// u32 source_id, u8 role, u8 chunk_idx, u64 vec_offset, 32B content_hash.
const RowSize = 8 + 8 + 4 + 4 + 4 + 1 + 1 + 8 + 32

// VectorAlignment is the byte alignment of the vector slab, chosen for
// SIMD-friendly access.
const VectorAlignment = 32

// Header is the CVVI file header. Variable-length embedder id/revision
// strings are length-prefixed right after the version field, so the
// encoded header has no fixed size; see EncodeHeader for the byte order.
type Header struct {
	Version       uint16
	EmbedderID    string
	EmbedderRev   string
	Dimension     uint32
	Quantization  Quantization
	RowCount      uint32
}

// EncodeHeader serializes h, returning the full header byte slice
// (fixed fields + length-prefixed strings + trailing CRC32 of everything
// preceding it).
func EncodeHeader(h Header) []byte {
	buf := make([]byte, 0, 64+len(h.EmbedderID)+len(h.EmbedderRev))
	buf = append(buf, Magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(h.EmbedderID)))
	buf = append(buf, h.EmbedderID...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(h.EmbedderRev)))
	buf = append(buf, h.EmbedderRev...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Dimension)
	buf = append(buf, byte(h.Quantization))
	buf = binary.LittleEndian.AppendUint32(buf, h.RowCount)

	crc := crc32.ChecksumIEEE(buf)
	buf = binary.LittleEndian.AppendUint32(buf, crc)
	return buf
}

// DecodeHeader parses a CVVI header from the start of data, returning the
// header, the byte offset immediately following it (where the row table
// begins), and an error if the magic or CRC don't match.
func DecodeHeader(data []byte) (Header, int, error) {
	if len(data) < 4+2+2 {
		return Header{}, 0, errShortHeader
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return Header{}, 0, errBadMagic
	}
	pos := 4
	version := binary.LittleEndian.Uint16(data[pos:])
	pos += 2

	idLen := int(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2
	if pos+idLen > len(data) {
		return Header{}, 0, errShortHeader
	}
	embedderID := string(data[pos : pos+idLen])
	pos += idLen

	if pos+2 > len(data) {
		return Header{}, 0, errShortHeader
	}
	revLen := int(binary.LittleEndian.Uint16(data[pos:]))
	pos += 2
	if pos+revLen > len(data) {
		return Header{}, 0, errShortHeader
	}
	embedderRev := string(data[pos : pos+revLen])
	pos += revLen

	if pos+4+1+4+4 > len(data) {
		return Header{}, 0, errShortHeader
	}
	dimension := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	quant := Quantization(data[pos])
	pos++
	rowCount := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	crcStored := binary.LittleEndian.Uint32(data[pos:])
	crcComputed := crc32.ChecksumIEEE(data[:pos])
	pos += 4
	if crcStored != crcComputed {
		return Header{}, 0, errBadCRC
	}

	h := Header{
		Version:      version,
		EmbedderID:   embedderID,
		EmbedderRev:  embedderRev,
		Dimension:    dimension,
		Quantization: quant,
		RowCount:     rowCount,
	}
	return h, pos, nil
}

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int) int {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}
