package vectorindex

import "encoding/binary"

// Row is one row-table entry, decoded from its 70-byte on-disk form.
type Row struct {
	DocID       uint64
	CreatedAtMS int64
	AgentID     uint32
	WorkspaceID uint32
	SourceID    uint32
	Role        uint8
	ChunkIdx    uint8
	VecOffset   uint64
	ContentHash [32]byte
}

// EncodeRow writes r's fixed 70-byte representation into dst, which must
// be at least RowSize bytes.
func EncodeRow(dst []byte, r Row) {
	binary.LittleEndian.PutUint64(dst[0:8], r.DocID)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(r.CreatedAtMS))
	binary.LittleEndian.PutUint32(dst[16:20], r.AgentID)
	binary.LittleEndian.PutUint32(dst[20:24], r.WorkspaceID)
	binary.LittleEndian.PutUint32(dst[24:28], r.SourceID)
	dst[28] = r.Role
	dst[29] = r.ChunkIdx
	binary.LittleEndian.PutUint64(dst[30:38], r.VecOffset)
	copy(dst[38:70], r.ContentHash[:])
}

// DecodeRow reads one RowSize-byte row from src.
func DecodeRow(src []byte) Row {
	var r Row
	r.DocID = binary.LittleEndian.Uint64(src[0:8])
	r.CreatedAtMS = int64(binary.LittleEndian.Uint64(src[8:16]))
	r.AgentID = binary.LittleEndian.Uint32(src[16:20])
	r.WorkspaceID = binary.LittleEndian.Uint32(src[20:24])
	r.SourceID = binary.LittleEndian.Uint32(src[24:28])
	r.Role = src[28]
	r.ChunkIdx = src[29]
	r.VecOffset = binary.LittleEndian.Uint64(src[30:38])
	copy(r.ContentHash[:], src[38:70])
	return r
}

// rowAt returns the row at index i within the memory-mapped row table.
func rowAt(rowTable []byte, i int) Row {
	return DecodeRow(rowTable[i*RowSize : (i+1)*RowSize])
}
