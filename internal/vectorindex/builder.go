package vectorindex

import (
	"encoding/binary"
	"math"
	"os"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// Builder accumulates rows and vectors in memory and flushes them to a
// single CVVI file. The index is always rebuilt wholesale from the
// lexical corpus rather than patched in place, matching the fatal/rebuild
// failure semantics named in the data model.
type Builder struct {
	EmbedderID  string
	EmbedderRev string
	Dimension   int
	Quant       Quantization

	rows    []Row
	vectors [][]float32
}

// NewBuilder creates a Builder for an index of the given dimension,
// embedder identity, and on-disk quantization.
func NewBuilder(embedderID, embedderRev string, dimension int, quant Quantization) *Builder {
	return &Builder{EmbedderID: embedderID, EmbedderRev: embedderRev, Dimension: dimension, Quant: quant}
}

// Add appends one row and its unit-normalized vector. vec must have length
// Dimension.
func (b *Builder) Add(row Row, vec []float32) error {
	if len(vec) != b.Dimension {
		return errDimensionMismatch(b.Dimension, len(vec))
	}
	b.rows = append(b.rows, row)
	b.vectors = append(b.vectors, vec)
	return nil
}

// Flush writes the accumulated rows and vectors to path as a single CVVI
// file: header, row table, then a 32-byte-aligned vector slab.
func (b *Builder) Flush(path string) error {
	header := EncodeHeader(Header{
		Version:      FormatVersion,
		EmbedderID:   b.EmbedderID,
		EmbedderRev:  b.EmbedderRev,
		Dimension:    uint32(b.Dimension),
		Quantization: b.Quant,
		RowCount:     uint32(len(b.rows)),
	})

	rowTableSize := len(b.rows) * RowSize
	vecSlabStart := alignUp(len(header)+rowTableSize, VectorAlignment)
	elemSize := b.Quant.ElementSize()
	vecSlabSize := len(b.rows) * b.Dimension * elemSize

	buf := make([]byte, vecSlabStart+vecSlabSize)
	copy(buf, header)

	rowOff := len(header)
	for i, row := range b.rows {
		// vec_offset is relative to the start of the vector slab.
		row.VecOffset = uint64(i * b.Dimension * elemSize)
		EncodeRow(buf[rowOff+i*RowSize:rowOff+(i+1)*RowSize], row)
	}

	for i, vec := range b.vectors {
		off := vecSlabStart + i*b.Dimension*elemSize
		encodeVector(buf[off:off+b.Dimension*elemSize], vec, b.Quant)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return corerr.New(corerr.ErrCodeDiskFull, "failed to write cvvi index", err)
	}
	return nil
}

func encodeVector(dst []byte, vec []float32, q Quantization) {
	if q == QuantF32 {
		for i, v := range vec {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
		}
		return
	}
	for i, v := range vec {
		binary.LittleEndian.PutUint16(dst[i*2:], f32ToF16(v))
	}
}
