package vectorindex

import (
	"container/heap"
	"context"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// ParallelRowThreshold is the row count at or above which a query scan is
// split into parallel chunks.
const ParallelRowThreshold = 10_000

// ChunkRows is the approximate number of rows per parallel scan chunk.
const ChunkRows = 1024

// Index is an opened, memory-mapped CVVI file.
type Index struct {
	file *os.File
	mm   mmap.MMap

	header   Header
	rowTable []byte
	slab     []byte

	// preconverted holds a one-time-materialized F32 copy of the slab
	// when the quantization is F16 and pre-convert is enabled, trading
	// ~2x the F16 size in RAM to eliminate per-query conversion.
	preconverted [][]float32
}

// Result is one scored nearest-neighbor match.
type Result struct {
	Row   Row
	Score float32
}

// OpenOptions configures how an index is validated and loaded.
type OpenOptions struct {
	ExpectedEmbedderID  string
	ExpectedEmbedderRev string
	ExpectedDimension   int
	Preconvert          bool
}

// Open memory-maps path, validates its header against opts, and
// optionally pre-converts an F16 slab to F32 in RAM.
func Open(path string, opts OpenOptions) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, corerr.New(corerr.ErrCodeFileNotFound, "cvvi: cannot open index file", err)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, corerr.IndexCorruption("cvvi: mmap failed", err)
	}

	header, rowTableStart, err := DecodeHeader(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}

	if opts.ExpectedDimension != 0 && int(header.Dimension) != opts.ExpectedDimension {
		m.Unmap()
		f.Close()
		return nil, errDimensionMismatch(opts.ExpectedDimension, int(header.Dimension))
	}
	if opts.ExpectedEmbedderID != "" && (header.EmbedderID != opts.ExpectedEmbedderID || header.EmbedderRev != opts.ExpectedEmbedderRev) {
		m.Unmap()
		f.Close()
		return nil, errEmbedderMismatch(opts.ExpectedEmbedderID, opts.ExpectedEmbedderRev, header.EmbedderID, header.EmbedderRev)
	}

	rowTableSize := int(header.RowCount) * RowSize
	if rowTableStart+rowTableSize > len(m) {
		m.Unmap()
		f.Close()
		return nil, corerr.IndexCorruption("cvvi: row table extends past mapped range", nil)
	}
	rowTable := m[rowTableStart : rowTableStart+rowTableSize]

	slabStart := alignUp(rowTableStart+rowTableSize, VectorAlignment)
	var slab []byte
	if slabStart < len(m) {
		slab = m[slabStart:]
	}

	idx := &Index{file: f, mm: m, header: header, rowTable: rowTable, slab: slab}

	if opts.Preconvert && header.Quantization == QuantF16 {
		idx.preconvertAll()
	}

	return idx, nil
}

func (idx *Index) preconvertAll() {
	n := int(idx.header.RowCount)
	idx.preconverted = make([][]float32, n)
	dim := int(idx.header.Dimension)
	for i := 0; i < n; i++ {
		row := rowAt(idx.rowTable, i)
		idx.preconverted[i] = decodeVectorF32(idx.slab, row.VecOffset, dim, idx.header.Quantization)
	}
}

func (idx *Index) vectorAt(i int) []float32 {
	if idx.preconverted != nil {
		return idx.preconverted[i]
	}
	row := rowAt(idx.rowTable, i)
	return decodeVectorF32(idx.slab, row.VecOffset, int(idx.header.Dimension), idx.header.Quantization)
}

// RowCount returns the number of rows in the index.
func (idx *Index) RowCount() int { return int(idx.header.RowCount) }

// RowAt returns the decoded row at position i, for callers building a
// prefilter (e.g. the façade narrowing a scan to rows matching lexical
// filters before calling Query).
func (idx *Index) RowAt(i int) Row { return rowAt(idx.rowTable, i) }

// ExportAll returns every row and its decoded vector, in on-disk order.
// The index is always rebuilt wholesale (see Builder); callers that add
// new rows to an already-populated index must seed a fresh Builder with
// ExportAll's output before appending, since there is no in-place append.
func (idx *Index) ExportAll() ([]Row, [][]float32) {
	n := idx.RowCount()
	rows := make([]Row, n)
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		rows[i] = rowAt(idx.rowTable, i)
		vec := idx.vectorAt(i)
		cp := make([]float32, len(vec))
		copy(cp, vec)
		vectors[i] = cp
	}
	return rows, vectors
}

// Dimension returns the index's embedding dimension.
func (idx *Index) Dimension() int { return int(idx.header.Dimension) }

// Close unmaps and closes the underlying file.
func (idx *Index) Close() error {
	if err := idx.mm.Unmap(); err != nil {
		idx.file.Close()
		return err
	}
	return idx.file.Close()
}

// scoredHeap is a min-heap over Result so the top-K largest scores can be
// maintained in O(log k) per candidate.
type scoredHeap []Result

func (h scoredHeap) Len() int { return len(h) }
func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	// Within the heap, keep the larger doc_id "smaller" so the eventual
	// ascending-doc_id tie-break survives a simple score-sort afterward.
	return h[i].Row.DocID > h[j].Row.DocID
}
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushCandidate(h *scoredHeap, k int, r Result) {
	if h.Len() < k {
		heap.Push(h, r)
		return
	}
	if (*h)[0].Score < r.Score || ((*h)[0].Score == r.Score && (*h)[0].Row.DocID > r.Row.DocID) {
		(*h)[0] = r
		heap.Fix(h, 0)
	}
}

// Query scans query against every row in prefilter (or every row, if
// prefilter is nil), returning the top-k by dot-product score. prefilter,
// when provided, must be sorted ascending for cache-friendly traversal.
// Ties break on doc_id ascending.
func (idx *Index) Query(ctx context.Context, query []float32, k int, prefilter []int) ([]Result, error) {
	if len(query) != int(idx.header.Dimension) {
		return nil, errDimensionMismatch(int(idx.header.Dimension), len(query))
	}

	indices := prefilter
	if indices == nil {
		indices = make([]int, idx.header.RowCount)
		for i := range indices {
			indices[i] = i
		}
	}

	if len(indices) < ParallelRowThreshold {
		h := &scoredHeap{}
		idx.scanRange(indices, query, k, h)
		return drainSorted(h), nil
	}
	return idx.queryParallel(ctx, query, k, indices)
}

func (idx *Index) scanRange(indices []int, query []float32, k int, h *scoredHeap) {
	for _, i := range indices {
		row := rowAt(idx.rowTable, i)
		score := dotF32(query, idx.vectorAt(i))
		pushCandidate(h, k, Result{Row: row, Score: score})
	}
}

func (idx *Index) queryParallel(ctx context.Context, query []float32, k int, indices []int) ([]Result, error) {
	numChunks := (len(indices) + ChunkRows - 1) / ChunkRows
	partials := make([]scoredHeap, numChunks)

	g, _ := errgroup.WithContext(ctx)
	for c := 0; c < numChunks; c++ {
		c := c
		start := c * ChunkRows
		end := start + ChunkRows
		if end > len(indices) {
			end = len(indices)
		}
		g.Go(func() error {
			local := &scoredHeap{}
			idx.scanRange(indices[start:end], query, k, local)
			partials[c] = *local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &scoredHeap{}
	for _, p := range partials {
		for _, r := range p {
			pushCandidate(merged, k, r)
		}
	}
	return drainSorted(merged), nil
}

func drainSorted(h *scoredHeap) []Result {
	out := make([]Result, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Row.DocID < out[j].Row.DocID
	})
	return out
}
