package facade

import (
	"context"
	"os"
	"path/filepath"

	"github.com/justSteve/coding-agent-session-search/internal/config"
	"github.com/justSteve/coding-agent-session-search/internal/doc"
	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
	"github.com/justSteve/coding-agent-session-search/internal/idstore"
	"github.com/justSteve/coding-agent-session-search/internal/vectorindex"
)

// roleCode assigns the stable, small integer the CVVI row table stores
// for a message's role.
func roleCode(r doc.Role) uint8 {
	switch r {
	case doc.RoleUser:
		return 0
	case doc.RoleAssistant:
		return 1
	case doc.RoleSystem:
		return 2
	case doc.RoleTool:
		return 3
	default:
		return 255
	}
}

// rebuildVectorIndex folds newDocs into the vector index: it exports every
// row+vector already on disk (if any), appends freshly embedded rows for
// newDocs, and flushes the whole thing to a new file before atomically
// replacing the old one. CVVI has no in-place append (see Builder); every
// write is a wholesale rebuild.
func (f *Facade) rebuildVectorIndex(ctx context.Context, newDocs []doc.Document) error {
	if len(newDocs) == 0 {
		return nil
	}

	texts := make([]string, len(newDocs))
	for i, d := range newDocs {
		texts[i] = d.Content
	}
	vectors, err := f.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return corerr.New(corerr.ErrCodeEmbeddingFailed, "failed to embed batch for vector index", err)
	}

	builder := vectorindex.NewBuilder(f.embedder.ID(), f.embedder.Revision(), f.embedder.Dimensions(), quantFor(f.cfg.VectorQuantization))

	f.vecMu.RLock()
	vh := f.vec
	f.vecMu.RUnlock()
	if vh != nil {
		idx := vh.acquire()
		rows, vecs := idx.ExportAll()
		vh.release()
		for i, row := range rows {
			if err := builder.Add(row, vecs[i]); err != nil {
				return err
			}
		}
	}

	for i, d := range newDocs {
		agentID, err := f.ids.Intern(ctx, idstore.KindAgent, d.Agent)
		if err != nil {
			return err
		}
		workspaceID, err := f.ids.Intern(ctx, idstore.KindWorkspace, d.Workspace)
		if err != nil {
			return err
		}
		sourceID, err := f.ids.Intern(ctx, idstore.KindSource, d.SourceID)
		if err != nil {
			return err
		}
		row := vectorindex.Row{
			DocID:       d.DocID,
			CreatedAtMS: d.CreatedAt,
			AgentID:     agentID,
			WorkspaceID: workspaceID,
			SourceID:    sourceID,
			Role:        roleCode(d.Role),
			ChunkIdx:    0,
			ContentHash: d.WithComputedHash().ContentHash,
		}
		if err := builder.Add(row, vectors[i]); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.vectorPath), 0o755); err != nil {
		return corerr.New(corerr.ErrCodeFilePermission, "failed to create vector index directory", err)
	}
	tmpPath := f.vectorPath + ".tmp"
	if err := builder.Flush(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, f.vectorPath); err != nil {
		return corerr.New(corerr.ErrCodeFilePermission, "failed to publish rebuilt vector index", err)
	}

	newVec, err := vectorindex.Open(f.vectorPath, vectorindex.OpenOptions{
		ExpectedEmbedderID:  f.embedder.ID(),
		ExpectedEmbedderRev: f.embedder.Revision(),
		ExpectedDimension:   f.embedder.Dimensions(),
		Preconvert:          f.cfg.VectorPreconvert,
	})
	if err != nil {
		return err
	}

	f.vecMu.Lock()
	old := f.vec
	f.vec = newVecHandle(newVec)
	f.vecMu.Unlock()
	if old != nil {
		old.retire()
	}
	return nil
}

// rebuildVectorIndexExcluding rebuilds the vector index with every row
// whose SourceID matches sourceID removed, used by DeleteSource. It shares
// rebuildVectorIndex's wholesale-rebuild shape but filters instead of
// appending.
func (f *Facade) rebuildVectorIndexExcluding(ctx context.Context, sourceID string) error {
	f.vecMu.RLock()
	vh := f.vec
	f.vecMu.RUnlock()
	if vh == nil {
		return nil
	}
	idx := vh.acquire()
	rows, vecs := idx.ExportAll()
	vh.release()

	excludeID, ok, err := f.ids.Lookup(ctx, idstore.KindSource, sourceID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	builder := vectorindex.NewBuilder(f.embedder.ID(), f.embedder.Revision(), f.embedder.Dimensions(), quantFor(f.cfg.VectorQuantization))
	for i, row := range rows {
		if row.SourceID == excludeID {
			continue
		}
		if err := builder.Add(row, vecs[i]); err != nil {
			return err
		}
	}

	tmpPath := f.vectorPath + ".tmp"
	if err := builder.Flush(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, f.vectorPath); err != nil {
		return corerr.New(corerr.ErrCodeFilePermission, "failed to publish rebuilt vector index", err)
	}

	newVec, err := vectorindex.Open(f.vectorPath, vectorindex.OpenOptions{
		ExpectedEmbedderID:  f.embedder.ID(),
		ExpectedEmbedderRev: f.embedder.Revision(),
		ExpectedDimension:   f.embedder.Dimensions(),
		Preconvert:          f.cfg.VectorPreconvert,
	})
	if err != nil {
		return err
	}

	f.vecMu.Lock()
	old := f.vec
	f.vec = newVecHandle(newVec)
	f.vecMu.Unlock()
	if old != nil {
		old.retire()
	}
	return nil
}

func quantFor(q config.Quantization) vectorindex.Quantization {
	if q == config.QuantizationF32 {
		return vectorindex.QuantF32
	}
	return vectorindex.QuantF16
}
