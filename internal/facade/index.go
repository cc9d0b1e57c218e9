package facade

import (
	"context"
	"time"

	"github.com/justSteve/coding-agent-session-search/internal/doc"
)

// IndexBatch schema-validates and writes docs to both the lexical and
// vector writers, committing atomically, then wakes the warm worker.
// There is at most one writer across both indices; IndexBatch serializes
// on writeMu for the duration of the call.
func (f *Facade) IndexBatch(ctx context.Context, docs []doc.Document) (int64, error) {
	if len(docs) == 0 {
		return f.lastIndexed, nil
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	for _, d := range docs {
		if err := f.lex.AddDocument(ctx, d.WithComputedHash()); err != nil {
			return f.lastIndexed, err
		}
	}
	if err := f.lex.Commit(); err != nil {
		return f.lastIndexed, err
	}

	if err := f.rebuildVectorIndex(ctx, docs); err != nil {
		return f.lastIndexed, err
	}

	f.lastIndexed = time.Now().UnixMilli()
	f.warm.Wake()
	return f.lastIndexed, nil
}

// DeleteSource removes every document belonging to sourceID from both
// indices, then commits.
func (f *Facade) DeleteSource(ctx context.Context, sourceID string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	if err := f.lex.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	if err := f.rebuildVectorIndexExcluding(ctx, sourceID); err != nil {
		return err
	}

	f.lastIndexed = time.Now().UnixMilli()
	f.warm.Wake()
	return nil
}
