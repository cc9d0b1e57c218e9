package facade

import (
	"context"

	"github.com/justSteve/coding-agent-session-search/internal/idstore"
	"github.com/justSteve/coding-agent-session-search/internal/vectorindex"
)

// vectorPrefilter narrows a vector scan to the row indices matching f's
// agent/workspace/source/time-range constraints, scanning the row table
// of the caller-supplied, already-acquired vec. vec must be the same
// borrowed generation the caller subsequently runs Query against — row
// indices from one generation are meaningless against another's slab. A
// nil return means "no constraint, scan everything"; a non-nil empty
// slice means a named filter value has never been interned and so
// matches zero rows. Origin has no row in the CVVI row table (see
// vectorindex.Row) and so cannot be pre-filtered here; the semantic path
// applies no origin filter afterwards either, so semantic results are not
// narrowed by origin.
func (f *Facade) vectorPrefilter(ctx context.Context, filters Filters, vec *vectorindex.Index) ([]int, error) {
	if filters.Agent == "" && filters.Workspace == "" && filters.SourceID == "" &&
		filters.CreatedAfter == 0 && filters.CreatedBefore == 0 {
		return nil, nil
	}

	var (
		agentID, workspaceID, sourceID       uint32
		wantAgent, wantWorkspace, wantSource bool
	)
	if filters.Agent != "" {
		id, ok, err := f.ids.Lookup(ctx, idstore.KindAgent, filters.Agent)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []int{}, nil
		}
		agentID, wantAgent = id, true
	}
	if filters.Workspace != "" {
		id, ok, err := f.ids.Lookup(ctx, idstore.KindWorkspace, filters.Workspace)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []int{}, nil
		}
		workspaceID, wantWorkspace = id, true
	}
	if filters.SourceID != "" {
		id, ok, err := f.ids.Lookup(ctx, idstore.KindSource, filters.SourceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []int{}, nil
		}
		sourceID, wantSource = id, true
	}

	if vec == nil {
		return []int{}, nil
	}

	n := vec.RowCount()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		row := vec.RowAt(i)
		if wantAgent && row.AgentID != agentID {
			continue
		}
		if wantWorkspace && row.WorkspaceID != workspaceID {
			continue
		}
		if wantSource && row.SourceID != sourceID {
			continue
		}
		if filters.CreatedAfter != 0 && row.CreatedAtMS < filters.CreatedAfter {
			continue
		}
		if filters.CreatedBefore != 0 && row.CreatedAtMS > filters.CreatedBefore {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}
