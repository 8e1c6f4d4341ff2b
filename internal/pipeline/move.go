// Package pipeline implements the stage/opportunity model behind the sales
// board: relocation of opportunities between ordered stages, stage folds for
// dashboard metrics, and an in-memory Board.
package pipeline

import (
	"fmt"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Apply relocates one opportunity and returns the resulting stage collection.
// The input is never mutated: the returned slice shares every stage the move
// does not touch and carries fresh opportunity slices for the source and
// destination. When the move leaves the opportunity where it is, stages
// itself is returned.
//
// SourceIndex is a hint. If the opportunity is not at that position the
// source stage is searched by ID; only when it is absent from the source
// stage does Apply fail with ErrOpportunityNotFound. DestIndex is clamped to
// the destination bounds, measured after removal when source and destination
// are the same stage.
func Apply(stages []types.Stage, m types.Move) ([]types.Stage, error) {
	src := indexOfStage(stages, m.SourceStageID)
	if src < 0 {
		return nil, fmt.Errorf("source %q: %w", m.SourceStageID, types.ErrStageNotFound)
	}
	dst := indexOfStage(stages, m.DestStageID)
	if dst < 0 {
		return nil, fmt.Errorf("destination %q: %w", m.DestStageID, types.ErrStageNotFound)
	}

	from := locate(stages[src], m.OpportunityID, m.SourceIndex)
	if from < 0 {
		return nil, fmt.Errorf("%q in stage %q: %w", m.OpportunityID, m.SourceStageID, types.ErrOpportunityNotFound)
	}

	if src == dst {
		to := clamp(m.DestIndex, 0, len(stages[src].Opportunities)-1)
		if to == from {
			return stages, nil
		}
		out := make([]types.Stage, len(stages))
		copy(out, stages)
		opps := remove(stages[src].Opportunities, from)
		out[src].Opportunities = insert(opps, to, stages[src].Opportunities[from])
		return out, nil
	}

	if stages[dst].Full() {
		return nil, fmt.Errorf("destination %q holds %d: %w", m.DestStageID, stages[dst].Limit, types.ErrStageFull)
	}

	moving := stages[src].Opportunities[from]
	out := make([]types.Stage, len(stages))
	copy(out, stages)
	out[src].Opportunities = remove(stages[src].Opportunities, from)
	to := clamp(m.DestIndex, 0, len(stages[dst].Opportunities))
	out[dst].Opportunities = insert(stages[dst].Opportunities, to, moving)
	return out, nil
}

// Insert places o in the named stage at index (clamped) and returns the
// resulting collection without mutating stages.
func Insert(stages []types.Stage, stageID string, index int, o types.Opportunity) ([]types.Stage, error) {
	i := indexOfStage(stages, stageID)
	if i < 0 {
		return nil, fmt.Errorf("stage %q: %w", stageID, types.ErrStageNotFound)
	}
	if stages[i].Full() {
		return nil, fmt.Errorf("stage %q holds %d: %w", stageID, stages[i].Limit, types.ErrStageFull)
	}
	out := make([]types.Stage, len(stages))
	copy(out, stages)
	to := clamp(index, 0, len(stages[i].Opportunities))
	out[i].Opportunities = insert(stages[i].Opportunities, to, o)
	return out, nil
}

// Find returns the stage index and position of the opportunity, or -1, -1.
func Find(stages []types.Stage, opportunityID string) (int, int) {
	for si, s := range stages {
		if oi := s.IndexOf(opportunityID); oi >= 0 {
			return si, oi
		}
	}
	return -1, -1
}

func indexOfStage(stages []types.Stage, id string) int {
	for i, s := range stages {
		if s.StageID == id {
			return i
		}
	}
	return -1
}

func locate(s types.Stage, id string, hint int) int {
	if hint >= 0 && hint < len(s.Opportunities) && s.Opportunities[hint].OpportunityID == id {
		return hint
	}
	return s.IndexOf(id)
}

// remove returns a new slice without the element at i.
func remove(opps []types.Opportunity, i int) []types.Opportunity {
	out := make([]types.Opportunity, 0, len(opps)-1)
	out = append(out, opps[:i]...)
	return append(out, opps[i+1:]...)
}

// insert returns a new slice with o at position i.
func insert(opps []types.Opportunity, i int, o types.Opportunity) []types.Opportunity {
	out := make([]types.Opportunity, 0, len(opps)+1)
	out = append(out, opps[:i]...)
	out = append(out, o)
	return append(out, opps[i:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
