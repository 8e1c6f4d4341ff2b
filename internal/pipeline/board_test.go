package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

var fixedNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(sampleStages(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return b
}

func TestNewBoard_RejectsDuplicateIDs(t *testing.T) {
	stages := sampleStages()
	stages[1].Opportunities = append(stages[1].Opportunities, opp("1", 1))

	_, err := NewBoard(stages)
	assert.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestBoard_AddOpportunity(t *testing.T) {
	b := newTestBoard(t)

	id, err := b.AddOpportunity("empty", 0, types.Opportunity{Name: "Nova", Value: 100, Priority: types.PriorityLow})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, stageID, idx, err := b.GetOpportunity(id)
	require.NoError(t, err)
	assert.Equal(t, "empty", stageID)
	assert.Equal(t, 0, idx)
	assert.Equal(t, fixedNow, got.CreatedAt)

	_, err = b.AddOpportunity("new", 0, opp("1", 1))
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	_, err = b.AddOpportunity("new", 0, types.Opportunity{Name: "", Priority: types.PriorityLow})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	_, err = b.AddOpportunity("missing", 0, types.Opportunity{Name: "x", Priority: types.PriorityLow})
	assert.ErrorIs(t, err, types.ErrStageNotFound)
}

func TestBoard_UpdateOpportunity(t *testing.T) {
	b := newTestBoard(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := b.AddOpportunity("new", 5, types.Opportunity{Name: "Lead", Value: 10, Priority: types.PriorityLow, CreatedAt: created})
	require.NoError(t, err)

	upd := types.Opportunity{OpportunityID: id, Name: "Lead renamed", Value: 20, Priority: types.PriorityHigh}
	require.NoError(t, b.UpdateOpportunity(upd))

	got, stageID, idx, err := b.GetOpportunity(id)
	require.NoError(t, err)
	assert.Equal(t, "Lead renamed", got.Name)
	assert.Equal(t, types.PriorityHigh, got.Priority)
	assert.Equal(t, created, got.CreatedAt, "CreatedAt must be preserved")
	assert.Equal(t, "new", stageID)
	assert.Equal(t, 2, idx)

	err = b.UpdateOpportunity(types.Opportunity{OpportunityID: "404", Name: "x", Priority: types.PriorityLow})
	assert.ErrorIs(t, err, types.ErrOpportunityNotFound)
}

func TestBoard_MoveOpportunity(t *testing.T) {
	b := newTestBoard(t)

	stages, err := b.MoveOpportunity(types.Move{OpportunityID: "1", SourceStageID: "new", SourceIndex: 0, DestStageID: "won", DestIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"6", "1"}, ids(stages[2]))

	_, stageID, idx, err := b.GetOpportunity("1")
	require.NoError(t, err)
	assert.Equal(t, "won", stageID)
	assert.Equal(t, 1, idx)

	// A failed move leaves the board as it was.
	before, _ := b.Stages()
	_, err = b.MoveOpportunity(types.Move{OpportunityID: "1", SourceStageID: "new", DestStageID: "won"})
	assert.ErrorIs(t, err, types.ErrOpportunityNotFound)
	after, _ := b.Stages()
	assert.Equal(t, before, after)
}

func TestBoard_SnapshotsAreIsolated(t *testing.T) {
	b := newTestBoard(t)

	snap, err := b.Stages()
	require.NoError(t, err)
	snap[0].Opportunities[0].Name = "mutated"

	got, _, _, err := b.GetOpportunity("1")
	require.NoError(t, err)
	assert.Equal(t, "lead 1", got.Name)
}
