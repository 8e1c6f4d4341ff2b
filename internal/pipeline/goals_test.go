package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

func goalStages() []types.Stage {
	stages := sampleStages()
	stages[0].Opportunities[0].Owner = "Maria"
	stages[2].Opportunities[0].Owner = "Maria"
	stages[2].Opportunities = append(stages[2].Opportunities,
		types.Opportunity{OpportunityID: "8", Name: "Lead 8", Value: 40000, Owner: "Pedro"},
		types.Opportunity{OpportunityID: "9", Name: "Lead 9", Value: 5000, Owner: "Maria"},
	)
	return stages
}

func goalMembers() []types.User {
	return []types.User{
		{UserID: "1", Name: "Admin"},
		{UserID: "2", Name: "Maria", MonthlyGoal: 50000},
		{UserID: "3", Name: "Pedro", MonthlyGoal: 30000},
		{UserID: "4", Name: "Ana", MonthlyGoal: 20000, Inactive: true},
	}
}

func TestGoals(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

	goals := Goals(goalStages(), goalMembers(), now, now)

	require.Len(t, goals, 2, "members without a goal and inactive members are skipped")
	maria, pedro := goals[0], goals[1]

	assert.Equal(t, "2", maria.UserID)
	assert.InDelta(t, 30000, maria.Current, 0.001, "only won stages count")
	assert.InDelta(t, 60, maria.Progress, 0.001)
	assert.Equal(t, GoalActive, maria.Status)
	assert.Equal(t, time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), maria.Deadline)

	assert.InDelta(t, 40000, pedro.Current, 0.001)
	assert.InDelta(t, 100, pedro.Progress, 0.001, "progress is capped")
	assert.Equal(t, GoalCompleted, pedro.Status)
}

func TestGoals_Overdue(t *testing.T) {
	may := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

	goals := Goals(goalStages(), goalMembers(), may, now)

	require.Len(t, goals, 2)
	assert.Equal(t, GoalOverdue, goals[0].Status)
	assert.Equal(t, GoalCompleted, goals[1].Status, "a met goal is never overdue")
}

func TestGoals_Empty(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, Goals(nil, nil, now, now))

	goals := Goals(nil, goalMembers()[1:2], now, now)
	require.Len(t, goals, 1)
	assert.Zero(t, goals[0].Current)
	assert.Equal(t, GoalActive, goals[0].Status)
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		monthEnd(time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		monthEnd(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
}
