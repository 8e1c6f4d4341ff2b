package pipeline

import (
	"math"
	"time"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Goal statuses.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalOverdue   = "overdue"
)

// Goal is a member's monthly revenue target and the won value counted
// against it.
type Goal struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Target   float64   `json:"target"`
	Current  float64   `json:"current"`
	Progress float64   `json:"progress"` // percent, capped at 100
	Deadline time.Time `json:"deadline"`
	Status   string    `json:"status"`
}

// Goals folds the board into one goal per active member with a monthly
// target. Opportunities in won stages count toward the member whose name
// matches their owner. The deadline is the last second of month's month; a
// goal still short of its target when now passes it is overdue.
func Goals(stages []types.Stage, members []types.User, month, now time.Time) []Goal {
	won := make(map[string]float64)
	for _, s := range stages {
		if s.Outcome != types.OutcomeWon {
			continue
		}
		for _, o := range s.Opportunities {
			won[o.Owner] += o.Value
		}
	}

	deadline := monthEnd(month)
	var goals []Goal
	for _, m := range members {
		if !m.IsActive() || m.MonthlyGoal <= 0 {
			continue
		}
		g := Goal{
			UserID:   m.UserID,
			Name:     m.Name,
			Target:   m.MonthlyGoal,
			Current:  won[m.Name],
			Deadline: deadline,
		}
		g.Progress = math.Min(g.Current/g.Target*100, 100)
		switch {
		case g.Current >= g.Target:
			g.Status = GoalCompleted
		case now.After(deadline):
			g.Status = GoalOverdue
		default:
			g.Status = GoalActive
		}
		goals = append(goals, g)
	}
	return goals
}

// monthEnd returns the last day of t's month at 23:59:59 in t's location.
func monthEnd(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0).Add(-time.Second)
}
