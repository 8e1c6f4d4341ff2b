package types

// Stage outcomes. A stage with an outcome is terminal for the opportunities
// placed in it.
const (
	OutcomeNone = ""
	OutcomeWon  = "won"
	OutcomeLost = "lost"
)

// Stage is a named pipeline column holding an ordered list of opportunities.
type Stage struct {
	StageID       string        `json:"stage_id"`
	Title         string        `json:"title"`
	Limit         int           `json:"limit,omitempty"`   // 0 means unlimited.
	Outcome       string        `json:"outcome,omitempty"` // won, lost or empty.
	Opportunities []Opportunity `json:"opportunities"`
}

// Count returns the number of opportunities in the stage.
func (s Stage) Count() int {
	return len(s.Opportunities)
}

// Total returns the sum of the opportunity values in the stage.
func (s Stage) Total() float64 {
	var total float64
	for _, o := range s.Opportunities {
		total += o.Value
	}
	return total
}

// Full reports whether the stage cannot accept another opportunity.
func (s Stage) Full() bool {
	return s.Limit > 0 && len(s.Opportunities) >= s.Limit
}

// IndexOf returns the position of the opportunity with the given ID, or -1.
func (s Stage) IndexOf(opportunityID string) int {
	for i, o := range s.Opportunities {
		if o.OpportunityID == opportunityID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the stage.
func (s Stage) Clone() Stage {
	opps := make([]Opportunity, len(s.Opportunities))
	for i, o := range s.Opportunities {
		opps[i] = o.Clone()
	}
	s.Opportunities = opps
	return s
}
