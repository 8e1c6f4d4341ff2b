package types

import (
	"math"
	"strings"
	"time"
)

// Priority ranks an opportunity on the board.
type Priority string

// Opportunity priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// ParsePriority returns the Priority named by s, ignoring case and
// surrounding whitespace. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !validPriorities[p] {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Opportunity is a sales lead tracked through the pipeline. Stage membership
// and position are owned by the Board; every other field is edited through
// Board.UpdateOpportunity.
type Opportunity struct {
	OpportunityID string     `json:"opportunity_id"`
	Name          string     `json:"name"`
	Company       string     `json:"company,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Value         float64    `json:"value"`
	CreatedAt     time.Time  `json:"created_at"`
	Owner         string     `json:"owner"`
	Priority      Priority   `json:"priority"`
	LastContact   *time.Time `json:"last_contact,omitempty"`
}

// Validate checks the fields a caller controls. It does not look at the ID,
// which the Board assigns.
func (o *Opportunity) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrInvalidName
	}
	if o.Value < 0 || math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return ErrInvalidValue
	}
	if !validPriorities[o.Priority] {
		return ErrInvalidPriority
	}
	return nil
}

// Contacted records a contact with the lead at the given time.
func (o *Opportunity) Contacted(at time.Time) {
	t := at
	o.LastContact = &t
}

// Clone returns a deep copy of the opportunity.
func (o Opportunity) Clone() Opportunity {
	if o.LastContact != nil {
		t := *o.LastContact
		o.LastContact = &t
	}
	return o
}
