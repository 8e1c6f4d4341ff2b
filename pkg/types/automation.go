package types

import (
	"strings"
	"time"
)

// Rule list scopes.
const (
	ScopeAll      = "all"
	ScopeGlobal   = "global"
	ScopePersonal = "personal"
)

// AutomationRule answers incoming chat messages that contain one of its
// trigger phrases. Global rules are created by admins and visible to every
// user; personal rules belong to their author.
type AutomationRule struct {
	RuleID        string        `json:"rule_id"`
	Name          string        `json:"name"`
	Triggers      []string      `json:"triggers"`
	Response      string        `json:"response"`
	Active        bool          `json:"active"`
	Delay         time.Duration `json:"delay"`
	Global        bool          `json:"global"`
	CreatedBy     string        `json:"created_by"`
	CreatedByName string        `json:"created_by_name"`
	CreatedAt     time.Time     `json:"created_at"`
	LastTriggered *time.Time    `json:"last_triggered,omitempty"`
	TriggerCount  int           `json:"trigger_count"`
}

// Validate checks that the rule has a name, a response and at least one
// non-blank trigger.
func (r *AutomationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Response) == "" {
		return ErrInvalidResponse
	}
	for _, t := range r.Triggers {
		if strings.TrimSpace(t) != "" {
			return nil
		}
	}
	return ErrNoTriggers
}

// Fired records one trigger of the rule at the given time.
func (r *AutomationRule) Fired(at time.Time) {
	t := at
	r.LastTriggered = &t
	r.TriggerCount++
}

// VisibleTo reports whether the user may see the rule. Admins see every rule;
// other users see global rules and their own personal rules.
func (r *AutomationRule) VisibleTo(u *User) bool {
	if u == nil {
		return r.Global
	}
	return r.Global || u.IsAdmin() || r.CreatedBy == u.UserID
}

// InScope reports whether the rule belongs to the named list scope.
func (r *AutomationRule) InScope(scope string) bool {
	switch scope {
	case ScopeGlobal:
		return r.Global
	case ScopePersonal:
		return !r.Global
	default:
		return true
	}
}

// Clone returns a deep copy of the rule.
func (r AutomationRule) Clone() AutomationRule {
	r.Triggers = append([]string(nil), r.Triggers...)
	if r.LastTriggered != nil {
		t := *r.LastTriggered
		r.LastTriggered = &t
	}
	return r
}
