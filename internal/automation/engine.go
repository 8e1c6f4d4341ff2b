package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Draft holds the user-editable fields of a rule.
type Draft struct {
	Name     string
	Triggers string // comma-separated
	Response string
	Delay    time.Duration
}

// Engine applies the rule-management actions and message handling on top of
// a RuleStore.
type Engine struct {
	mu    sync.Mutex
	rules types.RuleStore
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewEngine creates an Engine over rules. A nil logger uses the logrus
// standard logger.
func NewEngine(rules types.RuleStore, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{rules: rules, now: time.Now, log: log}
}

// SetClock replaces the engine time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Handle finds the first active rule triggered by message, records the
// trigger and returns the updated rule. Returns ErrNoRuleTriggered when no
// active rule matches.
func (e *Engine) Handle(ctx context.Context, message string) (types.AutomationRule, error) {
	if err := ctx.Err(); err != nil {
		return types.AutomationRule{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	all, err := e.rules.List()
	if err != nil {
		return types.AutomationRule{}, fmt.Errorf("list rules: %w", err)
	}
	active := make([]types.AutomationRule, 0, len(all))
	for _, r := range all {
		if r.Active {
			active = append(active, r)
		}
	}

	i, ok := Match(message, active)
	if !ok {
		e.log.WithField("message", message).Debug("no rule triggered")
		return types.AutomationRule{}, types.ErrNoRuleTriggered
	}

	r := active[i]
	r.Fired(e.now())
	if _, err := e.rules.Set(r); err != nil {
		return types.AutomationRule{}, fmt.Errorf("record trigger: %w", err)
	}
	e.log.WithFields(logrus.Fields{"rule": r.RuleID, "count": r.TriggerCount}).Info("rule triggered")
	return r, nil
}

// Create adds a new active rule authored by author. Admin authors create
// global rules; everyone else creates personal ones. The rule is placed first.
func (e *Engine) Create(author *types.User, d Draft) (types.AutomationRule, error) {
	if author == nil {
		return types.AutomationRule{}, types.ErrNoSession
	}
	r := types.AutomationRule{
		Name:          strings.TrimSpace(d.Name),
		Triggers:      ParseTriggers(d.Triggers),
		Response:      strings.TrimSpace(d.Response),
		Active:        true,
		Delay:         d.Delay,
		Global:        author.IsAdmin(),
		CreatedBy:     author.UserID,
		CreatedByName: author.Name,
		CreatedAt:     e.now(),
	}
	if err := r.Validate(); err != nil {
		return types.AutomationRule{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.rules.Set(r)
	if err != nil {
		return types.AutomationRule{}, fmt.Errorf("create rule: %w", err)
	}
	r.RuleID = id
	e.log.WithFields(logrus.Fields{"rule": id, "global": r.Global}).Info("rule created")
	return r, nil
}

// Update replaces the editable fields of a rule. Activity, counters and
// creation data are kept; the rule is re-owned by editor, matching the
// scope the editor would create.
func (e *Engine) Update(editor *types.User, id string, d Draft) (types.AutomationRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.editable(editor, id)
	if err != nil {
		return types.AutomationRule{}, err
	}
	r.Name = strings.TrimSpace(d.Name)
	r.Triggers = ParseTriggers(d.Triggers)
	r.Response = strings.TrimSpace(d.Response)
	r.Delay = d.Delay
	r.Global = editor.IsAdmin()
	r.CreatedBy = editor.UserID
	r.CreatedByName = editor.Name
	if err := r.Validate(); err != nil {
		return types.AutomationRule{}, err
	}
	if _, err := e.rules.Set(r); err != nil {
		return types.AutomationRule{}, fmt.Errorf("update rule: %w", err)
	}
	return r, nil
}

// Toggle switches a rule on or off.
func (e *Engine) Toggle(editor *types.User, id string, active bool) (types.AutomationRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.editable(editor, id)
	if err != nil {
		return types.AutomationRule{}, err
	}
	r.Active = active
	if _, err := e.rules.Set(r); err != nil {
		return types.AutomationRule{}, fmt.Errorf("toggle rule: %w", err)
	}
	e.log.WithFields(logrus.Fields{"rule": id, "active": active}).Info("rule toggled")
	return r, nil
}

// Delete removes a rule.
func (e *Engine) Delete(editor *types.User, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.editable(editor, id); err != nil {
		return err
	}
	if err := e.rules.Delete(id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	e.log.WithField("rule", id).Info("rule deleted")
	return nil
}

// List returns the rules visible to viewer within scope, in list order.
func (e *Engine) List(viewer *types.User, scope string) ([]types.AutomationRule, error) {
	all, err := e.rules.List()
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out := make([]types.AutomationRule, 0, len(all))
	for _, r := range all {
		if r.VisibleTo(viewer) && r.InScope(scope) {
			out = append(out, r)
		}
	}
	return out, nil
}

// editable loads a rule the editor may change: admins may change any rule,
// other users only their own personal rules.
func (e *Engine) editable(editor *types.User, id string) (types.AutomationRule, error) {
	if editor == nil {
		return types.AutomationRule{}, types.ErrNoSession
	}
	r, err := e.rules.Get(id)
	if err != nil {
		return types.AutomationRule{}, err
	}
	if !editor.IsAdmin() && (r.Global || r.CreatedBy != editor.UserID) {
		return types.AutomationRule{}, types.ErrPermissionDenied
	}
	return r, nil
}
