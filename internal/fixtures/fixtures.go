// Package fixtures loads the initial board, rules and accounts a store is
// seeded with, either from the embedded demo data or from a YAML file.
package fixtures

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

//go:embed demo.yaml
var demoYAML []byte

// Accepted date layouts, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// fileYAML mirrors the fixture document.
type fileYAML struct {
	Stages   []stageYAML   `yaml:"stages"`
	Rules    []ruleYAML    `yaml:"rules"`
	Accounts []accountYAML `yaml:"accounts"`
}

type stageYAML struct {
	ID            string            `yaml:"id"`
	Title         string            `yaml:"title"`
	Limit         int               `yaml:"limit"`
	Outcome       string            `yaml:"outcome"`
	Opportunities []opportunityYAML `yaml:"opportunities"`
}

type opportunityYAML struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Company     string  `yaml:"company"`
	Email       string  `yaml:"email"`
	Phone       string  `yaml:"phone"`
	Value       float64 `yaml:"value"`
	Created     string  `yaml:"created"`
	Owner       string  `yaml:"owner"`
	Priority    string  `yaml:"priority"`
	LastContact string  `yaml:"last_contact"`
}

type ruleYAML struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Triggers      []string `yaml:"triggers"`
	Response      string   `yaml:"response"`
	Active        bool     `yaml:"active"`
	Created       string   `yaml:"created"`
	LastTriggered string   `yaml:"last_triggered"`
	TriggerCount  int      `yaml:"trigger_count"`
	DelaySeconds  int      `yaml:"delay_seconds"`
	Global        bool     `yaml:"global"`
	CreatedBy     string   `yaml:"created_by"`
	CreatedByName string   `yaml:"created_by_name"`
}

type accountYAML struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Email       string  `yaml:"email"`
	Password    string  `yaml:"password"`
	Role        string  `yaml:"role"`
	Phone       string  `yaml:"phone"`
	ExternalID  string  `yaml:"external_id"`
	Avatar      string  `yaml:"avatar"`
	RCANumber   string  `yaml:"rca_number"`
	MonthlyGoal float64 `yaml:"monthly_goal"`
	Inactive    bool    `yaml:"inactive"`
	Created     string  `yaml:"created"`
}

// Loader implements types.FixtureLoader over a YAML document.
type Loader struct {
	name string
	read func() ([]byte, error)
}

// Demo returns a loader for the embedded demo content.
func Demo() *Loader {
	return &Loader{name: "demo", read: func() ([]byte, error) { return demoYAML, nil }}
}

// File returns a loader reading the YAML file at path.
func File(path string) *Loader {
	return &Loader{name: path, read: func() ([]byte, error) { return os.ReadFile(path) }}
}

// Empty returns a loader yielding no content.
func Empty() *Loader {
	return &Loader{name: "empty", read: func() ([]byte, error) { return nil, nil }}
}

// LoadFixtures reads and converts the fixture document.
func (l *Loader) LoadFixtures(ctx context.Context) (*types.Fixtures, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := l.read()
	if err != nil {
		return nil, fmt.Errorf("reading fixtures %s: %w", l.name, err)
	}
	var doc fileYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fixtures %s: %w", l.name, err)
	}
	fx, err := doc.convert()
	if err != nil {
		return nil, fmt.Errorf("fixtures %s: %w", l.name, err)
	}
	return fx, nil
}

func (doc fileYAML) convert() (*types.Fixtures, error) {
	fx := &types.Fixtures{}
	for _, s := range doc.Stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage %q: %w", s.Title, types.ErrInvalidID)
		}
		stage := types.Stage{StageID: s.ID, Title: s.Title, Limit: s.Limit, Outcome: s.Outcome}
		for _, o := range s.Opportunities {
			opp, err := o.convert()
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", s.ID, err)
			}
			stage.Opportunities = append(stage.Opportunities, opp)
		}
		fx.Stages = append(fx.Stages, stage)
	}
	for _, r := range doc.Rules {
		rule, err := r.convert()
		if err != nil {
			return nil, err
		}
		fx.Rules = append(fx.Rules, rule)
	}
	for _, a := range doc.Accounts {
		created, err := parseDate(a.Created)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Email, err)
		}
		role := a.Role
		if role == "" {
			role = types.RoleSeller
		}
		if !types.ValidRole(role) {
			return nil, fmt.Errorf("account %s: %w", a.Email, types.ErrInvalidRole)
		}
		fx.Accounts = append(fx.Accounts, types.FixtureAccount{
			User: types.User{
				UserID:      a.ID,
				Name:        a.Name,
				Email:       a.Email,
				Role:        role,
				Phone:       a.Phone,
				ExternalID:  a.ExternalID,
				AvatarURL:   a.Avatar,
				RCANumber:   a.RCANumber,
				MonthlyGoal: a.MonthlyGoal,
				Inactive:    a.Inactive,
				CreatedAt:   created,
			},
			Password: a.Password,
		})
	}
	return fx, nil
}

func (o opportunityYAML) convert() (types.Opportunity, error) {
	prio, err := types.ParsePriority(o.Priority)
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("opportunity %s: %w", o.ID, err)
	}
	created, err := parseDate(o.Created)
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("opportunity %s: %w", o.ID, err)
	}
	opp := types.Opportunity{
		OpportunityID: o.ID,
		Name:          o.Name,
		Company:       o.Company,
		Email:         o.Email,
		Phone:         o.Phone,
		Value:         o.Value,
		CreatedAt:     created,
		Owner:         o.Owner,
		Priority:      prio,
	}
	if o.LastContact != "" {
		lc, err := parseDate(o.LastContact)
		if err != nil {
			return types.Opportunity{}, fmt.Errorf("opportunity %s: %w", o.ID, err)
		}
		opp.Contacted(lc)
	}
	if err := opp.Validate(); err != nil {
		return types.Opportunity{}, fmt.Errorf("opportunity %s: %w", o.ID, err)
	}
	return opp, nil
}

func (r ruleYAML) convert() (types.AutomationRule, error) {
	created, err := parseDate(r.Created)
	if err != nil {
		return types.AutomationRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	rule := types.AutomationRule{
		RuleID:        r.ID,
		Name:          r.Name,
		Triggers:      r.Triggers,
		Response:      r.Response,
		Active:        r.Active,
		Delay:         time.Duration(r.DelaySeconds) * time.Second,
		Global:        r.Global,
		CreatedBy:     r.CreatedBy,
		CreatedByName: r.CreatedByName,
		CreatedAt:     created,
		TriggerCount:  r.TriggerCount,
	}
	if r.LastTriggered != "" {
		lt, err := parseDate(r.LastTriggered)
		if err != nil {
			return types.AutomationRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		rule.LastTriggered = &lt
	}
	if err := rule.Validate(); err != nil {
		return types.AutomationRule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return rule, nil
}

// parseDate parses s with the accepted layouts. An empty string is the zero
// time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
