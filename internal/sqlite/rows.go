package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

const opportunityColumns = `opportunity_id, stage_id, position, name, company, email, phone,
    value, created_at, owner, priority, last_contact`

const ruleColumns = `rule_id, name, triggers, response, active, delay_ms, is_global,
    created_by, created_by_name, created_at, last_triggered, trigger_count`

const accountColumns = `user_id, name, email, role, phone, external_id, avatar_url,
    rca_number, monthly_goal, inactive, password_hash, created_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

// nullTime maps a nil pointer to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanOpportunity reads one row selected with opportunityColumns and returns
// the opportunity with its stage ID and position.
func scanOpportunity(row scanner) (types.Opportunity, string, int, error) {
	var (
		o           types.Opportunity
		stageID     string
		position    int
		priority    string
		createdAt   string
		lastContact sql.NullString
	)
	err := row.Scan(&o.OpportunityID, &stageID, &position, &o.Name, &o.Company, &o.Email, &o.Phone,
		&o.Value, &createdAt, &o.Owner, &priority, &lastContact)
	if err != nil {
		return types.Opportunity{}, "", -1, err
	}
	o.Priority = types.Priority(priority)
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Opportunity{}, "", -1, err
	}
	if o.LastContact, err = parseNullTime(lastContact); err != nil {
		return types.Opportunity{}, "", -1, err
	}
	return o, stageID, position, nil
}

// saveStage upserts every opportunity of the stage at its current position.
func saveStage(ex execer, s types.Stage) error {
	for i, o := range s.Opportunities {
		_, err := ex.Exec(`INSERT INTO opportunities (`+opportunityColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(opportunity_id) DO UPDATE SET
    stage_id = excluded.stage_id,
    position = excluded.position,
    name = excluded.name,
    company = excluded.company,
    email = excluded.email,
    phone = excluded.phone,
    value = excluded.value,
    owner = excluded.owner,
    priority = excluded.priority,
    last_contact = excluded.last_contact`,
			o.OpportunityID, s.StageID, i, o.Name, o.Company, o.Email, o.Phone,
			o.Value, formatTime(o.CreatedAt), o.Owner, string(o.Priority), nullTime(o.LastContact))
		if err != nil {
			return fmt.Errorf("saving opportunity %s: %w", o.OpportunityID, err)
		}
	}
	return nil
}

func scanRule(row scanner) (types.AutomationRule, error) {
	var (
		r             types.AutomationRule
		triggers      string
		active        int
		delayMS       int64
		global        int
		createdAt     string
		lastTriggered sql.NullString
	)
	err := row.Scan(&r.RuleID, &r.Name, &triggers, &r.Response, &active, &delayMS, &global,
		&r.CreatedBy, &r.CreatedByName, &createdAt, &lastTriggered, &r.TriggerCount)
	if err != nil {
		return types.AutomationRule{}, err
	}
	if err := json.Unmarshal([]byte(triggers), &r.Triggers); err != nil {
		return types.AutomationRule{}, fmt.Errorf("decoding triggers of %s: %w", r.RuleID, err)
	}
	r.Active = active != 0
	r.Global = global != 0
	r.Delay = time.Duration(delayMS) * time.Millisecond
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.AutomationRule{}, err
	}
	if r.LastTriggered, err = parseNullTime(lastTriggered); err != nil {
		return types.AutomationRule{}, err
	}
	return r, nil
}

// ruleArgs returns the values for ruleColumns in order.
func ruleArgs(r types.AutomationRule) ([]any, error) {
	triggers, err := json.Marshal(r.Triggers)
	if err != nil {
		return nil, fmt.Errorf("encoding triggers: %w", err)
	}
	return []any{
		r.RuleID, r.Name, string(triggers), r.Response, boolInt(r.Active), r.Delay.Milliseconds(),
		boolInt(r.Global), r.CreatedBy, r.CreatedByName, formatTime(r.CreatedAt),
		nullTime(r.LastTriggered), r.TriggerCount,
	}, nil
}

func scanAccount(row scanner) (types.Account, error) {
	var (
		a         types.Account
		inactive  int
		createdAt string
	)
	err := row.Scan(&a.UserID, &a.Name, &a.Email, &a.Role, &a.Phone, &a.ExternalID, &a.AvatarURL,
		&a.RCANumber, &a.MonthlyGoal, &inactive, &a.PasswordHash, &createdAt)
	if err != nil {
		return types.Account{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Account{}, err
	}
	a.Inactive = inactive != 0
	return a, nil
}

func insertAccount(ex execer, a types.Account) error {
	_, err := ex.Exec(`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Email, a.Role, a.Phone, a.ExternalID, a.AvatarURL,
		a.RCANumber, a.MonthlyGoal, boolInt(a.Inactive), a.PasswordHash, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Email, err)
	}
	return nil
}

// updateAccount rewrites the profile of an account. An empty PasswordHash
// keeps the stored hash.
func updateAccount(ex execer, a types.Account) (int64, error) {
	res, err := ex.Exec(`UPDATE accounts SET
    name = ?, email = ?, role = ?, phone = ?, external_id = ?, avatar_url = ?,
    rca_number = ?, monthly_goal = ?, inactive = ?,
    password_hash = CASE WHEN ? = '' THEN password_hash ELSE ? END
WHERE user_id = ?`,
		a.Name, a.Email, a.Role, a.Phone, a.ExternalID, a.AvatarURL,
		a.RCANumber, a.MonthlyGoal, boolInt(a.Inactive),
		a.PasswordHash, a.PasswordHash, a.UserID)
	if err != nil {
		return 0, fmt.Errorf("updating account %s: %w", a.UserID, err)
	}
	return res.RowsAffected()
}

func insertStage(ex execer, s types.Stage, ordinal int) error {
	_, err := ex.Exec(
		"INSERT INTO stages (stage_id, title, ordinal, stage_limit, outcome) VALUES (?, ?, ?, ?, ?)",
		s.StageID, s.Title, ordinal, s.Limit, s.Outcome,
	)
	if err != nil {
		return fmt.Errorf("inserting stage %s: %w", s.StageID, err)
	}
	return nil
}

// loadStages reads every stage in ordinal order with its opportunities in
// position order.
func loadStages(q queryer) ([]types.Stage, error) {
	rows, err := q.Query("SELECT stage_id, title, stage_limit, outcome FROM stages ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	var stages []types.Stage
	index := make(map[string]int)
	for rows.Next() {
		var s types.Stage
		if err := rows.Scan(&s.StageID, &s.Title, &s.Limit, &s.Outcome); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		s.Opportunities = []types.Opportunity{}
		index[s.StageID] = len(stages)
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	orows, err := q.Query("SELECT " + opportunityColumns + " FROM opportunities ORDER BY stage_id, position")
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		o, stageID, _, err := scanOpportunity(orows)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity: %w", err)
		}
		si, ok := index[stageID]
		if !ok {
			continue
		}
		stages[si].Opportunities = append(stages[si].Opportunities, o)
	}
	return stages, orows.Err()
}
