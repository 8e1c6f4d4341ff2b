package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// ruleStore implements types.RuleStore. List order is ascending ordinal; new
// rules take an ordinal below the current minimum.
type ruleStore struct {
	backend *Backend
}

func (s *ruleStore) List() ([]types.AutomationRule, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query("SELECT " + ruleColumns + " FROM rules ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []types.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *ruleStore) Get(id string) (types.AutomationRule, error) {
	if id == "" {
		return types.AutomationRule{}, types.ErrInvalidID
	}
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.AutomationRule{}, types.ErrStoreDetached
	}
	return getRule(b.db, id)
}

func getRule(db *sql.DB, id string) (types.AutomationRule, error) {
	r, err := scanRule(db.QueryRow("SELECT "+ruleColumns+" FROM rules WHERE rule_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.AutomationRule{}, fmt.Errorf("%q: %w", id, types.ErrRuleNotFound)
	}
	if err != nil {
		return types.AutomationRule{}, fmt.Errorf("reading rule: %w", err)
	}
	return r, nil
}

func (s *ruleStore) Set(r types.AutomationRule) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	exists := false
	if r.RuleID != "" {
		if _, err := getRule(b.db, r.RuleID); err == nil {
			exists = true
		} else if !errors.Is(err, types.ErrRuleNotFound) {
			return "", err
		}
	} else {
		r.RuleID = types.NewID()
	}

	args, err := ruleArgs(r)
	if err != nil {
		return "", err
	}
	err = b.mutate(func(tx *sql.Tx) error {
		var err error
		if exists {
			_, err = tx.Exec(`UPDATE rules SET
    name = ?, triggers = ?, response = ?, active = ?, delay_ms = ?, is_global = ?,
    created_by = ?, created_by_name = ?, created_at = ?, last_triggered = ?, trigger_count = ?
WHERE rule_id = ?`, append(args[1:], r.RuleID)...)
		} else {
			_, err = tx.Exec(
				"INSERT INTO rules (ordinal, "+ruleColumns+") "+
					"VALUES ((SELECT COALESCE(MIN(ordinal), 0) - 1 FROM rules), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				args...,
			)
		}
		if err != nil {
			return fmt.Errorf("saving rule %s: %w", r.RuleID, err)
		}
		return nil
	}, rulesFile)
	if err != nil {
		return "", err
	}
	return r.RuleID, nil
}

func (s *ruleStore) Delete(id string) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	return b.mutate(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM rules WHERE rule_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting rule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%q: %w", id, types.ErrRuleNotFound)
		}
		return nil
	}, rulesFile)}
