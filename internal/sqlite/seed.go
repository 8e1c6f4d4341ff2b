// This file implements first-run seeding from a fixture loader.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// seedFixtures fills an empty store from the loader and writes the seeded
// tables to JSONL. Seeding only runs when stages.jsonl held no stage, so an
// emptied board is never reseeded as long as its stages remain.
func seedFixtures(ctx context.Context, db *sql.DB, dataDir string, loader types.FixtureLoader) (bool, error) {
	if loader == nil {
		return false, nil
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM stages").Scan(&count); err != nil {
		return false, fmt.Errorf("counting stages: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	fx, err := loader.LoadFixtures(ctx)
	if err != nil {
		return false, fmt.Errorf("loading fixtures: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for i, s := range fx.Stages {
		if err := insertStage(tx, s, i); err != nil {
			return false, err
		}
		if err := saveStage(tx, s); err != nil {
			return false, err
		}
	}

	// Fixture rules are listed first to last; ordinals keep that order.
	for i, r := range fx.Rules {
		if r.RuleID == "" {
			r.RuleID = types.NewID()
		}
		args, err := ruleArgs(r)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(
			"INSERT INTO rules (ordinal, "+ruleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			append([]any{i}, args...)...,
		); err != nil {
			return false, fmt.Errorf("seeding rule %s: %w", r.Name, err)
		}
	}

	for _, fa := range fx.Accounts {
		hash, err := secret.HashPassword(fa.Password)
		if err != nil {
			return false, err
		}
		a := types.Account{User: fa.User, PasswordHash: hash}
		if a.UserID == "" {
			a.UserID = types.NewID()
		}
		if err := insertAccount(tx, a); err != nil {
			return false, err
		}
	}

	for _, tf := range tableFiles {
		if err := persistJSONL(tx, dataDir, tf); err != nil {
			return false, fmt.Errorf("persisting seeded %s: %w", tf.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed transaction: %w", err)
	}
	return true, nil
}
