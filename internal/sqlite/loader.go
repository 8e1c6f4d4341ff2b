// This file implements JSONL loading for startup.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// loadAllJSONL reads each JSONL file from DataDir and inserts its records
// into the matching table. Loading is transactional: all succeed or the
// database remains empty. Malformed lines and records that violate a
// constraint are skipped; unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, tf := range tableFiles {
		records, err := readJSONL(filepath.Join(dataDir, tf.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", tf.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, tf.table, tf.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", tf.file, tf.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into a table. Only the listed
// columns are extracted and absent fields take the column default; nested
// JSON values are stored as their text form.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		var cols []string
		var args []any
		for _, col := range columns {
			val, ok := obj[col]
			if !ok {
				continue
			}
			cols = append(cols, col)
			args = append(args, columnValue(val))
		}
		if len(cols) == 0 {
			continue
		}

		key := strings.Join(cols, ", ")
		stmt, ok := stmts[key]
		if !ok {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
			var err error
			stmt, err = tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, key, placeholders))
			if err != nil {
				return fmt.Errorf("preparing insert for %s: %w", table, err)
			}
			stmts[key] = stmt
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// columnValue converts a decoded JSON value into a SQLite argument.
func columnValue(v any) any {
	switch v := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return v
	}
}
