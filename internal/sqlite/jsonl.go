// This file provides JSONL read/write helpers with atomic persistence.
package sqlite

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/funnel/internal/atomicfile"
)

// JSONL file names in DataDir.
const (
	stagesJSONL        = "stages.jsonl"
	opportunitiesJSONL = "opportunities.jsonl"
	rulesJSONL         = "rules.jsonl"
	accountsJSONL      = "accounts.jsonl"
)

// tableFile ties a JSONL file to its SQLite table. Records are flat JSON
// objects keyed by column name; orderBy fixes the line order on persist.
type tableFile struct {
	file    string
	table   string
	columns []string
	orderBy string
}

var (
	stagesFile = tableFile{
		file:    stagesJSONL,
		table:   "stages",
		columns: []string{"stage_id", "title", "ordinal", "stage_limit", "outcome"},
		orderBy: "ordinal",
	}
	opportunitiesFile = tableFile{
		file:  opportunitiesJSONL,
		table: "opportunities",
		columns: []string{
			"opportunity_id", "stage_id", "position", "name", "company", "email", "phone",
			"value", "created_at", "owner", "priority", "last_contact",
		},
		orderBy: "stage_id, position",
	}
	rulesFile = tableFile{
		file:  rulesJSONL,
		table: "rules",
		columns: []string{
			"rule_id", "ordinal", "name", "triggers", "response", "active", "delay_ms", "is_global",
			"created_by", "created_by_name", "created_at", "last_triggered", "trigger_count",
		},
		orderBy: "ordinal",
	}
	accountsFile = tableFile{
		file:  accountsJSONL,
		table: "accounts",
		columns: []string{
			"user_id", "name", "email", "role", "phone", "external_id", "avatar_url",
			"rca_number", "monthly_goal", "inactive", "password_hash", "created_at",
		},
		orderBy: "rowid",
	}
)

// tableFiles lists every persisted table in load order: tables with foreign
// keys come after the tables they reference.
var tableFiles = []tableFile{stagesFile, opportunitiesFile, rulesFile, accountsFile}

// jsonlFiles lists the JSONL files created on first attach.
var jsonlFiles = []string{stagesJSONL, opportunitiesJSONL, rulesJSONL, accountsJSONL}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// initJSONLFiles creates any missing JSONL file as an empty file.
func initJSONLFiles(dataDir string) error {
	for _, name := range jsonlFiles {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking %s: %w", name, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically replaces path with one record per line.
func writeJSONL(path string, records []json.RawMessage) error {
	return atomicfile.Write(path, 0o644, func(w io.Writer) error {
		for _, rec := range records {
			if _, err := w.Write(rec); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			if _, err := w.Write([]byte{'\n'}); err != nil {
				return fmt.Errorf("writing newline: %w", err)
			}
		}
		return nil
	})
}

// persistJSONL dumps every row of the table to its JSONL file.
func persistJSONL(q queryer, dataDir string, tf tableFile) error {
	rows, err := q.Query(fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s",
		strings.Join(tf.columns, ", "), tf.table, tf.orderBy,
	))
	if err != nil {
		return fmt.Errorf("querying %s for JSONL: %w", tf.table, err)
	}
	defer rows.Close()

	vals := make([]any, len(tf.columns))
	ptrs := make([]any, len(tf.columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var records []json.RawMessage
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning %s for JSONL: %w", tf.table, err)
		}
		rec := make(map[string]any, len(tf.columns))
		for i, col := range tf.columns {
			if b, ok := vals[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = vals[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling %s record: %w", tf.table, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s for JSONL: %w", tf.table, err)
	}
	rows.Close()

	return writeJSONL(filepath.Join(dataDir, tf.file), records)
}
