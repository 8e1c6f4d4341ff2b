// Package sqlite implements the SQLite storage backend. SQLite is the query
// engine; JSONL files in DataDir are the source of truth, loaded into a fresh
// database on every Attach and rewritten after every change.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// dbFile is the SQLite database created in DataDir.
const dbFile = "funnel.db"

// Backend implements types.Store using SQLite as the query engine and JSONL
// files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	loader   types.FixtureLoader
	log      logrus.FieldLogger

	board    *board
	rules    *ruleStore
	accounts *accountStore
}

// Option configures a Backend.
type Option func(*Backend)

// WithFixtures sets the loader used to seed an empty store.
func WithFixtures(l types.FixtureLoader) Option {
	return func(b *Backend) { b.loader = l }
}

// WithLogger sets the backend logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Backend) { b.log = log }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Attach creates DataDir if needed, rebuilds the database from the JSONL
// files and seeds it from the fixture loader when it holds no stage.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}
	seeded, err := seedFixtures(context.Background(), db, dataDir, b.loader)
	if err != nil {
		db.Close()
		return fmt.Errorf("seed: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	b.board = &board{backend: b}
	b.rules = &ruleStore{backend: b}
	b.accounts = &accountStore{backend: b}

	b.log.WithFields(logrus.Fields{"data_dir": dataDir, "seeded": seeded}).Debug("sqlite store attached")
	return nil
}

func createSchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Detach closes the SQLite connection. After Detach, accessors return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.board = nil
	b.rules = nil
	b.accounts = nil
	return nil
}

// Board returns the pipeline board.
func (b *Backend) Board() (types.Board, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.board, nil
}

// Rules returns the automation rule store.
func (b *Backend) Rules() (types.RuleStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.rules, nil
}

// Accounts returns the account directory.
func (b *Backend) Accounts() (types.AccountStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.accounts, nil
}

// mutate runs fn in one transaction and rewrites the JSONL files of the
// given tables from inside it before committing. If fn or a JSONL write
// fails the transaction rolls back, so the database and the files keep their
// previous content. The caller must hold b.mu and fn must only use tx.
func (b *Backend) mutate(fn func(tx *sql.Tx) error, files ...tableFile) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	for _, tf := range files {
		if err := persistJSONL(tx, b.config.DataDir, tf); err != nil {
			return fmt.Errorf("persist %s: %w", tf.file, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
