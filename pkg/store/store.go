// Package store provides the public factory for Store backends while keeping
// implementation details internal.
package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/internal/memory"
	"github.com/mesh-intelligence/funnel/internal/sqlite"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

type options struct {
	loader types.FixtureLoader
	log    logrus.FieldLogger
}

// Option configures the backend built by New.
type Option func(*options)

// WithFixtures seeds an empty store from l on Attach.
func WithFixtures(l types.FixtureLoader) Option {
	return func(o *options) { o.loader = l }
}

// WithLogger sets the backend logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// New creates a detached backend by name (types.BackendMemory or
// types.BackendSQLite).
//
// Example:
//
//	s, err := store.New(types.BackendSQLite, store.WithFixtures(fixtures.Demo()))
//	err = s.Attach(types.Config{Backend: types.BackendSQLite, DataDir: ".funnel-db"})
//	defer s.Detach()
func New(backend string, opts ...Option) (types.Store, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	switch backend {
	case types.BackendMemory:
		return memory.NewBackend(memory.WithFixtures(o.loader), memory.WithLogger(o.log)), nil
	case types.BackendSQLite:
		return sqlite.NewBackend(sqlite.WithFixtures(o.loader), sqlite.WithLogger(o.log)), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%q: %w", backend, types.ErrBackendUnknown)
	}
}
