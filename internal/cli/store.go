// Store, session and service wiring shared by the commands.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/funnel/internal/auth"
	"github.com/mesh-intelligence/funnel/internal/automation"
	"github.com/mesh-intelligence/funnel/internal/fixtures"
	"github.com/mesh-intelligence/funnel/internal/session"
	"github.com/mesh-intelligence/funnel/internal/team"
	"github.com/mesh-intelligence/funnel/pkg/store"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// fixtureLoader returns the loader named by the fixtures setting.
func (a *app) fixtureLoader() types.FixtureLoader {
	switch a.cfg.Fixtures {
	case fixturesDemo, "":
		return fixtures.Demo()
	case fixturesNone:
		return fixtures.Empty()
	default:
		return fixtures.File(a.cfg.Fixtures)
	}
}

// openStore attaches the configured backend once per invocation. The root
// command detaches it after the subcommand returns.
func (a *app) openStore() (types.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.New(a.cfg.Backend, store.WithFixtures(a.fixtureLoader()), store.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	if err := s.Attach(types.Config{Backend: a.cfg.Backend, DataDir: a.cfg.DataDir}); err != nil {
		if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrBackendEmpty) {
			return nil, err
		}
		return nil, sysErr(fmt.Errorf("attach %s store: %w", a.cfg.Backend, err))
	}
	a.store = s
	return s, nil
}

func (a *app) board() (types.Board, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	b, err := s.Board()
	return b, sysErr(err)
}

func (a *app) engine() (*automation.Engine, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	rules, err := s.Rules()
	if err != nil {
		return nil, sysErr(err)
	}
	return automation.NewEngine(rules, a.log), nil
}

func (a *app) team() (*team.Service, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	accounts, err := s.Accounts()
	if err != nil {
		return nil, sysErr(err)
	}
	return team.NewService(accounts, a.log), nil
}

// sessions builds the configured session store.
func (a *app) sessions(cmd *cobra.Command) (types.SessionStore, error) {
	switch a.cfg.SessionStore {
	case types.SessionStoreFile, "":
		return session.NewFileStore(a.cfg.DataDir), nil
	case types.SessionStoreMemory:
		return session.NewMemoryStore(), nil
	case types.SessionStoreRedis:
		if a.redis == nil {
			client, err := session.Dial(a.context(cmd), a.cfg.RedisURL)
			if err != nil {
				return nil, sysErr(err)
			}
			a.redis = client
		}
		return session.NewRedisStore(a.redis, a.cfg.RedisKey, a.cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("%q: %w", a.cfg.SessionStore, types.ErrSessionStoreUnknown)
	}
}

// authService builds the authentication service over the account directory and the
// session store. Sessions are signed when a secret is configured.
func (a *app) authService(cmd *cobra.Command) (*auth.Service, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	accounts, err := s.Accounts()
	if err != nil {
		return nil, sysErr(err)
	}
	sessions, err := a.sessions(cmd)
	if err != nil {
		return nil, err
	}
	opts := []auth.Option{auth.WithLogger(a.log)}
	if a.cfg.Secret != "" {
		opts = append(opts, auth.WithSigner(auth.NewSigner([]byte(a.cfg.Secret), a.cfg.SessionTTL)))
	}
	return auth.NewService(accounts, sessions, opts...), nil
}

// currentUser returns the logged-in user, or nil when there is no valid
// session and required is false.
func (a *app) currentUser(cmd *cobra.Command, required bool) (*types.User, error) {
	svc, err := a.authService(cmd)
	if err != nil {
		return nil, err
	}
	s, err := svc.Current(a.context(cmd))
	if err != nil {
		if !required && (errors.Is(err, types.ErrNoSession) || errors.Is(err, types.ErrSessionExpired)) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &s.User, nil
}
