// Package memory implements an in-process Store. Nothing survives Detach;
// it backs tests and the "memory" backend setting.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/internal/pipeline"
	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Backend implements types.Store in memory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	loader   types.FixtureLoader
	log      logrus.FieldLogger

	board    *pipeline.Board
	rules    *RuleStore
	accounts *AccountStore
}

// Option configures a Backend.
type Option func(*Backend)

// WithFixtures sets the loader used to seed the store on Attach.
func WithFixtures(l types.FixtureLoader) Option {
	return func(b *Backend) { b.loader = l }
}

// WithLogger sets the backend logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Backend) { b.log = log }
}

// NewBackend creates a detached in-memory backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Attach seeds the collections from the fixture loader, if any.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	fx := &types.Fixtures{}
	if b.loader != nil {
		var err error
		fx, err = b.loader.LoadFixtures(context.Background())
		if err != nil {
			return fmt.Errorf("load fixtures: %w", err)
		}
	}

	board, err := pipeline.NewBoard(fx.Stages, pipeline.WithLogger(b.log))
	if err != nil {
		return fmt.Errorf("seed board: %w", err)
	}
	accounts := NewAccountStore()
	for _, fa := range fx.Accounts {
		hash, err := secret.HashPassword(fa.Password)
		if err != nil {
			return err
		}
		if _, err := accounts.Create(types.Account{User: fa.User, PasswordHash: hash}); err != nil {
			return fmt.Errorf("seed account %s: %w", fa.Email, err)
		}
	}

	b.board = board
	b.rules = NewRuleStore(fx.Rules)
	b.accounts = accounts
	b.attached = true
	b.log.WithFields(logrus.Fields{
		"stages":   len(fx.Stages),
		"rules":    len(fx.Rules),
		"accounts": len(fx.Accounts),
	}).Debug("memory store attached")
	return nil
}

// Detach drops every collection. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

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

// RuleStore is an in-memory types.RuleStore.
type RuleStore struct {
	mu    sync.RWMutex
	rules []types.AutomationRule
}

// NewRuleStore creates a store holding a copy of rules in the given order.
func NewRuleStore(rules []types.AutomationRule) *RuleStore {
	s := &RuleStore{}
	for _, r := range rules {
		s.rules = append(s.rules, r.Clone())
	}
	return s
}

// List returns every rule in list order.
func (s *RuleStore) List() ([]types.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AutomationRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Clone()
	}
	return out, nil
}

// Get returns the rule with the given ID.
func (s *RuleStore) Get(id string) (types.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.rules[i].Clone(), nil
	}
	return types.AutomationRule{}, fmt.Errorf("%q: %w", id, types.ErrRuleNotFound)
}

// Set updates the rule in place or prepends a new one.
func (s *RuleStore) Set(r types.AutomationRule) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.RuleID != "" {
		if i := s.indexOf(r.RuleID); i >= 0 {
			s.rules[i] = r.Clone()
			return r.RuleID, nil
		}
	} else {
		r.RuleID = types.NewID()
	}
	s.rules = append([]types.AutomationRule{r.Clone()}, s.rules...)
	return r.RuleID, nil
}

// Delete removes the rule with the given ID.
func (s *RuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%q: %w", id, types.ErrRuleNotFound)
	}
	s.rules = append(s.rules[:i:i], s.rules[i+1:]...)
	return nil
}

func (s *RuleStore) indexOf(id string) int {
	for i, r := range s.rules {
		if r.RuleID == id {
			return i
		}
	}
	return -1
}

// AccountStore is an in-memory types.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts []types.Account
}

// NewAccountStore creates an empty account directory.
func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

// Lookup finds an account by email, ignoring case.
func (s *AccountStore) Lookup(email string) (types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return types.Account{}, fmt.Errorf("%q: %w", email, types.ErrAccountNotFound)
}

// Create registers a new account.
func (s *AccountStore) Create(a types.Account) (string, error) {
	if strings.TrimSpace(a.Email) == "" {
		return "", types.ErrInvalidEmail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return "", fmt.Errorf("%q: %w", a.Email, types.ErrEmailTaken)
		}
	}
	if a.UserID == "" {
		a.UserID = types.NewID()
	}
	s.accounts = append(s.accounts, a)
	return a.UserID, nil
}

// Get finds an account by user ID.
func (s *AccountStore) Get(id string) (types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.accounts[i], nil
	}
	return types.Account{}, fmt.Errorf("%q: %w", id, types.ErrAccountNotFound)
}

// Update replaces an account profile, keeping the stored hash when
// a.PasswordHash is empty.
func (s *AccountStore) Update(a types.Account) error {
	if strings.TrimSpace(a.Email) == "" {
		return types.ErrInvalidEmail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(a.UserID)
	if i < 0 {
		return fmt.Errorf("%q: %w", a.UserID, types.ErrAccountNotFound)
	}
	for j, other := range s.accounts {
		if j != i && strings.EqualFold(other.Email, a.Email) {
			return fmt.Errorf("%q: %w", a.Email, types.ErrEmailTaken)
		}
	}
	if a.PasswordHash == "" {
		a.PasswordHash = s.accounts[i].PasswordHash
	}
	s.accounts[i] = a
	return nil
}

// Delete removes the account with the given user ID.
func (s *AccountStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%q: %w", id, types.ErrAccountNotFound)
	}
	s.accounts = append(s.accounts[:i:i], s.accounts[i+1:]...)
	return nil
}

func (s *AccountStore) indexOf(id string) int {
	for i, a := range s.accounts {
		if a.UserID == id {
			return i
		}
	}
	return -1
}

// List returns every account in creation order.
func (s *AccountStore) List() ([]types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Account(nil), s.accounts...), nil
}
