package types

import (
	"context"
	"errors"
)

// Store defines backend-agnostic access to the board, the automation rules
// and the account directory. Callers attach to a backend, use the
// collections, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config and
	// seeds it from the fixture loader when empty. Returns
	// ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent. After Detach,
	// accessors return ErrStoreDetached.
	Detach() error

	Board() (Board, error)
	Rules() (RuleStore, error)
	Accounts() (AccountStore, error)
}

// RuleStore keeps automation rules in list order. Order matters: the first
// matching rule wins.
type RuleStore interface {
	// List returns every rule in list order.
	List() ([]AutomationRule, error)

	// Get returns the rule with the given ID or ErrRuleNotFound.
	Get(id string) (AutomationRule, error)

	// Set creates or updates a rule. New rules (empty RuleID) receive a UUID
	// v7 and are placed first. Returns the ID used.
	Set(r AutomationRule) (string, error)

	// Delete removes a rule. Returns ErrRuleNotFound if it does not exist.
	Delete(id string) error
}

// AccountStore is the directory of users able to log in.
type AccountStore interface {
	// Lookup returns the account registered with email (case-insensitive)
	// or ErrAccountNotFound.
	Lookup(email string) (Account, error)

	// Create registers a new account. Returns ErrEmailTaken if the email is
	// already registered. Returns the user ID.
	Create(a Account) (string, error)

	// Get returns the account with the given user ID or ErrAccountNotFound.
	Get(id string) (Account, error)

	// Update replaces the profile of an existing account, keeping the stored
	// password hash when a.PasswordHash is empty. Returns ErrAccountNotFound
	// or, when the email moves onto another account's, ErrEmailTaken.
	Update(a Account) error

	// Delete removes an account. Returns ErrAccountNotFound if it does not
	// exist.
	Delete(id string) error

	// List returns every account in creation order.
	List() ([]Account, error)
}

// SessionStore persists the current session between invocations.
type SessionStore interface {
	// Load returns the stored session or ErrNoSession.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Clear removes the stored session. Idempotent.
	Clear(ctx context.Context) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
