package types

import "context"

// FixtureAccount is a demo login. Password is plain text and is hashed when
// the account is seeded.
type FixtureAccount struct {
	User
	Password string
}

// Fixtures is the initial content of an empty store.
type Fixtures struct {
	Stages   []Stage
	Rules    []AutomationRule
	Accounts []FixtureAccount
}

// FixtureLoader supplies the initial content of a store. Backends call it
// once, on first attach.
type FixtureLoader interface {
	LoadFixtures(ctx context.Context) (*Fixtures, error)
}
