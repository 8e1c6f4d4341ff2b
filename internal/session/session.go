// Package session persists the current login between invocations. Each
// store holds at most one session.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// decode parses a stored session. Undecodable or anonymous data reads as no
// session.
func decode(data []byte) (*types.Session, error) {
	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil || s.UserID == "" {
		return nil, types.ErrNoSession
	}
	return &s, nil
}

func clone(s *types.Session) *types.Session {
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// MemoryStore keeps the session in process.
type MemoryStore struct {
	mu      sync.Mutex
	current *types.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, types.ErrNoSession
	}
	return clone(m.current), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = clone(s)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
