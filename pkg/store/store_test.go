package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/funnel/internal/fixtures"
	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

func init() {
	secret.Cost = bcrypt.MinCost
}

func TestNew(t *testing.T) {
	for _, backend := range []string{types.BackendMemory, types.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s, err := New(backend, WithFixtures(fixtures.Demo()))
			require.NoError(t, err)
			require.NoError(t, s.Attach(types.Config{Backend: backend, DataDir: t.TempDir()}))
			defer s.Detach()

			board, err := s.Board()
			require.NoError(t, err)
			stages, err := board.Stages()
			require.NoError(t, err)
			assert.Len(t, stages, 6)
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
	_, err = New("postgres")
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
