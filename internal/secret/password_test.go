package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = bcrypt.DefaultCost })

	h, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", h)

	ok, err := CheckPassword(h, "admin123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(h, "admin124")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "admin123")
	assert.Error(t, err)

	h, err = HashPassword("")
	require.NoError(t, err)
	assert.Empty(t, h)
	ok, err = CheckPassword(h, "")
	require.NoError(t, err)
	assert.False(t, ok, "an account without a password never matches")
}
