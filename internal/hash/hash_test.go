package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_NeverStoresPlaintext(t *testing.T) {
	t.Parallel()

	for _, pw := range []string{"pw123", "correct horse battery staple", "ünïcødé"} {
		h, err := HashPassword(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, h)
		assert.True(t, CheckPassword(h, pw))
		assert.False(t, CheckPassword(h, pw+"x"))
	}
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPassword_Empty(t *testing.T) {
	t.Parallel()

	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestCheckPassword_MalformedHashFailsClosed(t *testing.T) {
	t.Parallel()

	for _, h := range []string{"", "not-a-hash", "$2a$10$short", "pw123"} {
		assert.False(t, CheckPassword(h, "pw123"), h)
	}
}
