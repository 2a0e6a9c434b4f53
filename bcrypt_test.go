package classtrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secretpass")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "secretpass", hash)

	require.NoError(t, ComparePasswordAndHash("secretpass", hash))
}

func TestHashPasswordRejectsWeakPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestCheckPasswordPolicy(t *testing.T) {
	assert.NoError(t, CheckPasswordPolicy("exactly8"))
	assert.ErrorIs(t, CheckPasswordPolicy("seven77"), ErrWeakPassword)
	assert.ErrorIs(t, CheckPasswordPolicy(""), ErrWeakPassword)
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := HashPassword("secretpass")
	require.NoError(t, err)

	assert.ErrorIs(t, ComparePasswordAndHash("not-the-pass", hash), ErrInvalidCredentials)
}
