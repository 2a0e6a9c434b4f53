package classtrack

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrInvalidCredentials))
	assert.True(t, IsAuthError(ErrEmailTaken))
	assert.True(t, IsAuthError(ErrWeakPassword))
	assert.True(t, IsAuthError(ErrInvalidOrExpiredCode))

	assert.False(t, IsAuthError(nil))
	assert.False(t, IsAuthError(ErrNetwork))
	assert.False(t, IsAuthError(fmt.Errorf("plain error")))
}

func TestIsAuthErrorWrapped(t *testing.T) {
	wrapped := goerrors.Wrap(ErrInvalidCredentials, goerrors.CategoryAuth, "sign in failed")
	assert.True(t, IsAuthError(wrapped))
}

func TestIsProfileNotFound(t *testing.T) {
	assert.True(t, IsProfileNotFound(ErrProfileNotFound))
	assert.False(t, IsProfileNotFound(nil))
	assert.False(t, IsProfileNotFound(ErrInvalidCredentials))
	assert.False(t, IsProfileNotFound(fmt.Errorf("boom")))
}

func TestErrorTextCodes(t *testing.T) {
	tests := []struct {
		err  *goerrors.Error
		code string
	}{
		{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
		{ErrEmailTaken, "EMAIL_TAKEN"},
		{ErrWeakPassword, "WEAK_PASSWORD"},
		{ErrInvalidOrExpiredCode, "INVALID_OR_EXPIRED_CODE"},
		{ErrProfileNotFound, "PROFILE_NOT_FOUND"},
		{ErrNetwork, "NETWORK_ERROR"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.code, tc.err.TextCode)
	}
}
