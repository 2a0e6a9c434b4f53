package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationCodeUsable(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	t.Run("fresh code is usable", func(t *testing.T) {
		code := &VerificationCode{ExpiresAt: &future}
		assert.True(t, code.Usable(now))
	})

	t.Run("expired code is not usable", func(t *testing.T) {
		code := &VerificationCode{ExpiresAt: &past}
		assert.False(t, code.Usable(now))
	})

	t.Run("consumed code is not usable", func(t *testing.T) {
		code := &VerificationCode{ExpiresAt: &future, ConsumedAt: &now}
		assert.False(t, code.Usable(now))
	})

	t.Run("nil code is not usable", func(t *testing.T) {
		var code *VerificationCode
		assert.False(t, code.Usable(now))
	})
}

func TestIdentityVerified(t *testing.T) {
	now := time.Now()

	var identity *Identity
	assert.False(t, identity.Verified())

	assert.False(t, (&Identity{}).Verified())
	assert.True(t, (&Identity{EmailVerifiedAt: &now}).Verified())
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		assert.NoError(t, err)
		assert.Len(t, code, 6)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "codes should not be constant")
}
