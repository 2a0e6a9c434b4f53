package classtrack

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	var nilSession *Session
	assert.False(t, nilSession.Expired(now))

	assert.False(t, (&Session{}).Expired(now), "sessions without expiry never expire locally")

	future := now.Add(time.Hour)
	assert.False(t, (&Session{ExpiresAt: &future}).Expired(now))

	past := now.Add(-time.Hour)
	assert.True(t, (&Session{ExpiresAt: &past}).Expired(now))
}

func TestCurrentUserFromProfile(t *testing.T) {
	session := &Session{IdentityID: "id-1"}
	profile := &Profile{
		ID:     uuid.New(),
		Email:  "pepe@example.com",
		Name:   "Pepe Rone",
		Role:   RoleStudent,
		Status: ProfileStatusApproved,
	}

	t.Run("joins session and profile", func(t *testing.T) {
		user := currentUserFromProfile(session, profile)
		require.NotNil(t, user)
		assert.Equal(t, profile.ID.String(), user.ID)
		assert.Equal(t, "pepe@example.com", user.Email)
		assert.Equal(t, RoleStudent, user.Role)
		assert.True(t, user.Approved)
	})

	t.Run("nil profile yields nil user", func(t *testing.T) {
		assert.Nil(t, currentUserFromProfile(session, nil))
	})

	t.Run("nil session yields nil user", func(t *testing.T) {
		assert.Nil(t, currentUserFromProfile(nil, profile))
	})

	t.Run("pending profile is not approved", func(t *testing.T) {
		pending := *profile
		pending.Status = ProfileStatusPending

		user := currentUserFromProfile(session, &pending)
		require.NotNil(t, user)
		assert.False(t, user.Approved)
	})
}
