package local

import (
	"context"
	"testing"
	"time"

	"github.com/classtrack/go-classtrack"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdentities struct {
	mock.Mock
	Identities
}

func (m *mockIdentities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	args := m.Called(ctx, email)
	var record *Identity
	if v := args.Get(0); v != nil {
		record = v.(*Identity)
	}
	return record, args.Error(1)
}

type mockProfiles struct {
	mock.Mock
	classtrack.Profiles
}

func (m *mockProfiles) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*classtrack.Profile, error) {
	args := m.Called(ctx, id)
	var profile *classtrack.Profile
	if v := args.Get(0); v != nil {
		profile = v.(*classtrack.Profile)
	}
	return profile, args.Error(1)
}

func TestProvider_SessionChangeFanout(t *testing.T) {
	p := New(testConfig{}, nil)

	var events []classtrack.SessionEventType
	sub := p.OnSessionChange(func(event classtrack.SessionEventType, session *classtrack.Session) {
		events = append(events, event)
	})

	session := &classtrack.Session{IdentityID: "id-1", Token: "tok"}
	p.setSession(session, classtrack.SessionSignedIn)
	p.setSession(nil, classtrack.SessionSignedOut)

	require.Len(t, events, 2)
	assert.Equal(t, classtrack.SessionSignedIn, events[0])
	assert.Equal(t, classtrack.SessionSignedOut, events[1])

	sub.Unsubscribe()

	p.setSession(session, classtrack.SessionSignedIn)
	assert.Len(t, events, 2, "unsubscribed handlers receive nothing")
}

func TestProvider_CurrentSession(t *testing.T) {
	p := New(testConfig{}, nil)
	ctx := context.Background()

	t.Run("no session yields nil nil", func(t *testing.T) {
		session, err := p.CurrentSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("active session is returned by copy", func(t *testing.T) {
		expires := time.Now().Add(time.Hour)
		p.setSession(&classtrack.Session{IdentityID: "id-1", ExpiresAt: &expires}, classtrack.SessionSignedIn)

		session, err := p.CurrentSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "id-1", session.IdentityID)
	})

	t.Run("expired session is cleared and signed out", func(t *testing.T) {
		expired := time.Now().Add(-time.Hour)
		p.setSession(&classtrack.Session{IdentityID: "id-1", ExpiresAt: &expired}, classtrack.SessionSignedIn)

		var sawSignOut bool
		sub := p.OnSessionChange(func(event classtrack.SessionEventType, _ *classtrack.Session) {
			if event == classtrack.SessionSignedOut {
				sawSignOut = true
			}
		})
		defer sub.Unsubscribe()

		session, err := p.CurrentSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.True(t, sawSignOut, "expiry discovered on read must emit a signed-out event")

		session, err = p.CurrentSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestProvider_SignOutAlwaysSucceeds(t *testing.T) {
	p := New(testConfig{}, nil)

	require.NoError(t, p.SignOut(context.Background()))

	session, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestProvider_SignInWithoutProfileRejectsCredentials(t *testing.T) {
	hash, err := classtrack.HashPassword("secretpass")
	require.NoError(t, err)

	verified := time.Now()
	id := uuid.New()

	idents := &mockIdentities{}
	idents.On("GetByEmail", mock.Anything, "pepe@example.com").Return(&Identity{
		ID:              id,
		Email:           "pepe@example.com",
		PasswordHash:    hash,
		EmailVerifiedAt: &verified,
	}, nil)

	profiles := &mockProfiles{}
	profiles.On("GetByID", mock.Anything, id.String()).Return(nil, repository.NewRecordNotFound())

	p := New(testConfig{}, nil, WithProfiles(profiles))
	p.identities = idents

	session, err := p.SignInWithPassword(context.Background(), "pepe@example.com", "secretpass")
	assert.Nil(t, session)
	require.ErrorIs(t, err, classtrack.ErrInvalidCredentials)
	assert.False(t, classtrack.IsProfileNotFound(err),
		"the missing profile must not leak out of the sign-in path")

	idents.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestProvider_FetchProfileRejectsBadID(t *testing.T) {
	p := New(testConfig{}, nil)

	_, err := p.FetchProfile(context.Background(), "not-a-uuid")
	assert.True(t, classtrack.IsProfileNotFound(err))
}
