package classtrack

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is an in-memory identity provider that dispatches events the
// way a real one does: synchronously, while holding its subscriber lock.
type fakeProvider struct {
	mu       sync.Mutex
	handlers map[int]SessionChangeHandler
	nextID   int

	session    *Session
	profile    *Profile
	profileErr error
	signInErr  error
	signUpErr  error
	verifyErr  error
	signInGate chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		handlers: map[int]SessionChangeHandler{},
	}
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}

	if f.signInGate != nil {
		<-f.signInGate
	}

	session := f.makeSession()
	f.mu.Lock()
	f.session = session
	f.mu.Unlock()

	f.emit(SessionSignedIn, session)
	return session, nil
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*PendingIdentity, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &PendingIdentity{ID: uuid.NewString(), Email: email}, nil
}

func (f *fakeProvider) VerifyOneTimeCode(ctx context.Context, code string) (*Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}

	session := f.makeSession()
	f.mu.Lock()
	f.session = session
	f.mu.Unlock()

	f.emit(SessionSignedIn, session)
	return session, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()

	f.emit(SessionSignedOut, nil)
	return nil
}

func (f *fakeProvider) CurrentSession(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) OnSessionChange(handler SessionChangeHandler) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.handlers[id] = handler

	return fakeSubscription{cancel: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}}
}

func (f *fakeProvider) FetchProfile(ctx context.Context, identityID string) (*Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile == nil {
		return nil, ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeProvider) emit(event SessionEventType, session *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, handler := range f.handlers {
		handler(event, session)
	}
}

func (f *fakeProvider) makeSession() *Session {
	now := time.Now()
	return &Session{
		IdentityID: "11111111-1111-1111-1111-111111111111",
		Token:      "token",
		IssuedAt:   &now,
	}
}

type fakeSubscription struct {
	cancel func()
}

func (s fakeSubscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

func testProfile(role Role) *Profile {
	return &Profile{
		ID:     uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Email:  "pepe@example.com",
		Name:   "Pepe Rone",
		Role:   role,
		Status: ProfileStatusApproved,
	}
}

func startedManager(t *testing.T, provider IdentityProvider) *SessionManager {
	t.Helper()

	manager := NewSessionManager(provider)
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(manager.Stop)

	return manager
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestSessionManager_BootstrapWithoutSession(t *testing.T) {
	provider := newFakeProvider()

	manager := startedManager(t, provider)

	assert.False(t, manager.IsLoading(), "bootstrap must be resolved after Start")
	assert.False(t, manager.IsAuthenticated())
	assert.Nil(t, manager.CurrentUser())
}

func TestSessionManager_BootstrapWithSession(t *testing.T) {
	provider := newFakeProvider()
	provider.session = provider.makeSession()
	provider.profile = testProfile(RoleStudent)

	manager := startedManager(t, provider)

	user := manager.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "pepe@example.com", user.Email)
	assert.Equal(t, RoleStudent, user.Role)
	assert.True(t, user.Approved)
	assert.True(t, manager.IsAuthenticated())
}

func TestSessionManager_AuthenticatedTracksCurrentUser(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	manager := startedManager(t, provider)

	assert.Equal(t, manager.CurrentUser() != nil, manager.IsAuthenticated())

	require.NoError(t, manager.Login(context.Background(), "pepe@example.com", "secretpass"))
	eventually(t, manager.IsAuthenticated, "login event should populate the user")
	assert.Equal(t, manager.CurrentUser() != nil, manager.IsAuthenticated())

	manager.Logout(context.Background())
	eventually(t, func() bool { return !manager.IsAuthenticated() }, "logout should clear the user")
	assert.Equal(t, manager.CurrentUser() != nil, manager.IsAuthenticated())
}

func TestSessionManager_LoginPopulatesViaEvent(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleAdmin)

	manager := startedManager(t, provider)

	require.NoError(t, manager.Login(context.Background(), "admin@example.com", "secretpass"))

	eventually(t, manager.IsAuthenticated, "signed-in event should populate the user")
	assert.Equal(t, RoleAdmin, manager.CurrentUser().Role)
}

func TestSessionManager_LoginFailureLeavesStateUnchanged(t *testing.T) {
	provider := newFakeProvider()
	provider.signInErr = ErrInvalidCredentials

	manager := startedManager(t, provider)

	err := manager.Login(context.Background(), "pepe@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.False(t, manager.IsAuthenticated())
	assert.False(t, manager.IsLoading())
}

func TestSessionManager_LogoutWinsOverEarlierLogin(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	manager := startedManager(t, provider)

	require.NoError(t, manager.Login(context.Background(), "pepe@example.com", "secretpass"))
	manager.Logout(context.Background())

	eventually(t, func() bool { return !manager.IsAuthenticated() },
		"the logout arrived after the login, so it must win")
	assert.Nil(t, manager.CurrentUser())
}

func TestSessionManager_LoginEventAfterLogoutWins(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)
	provider.signInGate = make(chan struct{})

	manager := startedManager(t, provider)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = manager.Login(context.Background(), "pepe@example.com", "secretpass")
	}()

	eventually(t, manager.IsLoading, "login should be in flight")

	// The logout lands while the login is still blocked inside the
	// provider, so its signed-in event arrives after the logout's clear.
	manager.Logout(context.Background())
	eventually(t, func() bool { return !manager.IsAuthenticated() },
		"logout should clear the user while the login is blocked")

	close(provider.signInGate)
	<-done

	eventually(t, manager.IsAuthenticated,
		"the signed-in event arrived after the logout, so it must win")
	assert.NotNil(t, manager.CurrentUser())
}

func TestSessionManager_ProfileLookupFailureMeansNoIdentity(t *testing.T) {
	provider := newFakeProvider()
	provider.session = provider.makeSession()
	provider.profileErr = ErrNetwork

	manager := startedManager(t, provider)

	assert.Nil(t, manager.CurrentUser(), "a session without a profile must not authenticate")
	assert.False(t, manager.IsAuthenticated())
	assert.False(t, manager.IsLoading())
}

func TestSessionManager_MissingProfileMeansNoIdentity(t *testing.T) {
	provider := newFakeProvider()
	provider.session = provider.makeSession()

	manager := startedManager(t, provider)

	assert.Nil(t, manager.CurrentUser())
	assert.False(t, manager.IsAuthenticated())
}

func TestSessionManager_RegisterDoesNotAuthenticate(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	manager := startedManager(t, provider)

	require.NoError(t, manager.Register(context.Background(), "new@example.com", "secretpass", "New User", RoleStudent))

	assert.False(t, manager.IsAuthenticated(), "sign-up alone must not create a session")
}

func TestSessionManager_BadVerificationCodeLeavesStateUnchanged(t *testing.T) {
	provider := newFakeProvider()
	provider.verifyErr = ErrInvalidOrExpiredCode

	manager := startedManager(t, provider)

	err := manager.VerifyEmail(context.Background(), "000000")
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	assert.False(t, manager.IsAuthenticated())
	assert.False(t, manager.IsLoading())
}

func TestSessionManager_VerifyEmailAuthenticatesViaEvent(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	manager := startedManager(t, provider)

	require.NoError(t, manager.VerifyEmail(context.Background(), "123456"))

	eventually(t, manager.IsAuthenticated, "verification should sign the user in")
	assert.Equal(t, RoleStudent, manager.CurrentUser().Role)
}

func TestSessionManager_IsLoadingDuringInflightOp(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)
	provider.signInGate = make(chan struct{})

	manager := startedManager(t, provider)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = manager.Login(context.Background(), "pepe@example.com", "secretpass")
	}()

	eventually(t, manager.IsLoading, "login in flight should report loading")

	close(provider.signInGate)
	<-done

	eventually(t, func() bool { return !manager.IsLoading() }, "loading clears when the op resolves")
}

func TestSessionManager_RoleRoundTrip(t *testing.T) {
	for _, role := range GetAllRoles() {
		provider := newFakeProvider()
		provider.profile = testProfile(role)

		manager := startedManager(t, provider)

		require.NoError(t, manager.Register(context.Background(), "u@example.com", "secretpass", "U", role))
		require.NoError(t, manager.VerifyEmail(context.Background(), "123456"))

		eventually(t, manager.IsAuthenticated, "verification should sign the user in")
		assert.Equal(t, role, manager.CurrentUser().Role)

		manager.Stop()
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

func TestSessionManager_NotifiesExactlyOncePerOperation(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	recorder := &recordingNotifier{}
	manager := NewSessionManager(provider, WithManagerNotifier(recorder))
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(manager.Stop)

	ctx := context.Background()

	require.NoError(t, manager.Register(ctx, "pepe@example.com", "secretpass", "Pepe Rone", RoleStudent))
	assert.Equal(t, 1, recorder.count())
	assert.Equal(t, NoticeSuccess, recorder.last().Level)

	require.NoError(t, manager.VerifyEmail(ctx, "123456"))
	assert.Equal(t, 2, recorder.count())

	manager.Logout(ctx)
	assert.Equal(t, 3, recorder.count())

	require.NoError(t, manager.Login(ctx, "pepe@example.com", "secretpass"))
	assert.Equal(t, 4, recorder.count())

	eventually(t, manager.IsAuthenticated, "login event should populate the user")
	assert.Equal(t, 4, recorder.count(), "applied session events must not add notices")

	provider.signInErr = ErrInvalidCredentials
	require.Error(t, manager.Login(ctx, "pepe@example.com", "wrong"))
	assert.Equal(t, 5, recorder.count())
	assert.Equal(t, NoticeError, recorder.last().Level)

	provider.signInErr = nil
	provider.verifyErr = ErrInvalidOrExpiredCode
	require.Error(t, manager.VerifyEmail(ctx, "000000"))
	assert.Equal(t, 6, recorder.count())

	provider.verifyErr = nil
	provider.signUpErr = ErrEmailTaken
	require.Error(t, manager.Register(ctx, "pepe@example.com", "secretpass", "Pepe Rone", RoleStudent))
	assert.Equal(t, 7, recorder.count())
	assert.Equal(t, "An account with this email already exists", recorder.last().Message)
}

func TestSessionManager_StopUnsubscribes(t *testing.T) {
	provider := newFakeProvider()
	provider.profile = testProfile(RoleStudent)

	manager := NewSessionManager(provider)
	require.NoError(t, manager.Start(context.Background()))

	manager.Stop()

	provider.mu.Lock()
	remaining := len(provider.handlers)
	provider.mu.Unlock()

	assert.Zero(t, remaining, "stop must release the subscription")

	err := manager.Login(context.Background(), "pepe@example.com", "secretpass")
	assert.ErrorIs(t, err, ErrManagerStopped)
}
