package classtrack

import (
	"context"
	"sync"
)

// managerState tracks where the manager is in its lifecycle.
type managerState int

const (
	stateBootstrapping managerState = iota
	stateRunning
	stateStopped
)

// SessionManager is the single source of truth for "who is the current actor
// and are we sure yet". It wraps an IdentityProvider and is the only
// component allowed to call it. Construct one per client session and pass it
// by reference to the router and views.
//
// Session-change events are the single writer of the current user: Login and
// VerifyEmail never populate it from their own return path. Every state
// mutation flows through one apply goroutine in event arrival order, so a
// stale login completion can never resurrect a logged-out user.
type SessionManager struct {
	provider IdentityProvider
	notifier Notifier
	logger   Logger

	mu       sync.RWMutex
	state    managerState
	session  *Session
	current  *CurrentUser
	inflight int

	tasks chan func()
	done  chan struct{}
	sub   Subscription
}

// ManagerOption customizes SessionManager construction.
type ManagerOption func(*SessionManager)

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerNotifier sets the sink for user-facing notices.
func WithManagerNotifier(notifier Notifier) ManagerOption {
	return func(m *SessionManager) {
		m.notifier = normalizeNotifier(notifier)
	}
}

// NewSessionManager returns a manager in the bootstrapping state; callers
// must invoke Start before routing decisions are made.
func NewSessionManager(provider IdentityProvider, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		provider: provider,
		notifier: noopNotifier{},
		logger:   defLogger{},
		state:    stateBootstrapping,
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Start subscribes to the provider's session-change stream, then resolves the
// current session once. Subscribing first means an event firing during the
// fetch is queued rather than missed. Start blocks until bootstrap resolves,
// success or failure, so IsLoading is false when it returns.
func (m *SessionManager) Start(ctx context.Context) error {
	go m.applyLoop()

	m.sub = m.provider.OnSessionChange(m.handleSessionChange)

	bootstrapped := make(chan struct{})
	m.enqueue(func() {
		defer close(bootstrapped)
		m.bootstrap(ctx)
	})

	select {
	case <-bootstrapped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the subscription handle and shuts down the apply loop.
// Forgetting to stop a manager leaks the subscription across remounts.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	if m.state == stateStopped {
		m.mu.Unlock()
		return
	}
	m.state = stateStopped
	m.mu.Unlock()

	if m.sub != nil {
		m.sub.Unsubscribe()
	}
	close(m.done)
}

// CurrentUser returns the authenticated view model, nil when there is none.
func (m *SessionManager) CurrentUser() *CurrentUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsAuthenticated holds exactly when CurrentUser is non-nil.
func (m *SessionManager) IsAuthenticated() bool {
	return m.CurrentUser() != nil
}

// IsLoading is true during initial bootstrap and while any
// login/register/verify/logout call is in flight. No route decision may be
// made while it is true.
func (m *SessionManager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateBootstrapping || m.inflight > 0
}

var _ SessionSource = (*SessionManager)(nil)

// Login delegates to password sign-in. On success the pushed session-change
// event populates the current user; the direct return path deliberately does
// not, to avoid racing duplicate writes.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	if m.stopped() {
		return ErrManagerStopped
	}

	m.beginOp()
	defer m.endOp()

	if _, err := m.provider.SignInWithPassword(ctx, email, password); err != nil {
		m.logger.Error("login failed", "email", email, "error", err)
		m.notify(ctx, NoticeError, "Login Failed", displayMessage(err))
		return err
	}

	m.notify(ctx, NoticeSuccess, "Login Successful", "Welcome back!")
	return nil
}

// Register signs up a new identity with the chosen role attached as profile
// metadata. It does not log the user in: the identity stays pending until
// email verification succeeds.
func (m *SessionManager) Register(ctx context.Context, email, password, name string, role Role) error {
	if m.stopped() {
		return ErrManagerStopped
	}

	m.beginOp()
	defer m.endOp()

	meta := SignUpMetadata{Name: name, Role: role}
	if _, err := m.provider.SignUp(ctx, email, password, meta); err != nil {
		m.logger.Error("registration failed", "email", email, "error", err)
		m.notify(ctx, NoticeError, "Registration Failed", displayMessage(err))
		return err
	}

	m.notify(ctx, NoticeSuccess, "Registration Successful",
		"A verification code has been sent to your email.")
	return nil
}

// VerifyEmail exchanges a one-time code for a validated session. On success
// the session-change subscription populates the current user.
func (m *SessionManager) VerifyEmail(ctx context.Context, code string) error {
	if m.stopped() {
		return ErrManagerStopped
	}

	m.beginOp()
	defer m.endOp()

	if _, err := m.provider.VerifyOneTimeCode(ctx, code); err != nil {
		m.logger.Error("email verification failed", "error", err)
		m.notify(ctx, NoticeError, "Verification Failed", displayMessage(err))
		return err
	}

	m.notify(ctx, NoticeSuccess, "Email Verified", "Your account is pending admin approval.")
	return nil
}

// Logout signs out remotely best-effort and always clears local state: the
// purpose of logout is to remove local capability, so a failed remote
// sign-out is reported but never blocks the clear. The clear goes through the
// apply queue so ordering against in-flight events holds, and it is
// idempotent with the pushed signed-out event.
func (m *SessionManager) Logout(ctx context.Context) {
	if m.stopped() {
		return
	}

	m.beginOp()
	defer m.endOp()

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("remote sign-out failed, clearing local state anyway", "error", err)
	}

	m.enqueue(func() {
		m.setCurrent(nil, nil)
	})

	m.notify(ctx, NoticeSuccess, "Logged Out", "You have been logged out.")
}

// handleSessionChange runs while the provider holds its dispatch lock, so it
// must not call back into the provider synchronously. The profile lookup is
// deferred to the apply loop, a separate task on the next turn.
func (m *SessionManager) handleSessionChange(event SessionEventType, session *Session) {
	m.enqueue(func() {
		m.applyEvent(event, session)
	})
}

func (m *SessionManager) applyLoop() {
	for {
		select {
		case task := <-m.tasks:
			task()
		case <-m.done:
			return
		}
	}
}

func (m *SessionManager) enqueue(task func()) {
	select {
	case <-m.done:
		m.logger.Debug("manager stopped, dropping queued task")
	case m.tasks <- task:
	}
}

// bootstrap runs on the apply goroutine. If an event raced ahead of us it is
// already queued behind this task and will win, being the later arrival.
func (m *SessionManager) bootstrap(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		if m.state == stateBootstrapping {
			m.state = stateRunning
		}
		m.mu.Unlock()
	}()

	session, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.logger.Error("bootstrap session fetch failed", "error", err)
		m.setCurrent(nil, nil)
		return
	}

	if session == nil {
		m.setCurrent(nil, nil)
		return
	}

	m.setCurrent(session, m.resolveProfile(ctx, session))
}

// applyEvent is the single writer of the current user.
func (m *SessionManager) applyEvent(event SessionEventType, session *Session) {
	if event == SessionSignedOut || session == nil {
		m.setCurrent(nil, nil)
		return
	}

	ctx := context.Background()
	m.setCurrent(session, m.resolveProfile(ctx, session))
}

// resolveProfile joins a session to its profile. Any failure resolves to "no
// usable identity" rather than a fatal error: a session without a profile is
// an expected transient state (e.g. right after sign-up), but it must never
// render as authenticated with null fields.
func (m *SessionManager) resolveProfile(ctx context.Context, session *Session) *CurrentUser {
	profile, err := m.provider.FetchProfile(ctx, session.IdentityID)
	if err != nil {
		if IsProfileNotFound(err) {
			m.logger.Info("no profile for identity yet", "identity", session.IdentityID)
		} else {
			m.logger.Error("profile lookup failed", "identity", session.IdentityID, "error", err)
		}
		return nil
	}

	return currentUserFromProfile(session, profile)
}

func (m *SessionManager) setCurrent(session *Session, user *CurrentUser) {
	m.mu.Lock()
	m.session = session
	m.current = user
	m.mu.Unlock()
}

func (m *SessionManager) stopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateStopped
}

func (m *SessionManager) beginOp() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
}

func (m *SessionManager) endOp() {
	m.mu.Lock()
	if m.inflight > 0 {
		m.inflight--
	}
	m.mu.Unlock()
}

func (m *SessionManager) notify(ctx context.Context, level NoticeLevel, title, message string) {
	notice := Notice{Level: level, Title: title, Message: message}
	if err := m.notifier.Notify(ctx, notice); err != nil {
		m.logger.Warn("notifier error: %v", err)
	}
}
