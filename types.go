package classtrack

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SessionEventType identifies a session-change notification pushed by the
// identity provider.
type SessionEventType string

const (
	// SessionSignedIn is emitted when a session is created (login or
	// successful code verification).
	SessionSignedIn SessionEventType = "SIGNED_IN"
	// SessionSignedOut is emitted when the session is destroyed, locally or
	// by external expiry.
	SessionSignedOut SessionEventType = "SIGNED_OUT"
	// SessionRefreshed is emitted when an existing session is renewed.
	SessionRefreshed SessionEventType = "TOKEN_REFRESHED"
)

// SessionChangeHandler receives pushed session-change events. Handlers run
// while the provider holds its dispatch lock: they MUST NOT call back into
// the provider synchronously, or the provider can deadlock. Schedule any
// follow-up lookup as a separate task.
type SessionChangeHandler func(event SessionEventType, session *Session)

// Subscription is the handle for a session-change stream registration.
type Subscription interface {
	Unsubscribe()
}

// SignUpMetadata carries profile attributes attached at registration.
type SignUpMetadata struct {
	Name string
	Role Role
}

// PendingIdentity describes a registered identity awaiting email verification.
// It has no usable session or profile until verification succeeds.
type PendingIdentity struct {
	ID    string
	Email string
}

// IdentityProvider is the external identity/session service consumed by the
// SessionManager. Implementations own session lifecycle; the manager only
// holds read-only copies obtained from CurrentSession or the event stream.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*PendingIdentity, error)
	VerifyOneTimeCode(ctx context.Context, code string) (*Session, error)
	SignOut(ctx context.Context) error
	// CurrentSession returns the active session or (nil, nil) when there is none.
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(handler SessionChangeHandler) Subscription
	FetchProfile(ctx context.Context, identityID string) (*Profile, error)
}

// SessionSource is the read side of the session manager, consumed by the
// route guards and view layer.
type SessionSource interface {
	CurrentUser() *CurrentUser
	IsAuthenticated() bool
	IsLoading() bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() time.Duration
	GetCodeExpiration() time.Duration
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CLASSTRACK "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CLASSTRACK "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CLASSTRACK "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CLASSTRACK "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
