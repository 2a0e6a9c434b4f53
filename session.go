package classtrack

import (
	"fmt"
	"time"
)

// Session is a read-only copy of the identity provider's session state. The
// provider owns creation, refresh, and expiry; holders must treat it as
// possibly stale and re-derive state from session-change events.
type Session struct {
	IdentityID string     `json:"identity_id,omitempty"`
	Token      string     `json:"token,omitempty"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session's validity window has passed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return now.After(*s.ExpiresAt)
}

func (s Session) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("identity=%s iat=%s", s.IdentityID, issuedAt)
}

// CurrentUser is the view model derived by joining Session and Profile. It
// exists only in the session manager's memory and is recomputed whenever the
// session changes; absent when there is no session.
type CurrentUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Approved bool   `json:"approved"`
}

// currentUserFromProfile joins a session with its resolved profile. A nil
// profile yields a nil user: a session without a profile must never render
// as authenticated with null fields.
func currentUserFromProfile(session *Session, profile *Profile) *CurrentUser {
	if session == nil || profile == nil {
		return nil
	}

	return &CurrentUser{
		ID:       profile.ID.String(),
		Email:    profile.Email,
		Name:     profile.Name,
		Role:     profile.Role,
		Approved: profile.Approved(),
	}
}
