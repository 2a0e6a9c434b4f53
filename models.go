package classtrack

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileStatus is the lifecycle status of a profile.
type ProfileStatus string

const (
	// ProfileStatusPending is the state right after sign-up, before an
	// administrator approves the account.
	ProfileStatusPending ProfileStatus = "pending"
	// ProfileStatusApproved accounts are fully usable.
	ProfileStatusApproved ProfileStatus = "approved"
	// ProfileStatusSuspended accounts keep their data but cannot be used.
	ProfileStatusSuspended ProfileStatus = "suspended"
	// ProfileStatusArchived is terminal.
	ProfileStatusArchived ProfileStatus = "archived"
)

// Profile is the application-level user record, distinct from the raw
// authentication identity. One profile per identity, keyed by identity id.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Role          Role          `bun:"role,notnull" json:"role,omitempty"`
	Status        ProfileStatus `bun:"status,notnull" json:"status,omitempty"`
	EmailVerified bool          `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	SuspendedAt   *time.Time    `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults the zero value to pending, the state every new
// sign-up starts in.
func (p *Profile) EnsureStatus() {
	if p.Status == "" {
		p.Status = ProfileStatusPending
	}
}

// Approved gates whether the account is functionally usable beyond
// authentication. Read by the client; enforcement is a product decision.
func (p *Profile) Approved() bool {
	return p.Status == ProfileStatusApproved
}

// IsPending reports whether the profile awaits admin approval.
func (p *Profile) IsPending() bool {
	p.EnsureStatus()
	return p.Status == ProfileStatusPending
}

// IsSuspended reports whether the profile is suspended.
func (p *Profile) IsSuspended() bool {
	return p.Status == ProfileStatusSuspended
}

// IsArchived reports whether the profile reached its terminal state.
func (p *Profile) IsArchived() bool {
	return p.Status == ProfileStatusArchived
}
