package local

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identity is the raw authentication record owned by the provider, distinct
// from the application profile. The two share the same id, 1:1.
type Identity struct {
	bun.BaseModel   `bun:"table:identities,alias:idn"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Verified reports whether the identity completed email verification.
func (i *Identity) Verified() bool {
	return i != nil && i.EmailVerifiedAt != nil
}

// VerificationCode is a single-use one-time code tied to a pending identity.
type VerificationCode struct {
	bun.BaseModel `bun:"table:verification_codes,alias:vrc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID    uuid.UUID  `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Usable reports whether the code can still be redeemed at the given time.
func (c *VerificationCode) Usable(now time.Time) bool {
	if c == nil || c.ConsumedAt != nil {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}
