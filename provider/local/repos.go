package local

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities persists raw authentication records.
type Identities interface {
	repository.Repository[*Identity]

	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error)
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var _ Identities = (*identities)(nil)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(i *Identity) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Identity, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (r *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(strings.ToLower(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *identities) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	record := &Identity{
		ID:              id,
		EmailVerifiedAt: &at,
	}
	_, err := r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	return err
}

// VerificationCodes persists single-use email verification codes.
type VerificationCodes interface {
	repository.Repository[*VerificationCode]

	GetActive(ctx context.Context, code string) (*VerificationCode, error)
	GetActiveTx(ctx context.Context, tx bun.IDB, code string) (*VerificationCode, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type verificationCodes struct {
	repository.Repository[*VerificationCode]
	db *bun.DB
}

var _ VerificationCodes = (*verificationCodes)(nil)

func NewVerificationCodesRepository(db *bun.DB) VerificationCodes {
	repo := repository.NewRepository[*VerificationCode](db, repository.ModelHandlers[*VerificationCode]{
		NewRecord: func() *VerificationCode { return &VerificationCode{} },
		GetID: func(c *VerificationCode) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *VerificationCode, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &verificationCodes{
		Repository: repo,
		db:         db,
	}
}

func (r *verificationCodes) GetActive(ctx context.Context, code string) (*VerificationCode, error) {
	return r.GetActiveTx(ctx, r.db, code)
}

// GetActiveTx returns the most recent unconsumed record matching the code
// value. Expiry is checked by the caller so it can distinguish wrong codes
// from stale ones in logs.
func (r *verificationCodes) GetActiveTx(ctx context.Context, tx bun.IDB, code string) (*VerificationCode, error) {
	record := &VerificationCode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", strings.TrimSpace(code)).
		Where("?TableAlias.consumed_at IS NULL").
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"code": "redacted",
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationCodes) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	record := &VerificationCode{
		ID:         id,
		ConsumedAt: &at,
	}
	_, err := r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	return err
}
