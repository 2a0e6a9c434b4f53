package booking

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Messages persists chat messages.
type Messages interface {
	repository.Repository[*Message]

	Conversation(ctx context.Context, a, b uuid.UUID) ([]*Message, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) error
	Create(ctx context.Context, record *Message, criteria ...repository.InsertCriteria) (*Message, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Message, criteria ...repository.InsertCriteria) (*Message, error)
}

type messages struct {
	repository.Repository[*Message]
	db *bun.DB
}

var _ Messages = (*messages)(nil)

func NewMessagesRepository(db *bun.DB) Messages {
	repo := repository.NewRepository[*Message](db, repository.ModelHandlers[*Message]{
		NewRecord: func() *Message { return &Message{} },
		GetID: func(m *Message) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Message, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &messages{
		Repository: repo,
		db:         db,
	}
}

// Conversation returns the two-way message history between a and b in send
// order.
func (r *messages) Conversation(ctx context.Context, a, b uuid.UUID) ([]*Message, error) {
	records := []*Message{}

	err := r.db.NewSelect().
		Model(&records).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereGroup(" OR ", func(g *bun.SelectQuery) *bun.SelectQuery {
					return g.
						Where("?TableAlias.sender_id = ?", a).
						Where("?TableAlias.recipient_id = ?", b)
				}).
				WhereGroup(" OR ", func(g *bun.SelectQuery) *bun.SelectQuery {
					return g.
						Where("?TableAlias.sender_id = ?", b).
						Where("?TableAlias.recipient_id = ?", a)
				})
		}).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *messages) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*Message)(nil)).
		Where("?TableAlias.recipient_id = ?", recipientID).
		Where("?TableAlias.is_read = ?", false).
		Count(ctx)
}

// MarkRead flags every message from sender to recipient as read, the bulk
// operation run when a conversation is opened.
func (r *messages) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Message)(nil)).
		Set("is_read = ?", true).
		Where("recipient_id = ?", recipientID).
		Where("sender_id = ?", senderID).
		Where("is_read = ?", false).
		Exec(ctx)
	return err
}

func (r *messages) Create(ctx context.Context, record *Message, criteria ...repository.InsertCriteria) (*Message, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *messages) CreateTx(ctx context.Context, tx bun.IDB, record *Message, criteria ...repository.InsertCriteria) (*Message, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}
