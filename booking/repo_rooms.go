package booking

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Rooms persists classroom records.
type Rooms interface {
	repository.Repository[*Room]

	Search(ctx context.Context, query string) ([]*Room, error)
	Create(ctx context.Context, record *Room, criteria ...repository.InsertCriteria) (*Room, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Room, criteria ...repository.InsertCriteria) (*Room, error)
}

type rooms struct {
	repository.Repository[*Room]
	db *bun.DB
}

var _ Rooms = (*rooms)(nil)

func NewRoomsRepository(db *bun.DB) Rooms {
	repo := repository.NewRepository[*Room](db, repository.ModelHandlers[*Room]{
		NewRecord: func() *Room { return &Room{} },
		GetID: func(r *Room) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Room, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &rooms{
		Repository: repo,
		db:         db,
	}
}

// Search does a case-insensitive substring match against name, building, and
// room number, mirroring the room list filter box.
func (r *rooms) Search(ctx context.Context, query string) ([]*Room, error) {
	records := []*Room{}

	q := r.db.NewSelect().Model(&records)
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("lower(?TableAlias.name) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.building) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.room_number) LIKE ?", pattern)
		})
	}

	if err := q.Order("building ASC").Order("room_number ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *rooms) Create(ctx context.Context, record *Room, criteria ...repository.InsertCriteria) (*Room, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *rooms) CreateTx(ctx context.Context, tx bun.IDB, record *Room, criteria ...repository.InsertCriteria) (*Room, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}
