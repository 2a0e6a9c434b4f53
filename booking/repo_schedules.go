package booking

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Schedules persists room reservations.
type Schedules interface {
	repository.Repository[*Schedule]

	Search(ctx context.Context, query string) ([]*Schedule, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Schedule, error)
	ListActiveForRoom(ctx context.Context, roomID uuid.UUID, from, to time.Time) ([]*Schedule, error)
	ListActiveForRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID, from, to time.Time) ([]*Schedule, error)
	Create(ctx context.Context, record *Schedule, criteria ...repository.InsertCriteria) (*Schedule, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Schedule, criteria ...repository.InsertCriteria) (*Schedule, error)
	SetStatus(ctx context.Context, id uuid.UUID, status ScheduleStatus) (*Schedule, error)
}

type schedules struct {
	repository.Repository[*Schedule]
	db *bun.DB
}

var _ Schedules = (*schedules)(nil)

func NewSchedulesRepository(db *bun.DB) Schedules {
	repo := repository.NewRepository[*Schedule](db, repository.ModelHandlers[*Schedule]{
		NewRecord: func() *Schedule { return &Schedule{} },
		GetID: func(s *Schedule) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Schedule, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "title"
		},
	})

	return &schedules{
		Repository: repo,
		db:         db,
	}
}

// Search matches schedule titles and descriptions case-insensitively.
func (r *schedules) Search(ctx context.Context, query string) ([]*Schedule, error) {
	records := []*Schedule{}

	q := r.db.NewSelect().Model(&records).Relation("Room")
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("lower(?TableAlias.title) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.description) LIKE ?", pattern)
		})
	}

	if err := q.Order("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *schedules) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Schedule, error) {
	records := []*Schedule{}

	err := r.db.NewSelect().
		Model(&records).
		Relation("Room").
		Where("?TableAlias.user_id = ?", userID).
		Order("start_time ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *schedules) ListActiveForRoom(ctx context.Context, roomID uuid.UUID, from, to time.Time) ([]*Schedule, error) {
	return r.ListActiveForRoomTx(ctx, r.db, roomID, from, to)
}

// ListActiveForRoomTx returns non-cancelled schedules for the room whose
// window intersects [from, to). Cancelled schedules never block a slot.
func (r *schedules) ListActiveForRoomTx(ctx context.Context, tx bun.IDB, roomID uuid.UUID, from, to time.Time) ([]*Schedule, error) {
	records := []*Schedule{}

	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.room_id = ?", roomID).
		Where("?TableAlias.status != ?", ScheduleStatusCancelled).
		Where("?TableAlias.start_time < ?", to).
		Where("?TableAlias.end_time > ?", from).
		Order("start_time ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *schedules) Create(ctx context.Context, record *Schedule, criteria ...repository.InsertCriteria) (*Schedule, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *schedules) CreateTx(ctx context.Context, tx bun.IDB, record *Schedule, criteria ...repository.InsertCriteria) (*Schedule, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.Status == "" {
			record.Status = ScheduleStatusPending
		}
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *schedules) SetStatus(ctx context.Context, id uuid.UUID, status ScheduleStatus) (*Schedule, error) {
	record := &Schedule{
		ID:     id,
		Status: status,
	}
	return r.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}
