package booking

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/classtrack/go-classtrack"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Rooms() Rooms
	Schedules() Schedules
	Messages() Messages
	Profiles() classtrack.Profiles
}

type mngr struct {
	db        *bun.DB
	rooms     Rooms
	schedules Schedules
	messages  Messages
	profiles  classtrack.Profiles
}

// ManagerOption customizes RepositoryManager construction.
type ManagerOption func(*mngr)

// WithProfiles shares an existing profiles repository instead of opening a
// second one on the same database.
func WithProfiles(profiles classtrack.Profiles) ManagerOption {
	return func(m *mngr) {
		if profiles != nil {
			m.profiles = profiles
		}
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:        db,
		rooms:     NewRoomsRepository(db),
		schedules: NewSchedulesRepository(db),
		messages:  NewMessagesRepository(db),
		profiles:  classtrack.NewProfilesRepository(db),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m mngr) Validate() error {
	if m.rooms == nil {
		return errors.New("repository rooms should be initialized")
	}

	if m.schedules == nil {
		return errors.New("repository schedules should be initialized")
	}

	if m.messages == nil {
		return errors.New("repository messages should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Rooms() Rooms {
	return m.rooms
}

func (m mngr) Schedules() Schedules {
	return m.schedules
}

func (m mngr) Messages() Messages {
	return m.messages
}

func (m mngr) Profiles() classtrack.Profiles {
	return m.profiles
}
