// Package booking implements the classroom inventory, scheduling, and chat
// features behind the ClassTrack dashboards. All authorization decisions are
// made against the session manager's current-user view model, never against
// raw request data.
package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/classtrack/go-classtrack"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrScheduleConflict is returned when a reservation overlaps an active one
// for the same room.
var ErrScheduleConflict = goerrors.New("room is already booked for this time", goerrors.CategoryConflict).
	WithTextCode("SCHEDULE_CONFLICT").
	WithCode(goerrors.CodeConflict)

// ErrForbidden is returned when the actor lacks the required role or does not
// own the record.
var ErrForbidden = goerrors.New("operation not allowed", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN").
	WithCode(goerrors.CodeForbidden)

// ErrNotFound is returned when the referenced record does not exist.
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode("RECORD_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// Service is the booking domain facade consumed by the HTTP layer.
type Service struct {
	repo   RepositoryManager
	logger classtrack.Logger
	now    func() time.Time
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithServiceLogger overrides the default logger.
func WithServiceLogger(logger classtrack.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock injects a custom clock, used by tests.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewService builds the booking service on top of the repository manager.
func NewService(repo RepositoryManager, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: nopLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.repo.MustValidate()

	return s
}

// SearchRooms lists rooms filtered by a substring query.
func (s *Service) SearchRooms(ctx context.Context, query string) ([]*Room, error) {
	return s.repo.Rooms().Search(ctx, query)
}

// CreateRoomRequest is the admin room form.
type CreateRoomRequest struct {
	Name          string `form:"name" json:"name"`
	Building      string `form:"building" json:"building"`
	Floor         int    `form:"floor" json:"floor"`
	RoomNumber    string `form:"room_number" json:"room_number"`
	Capacity      int    `form:"capacity" json:"capacity"`
	HasProjector  bool   `form:"has_projector" json:"has_projector"`
	HasWhiteboard bool   `form:"has_whiteboard" json:"has_whiteboard"`
}

// Validate will validate the payload
func (r CreateRoomRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Building, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.RoomNumber, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Capacity, validation.Required, validation.Min(1)),
	)
}

// CreateRoom adds a room to the inventory. Admin only.
func (s *Service) CreateRoom(ctx context.Context, actor *classtrack.CurrentUser, req CreateRoomRequest) (*Room, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid room").
			WithCode(goerrors.CodeBadRequest)
	}

	room := &Room{
		Name:          req.Name,
		Building:      req.Building,
		Floor:         req.Floor,
		RoomNumber:    req.RoomNumber,
		Capacity:      req.Capacity,
		HasProjector:  req.HasProjector,
		HasWhiteboard: req.HasWhiteboard,
	}

	created, err := s.repo.Rooms().Create(ctx, room)
	if err != nil {
		return nil, err
	}

	s.logger.Info("room created id=%s name=%s actor=%s", created.ID, created.Name, actor.ID)

	return created, nil
}

// DeleteRoom soft-deletes a room. Admin only.
func (s *Service) DeleteRoom(ctx context.Context, actor *classtrack.CurrentUser, roomID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	room, err := s.repo.Rooms().GetByID(ctx, roomID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	return s.repo.Rooms().Delete(ctx, room)
}

// CreateScheduleRequest is the reservation form.
type CreateScheduleRequest struct {
	RoomID      uuid.UUID `form:"room_id" json:"room_id"`
	Title       string    `form:"title" json:"title"`
	Description string    `form:"description" json:"description"`
	StartTime   time.Time `form:"start_time" json:"start_time"`
	EndTime     time.Time `form:"end_time" json:"end_time"`
}

// Validate will validate the payload
func (r CreateScheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

// CreateSchedule books a room for the actor. The overlap check and the insert
// run in one transaction so two racing requests cannot both win the slot.
func (s *Service) CreateSchedule(ctx context.Context, actor *classtrack.CurrentUser, req CreateScheduleRequest) (*Schedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid schedule").
			WithCode(goerrors.CodeBadRequest)
	}

	if !req.StartTime.Before(req.EndTime) {
		return nil, goerrors.New("start time must be before end time", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if req.EndTime.Before(s.now()) {
		return nil, goerrors.New("cannot book a room in the past", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, ErrForbidden
	}

	schedule := &Schedule{
		RoomID:      req.RoomID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      ScheduleStatusPending,
	}

	err = s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, lookupErr := s.repo.Rooms().GetByID(ctx, req.RoomID.String()); lookupErr != nil {
			if repository.IsRecordNotFound(lookupErr) {
				return ErrNotFound
			}
			return lookupErr
		}

		active, listErr := s.repo.Schedules().ListActiveForRoomTx(ctx, tx, req.RoomID, req.StartTime, req.EndTime)
		if listErr != nil {
			return listErr
		}
		if len(active) > 0 {
			return ErrScheduleConflict
		}

		_, createErr := s.repo.Schedules().CreateTx(ctx, tx, schedule)
		return createErr
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule created id=%s room=%s user=%s", schedule.ID, schedule.RoomID, schedule.UserID)

	return schedule, nil
}

// CancelSchedule marks a reservation cancelled. Owners may cancel their own;
// admins may cancel any.
func (s *Service) CancelSchedule(ctx context.Context, actor *classtrack.CurrentUser, scheduleID uuid.UUID) (*Schedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	schedule, err := s.repo.Schedules().GetByID(ctx, scheduleID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if schedule.UserID.String() != actor.ID && !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}

	return s.repo.Schedules().SetStatus(ctx, scheduleID, ScheduleStatusCancelled)
}

// ConfirmSchedule moves a pending reservation to confirmed. Admin only.
func (s *Service) ConfirmSchedule(ctx context.Context, actor *classtrack.CurrentUser, scheduleID uuid.UUID) (*Schedule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if _, err := s.repo.Schedules().GetByID(ctx, scheduleID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.repo.Schedules().SetStatus(ctx, scheduleID, ScheduleStatusConfirmed)
}

// SearchSchedules lists schedules filtered by a substring query. Admin only,
// this backs the admin schedule overview.
func (s *Service) SearchSchedules(ctx context.Context, actor *classtrack.CurrentUser, query string) ([]*Schedule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.Schedules().Search(ctx, query)
}

// MySchedules lists the actor's own reservations.
func (s *Service) MySchedules(ctx context.Context, actor *classtrack.CurrentUser) ([]*Schedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, ErrForbidden
	}

	return s.repo.Schedules().ListByUser(ctx, userID)
}

// SendMessageRequest is the chat composer payload.
type SendMessageRequest struct {
	RecipientID uuid.UUID `form:"recipient_id" json:"recipient_id"`
	Content     string    `form:"content" json:"content"`
}

// Validate will validate the payload
func (r SendMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 4000)),
	)
}

// SendMessage appends a chat message from the actor to the recipient.
func (s *Service) SendMessage(ctx context.Context, actor *classtrack.CurrentUser, req SendMessageRequest) (*Message, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid message").
			WithCode(goerrors.CodeBadRequest)
	}

	senderID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, ErrForbidden
	}

	if senderID == req.RecipientID {
		return nil, goerrors.New("cannot message yourself", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	message := &Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}

	return s.repo.Messages().Create(ctx, message)
}

// Conversation returns the history between the actor and the other user and
// marks the other side's messages read.
func (s *Service) Conversation(ctx context.Context, actor *classtrack.CurrentUser, otherID uuid.UUID) ([]*Message, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	actorID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, ErrForbidden
	}

	history, err := s.repo.Messages().Conversation(ctx, actorID, otherID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Messages().MarkRead(ctx, actorID, otherID); err != nil {
		s.logger.Warn("failed to mark conversation read actor=%s other=%s error=%v", actorID, otherID, err)
	}

	return history, nil
}

// UnreadCount returns how many messages are waiting for the actor.
func (s *Service) UnreadCount(ctx context.Context, actor *classtrack.CurrentUser) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}

	actorID, err := uuid.Parse(actor.ID)
	if err != nil {
		return 0, ErrForbidden
	}

	return s.repo.Messages().UnreadCount(ctx, actorID)
}

// SearchProfiles lists user profiles for the admin user screen.
func (s *Service) SearchProfiles(ctx context.Context, actor *classtrack.CurrentUser, query string) ([]*classtrack.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.Profiles().Search(ctx, query)
}

// ApproveProfile moves a pending profile to approved. Admin only.
func (s *Service) ApproveProfile(ctx context.Context, actor *classtrack.CurrentUser, profileID uuid.UUID) (*classtrack.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	profile, err := s.repo.Profiles().GetByID(ctx, profileID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.repo.Profiles().Approve(ctx, actorRef(actor), profile)
}

// SuspendProfile suspends an approved profile. Admin only.
func (s *Service) SuspendProfile(ctx context.Context, actor *classtrack.CurrentUser, profileID uuid.UUID, reason string) (*classtrack.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	profile, err := s.repo.Profiles().GetByID(ctx, profileID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.repo.Profiles().Suspend(ctx, actorRef(actor), profile,
		classtrack.WithTransitionReason(reason))
}

func requireActor(actor *classtrack.CurrentUser) error {
	if actor == nil {
		return ErrForbidden
	}
	return nil
}

func requireAdmin(actor *classtrack.CurrentUser) error {
	if actor == nil || !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func actorRef(actor *classtrack.CurrentUser) classtrack.ActorRef {
	return classtrack.ActorRef{ID: actor.ID, Type: "admin"}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

func (nopLogger) Info(string, ...any) {}

func (nopLogger) Warn(string, ...any) {}

func (nopLogger) Error(string, ...any) {}
