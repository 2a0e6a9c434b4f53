package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ScheduleStatus tracks the lifecycle of a room reservation.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusConfirmed ScheduleStatus = "confirmed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Active reports whether the schedule still occupies its room slot.
func (s ScheduleStatus) Active() bool {
	return s != ScheduleStatusCancelled
}

// Room is a bookable classroom.
type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:rom"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Building      string     `bun:"building,notnull" json:"building,omitempty"`
	Floor         int        `bun:"floor,notnull" json:"floor"`
	RoomNumber    string     `bun:"room_number,notnull" json:"room_number,omitempty"`
	Capacity      int        `bun:"capacity,notnull" json:"capacity"`
	HasProjector  bool       `bun:"has_projector" json:"has_projector"`
	HasWhiteboard bool       `bun:"has_whiteboard" json:"has_whiteboard"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Schedule is a reservation of a room for a time window.
type Schedule struct {
	bun.BaseModel `bun:"table:schedules,alias:sch"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RoomID        uuid.UUID      `bun:"room_id,notnull,type:uuid" json:"room_id,omitempty"`
	UserID        uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Title         string         `bun:"title,notnull" json:"title,omitempty"`
	Description   string         `bun:"description" json:"description,omitempty"`
	StartTime     time.Time      `bun:"start_time,notnull" json:"start_time"`
	EndTime       time.Time      `bun:"end_time,notnull" json:"end_time"`
	Status        ScheduleStatus `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	Room *Room `bun:"rel:belongs-to,join:room_id=id" json:"room,omitempty"`
}

// Overlaps reports whether two half-open time windows intersect.
func (s *Schedule) Overlaps(start, end time.Time) bool {
	if s == nil {
		return false
	}
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// Message is one entry in the user-to-user chat.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:msg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SenderID      uuid.UUID  `bun:"sender_id,notnull,type:uuid" json:"sender_id,omitempty"`
	RecipientID   uuid.UUID  `bun:"recipient_id,notnull,type:uuid" json:"recipient_id,omitempty"`
	Content       string     `bun:"content,notnull" json:"content,omitempty"`
	IsRead        bool       `bun:"is_read" json:"is_read"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
