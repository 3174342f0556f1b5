package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// ActiveStatuses hold a slot; at most one booking per instructor and instant
// may be in one of them.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed}

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// SourcesFor lists the statuses a booking may leave to reach target.
func SourcesFor(target BookingStatus) []BookingStatus {
	var out []BookingStatus
	for from, tos := range validTransitions {
		for _, to := range tos {
			if to == target {
				out = append(out, from)
			}
		}
	}
	return out
}

type Booking struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	StudentID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"student_id"`
	InstructorID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"instructor_id"`
	ScheduledAt     time.Time     `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	LessonKind      LessonKind    `gorm:"size:16;not null" json:"lesson_kind"`
	Status          BookingStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Location        string        `gorm:"size:255" json:"location"`
	Price           int64         `gorm:"not null" json:"price"`
	Currency        string        `gorm:"size:3" json:"currency"`
	PaymentRef      *string       `gorm:"size:255" json:"payment_ref,omitempty"`
	CancelReason    *string       `gorm:"type:text" json:"cancel_reason,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// BookingEventType names a ledger transition.
type BookingEventType string

const (
	EventCreated   BookingEventType = "created"
	EventConfirmed BookingEventType = "confirmed"
	EventCancelled BookingEventType = "cancelled"
	EventCompleted BookingEventType = "completed"
)

type BookingEvent struct {
	Type    BookingEventType
	Booking Booking
	At      time.Time
	Reason  string
}
