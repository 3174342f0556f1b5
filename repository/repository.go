package repository

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned by InsertIfSlotFree when another active booking
	// already holds the instructor and instant.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStatusMismatch is returned by TransitionStatus when the booking is not
	// in any of the expected source statuses.
	ErrStatusMismatch = errors.New("booking status changed")
	ErrDuplicate      = errors.New("duplicate record")
)

type InstructorStore interface {
	CreateInstructor(ctx context.Context, in *models.Instructor) error
	SaveInstructor(ctx context.Context, in *models.Instructor) error
	GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error)
	// ListAvailableInstructors returns instructors with Available=true in
	// insertion order.
	ListAvailableInstructors(ctx context.Context) ([]models.Instructor, error)

	BlockSlot(ctx context.Context, b *models.BlockedSlot) error
	UnblockSlot(ctx context.Context, instructorID uuid.UUID, at time.Time) error
	BlockedInstructorsAt(ctx context.Context, at time.Time) ([]uuid.UUID, error)
}

// StatusChange describes a compare-and-set status update.
type StatusChange struct {
	ID     uuid.UUID
	From   []models.BookingStatus
	To     models.BookingStatus
	At     time.Time
	Reason *string
	Ref    *string
}

type BookingStore interface {
	// InsertIfSlotFree atomically creates b iff no PENDING/CONFIRMED booking
	// exists for (b.InstructorID, b.ScheduledAt); otherwise ErrSlotTaken.
	InsertIfSlotFree(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// TransitionStatus applies c only if the booking is currently in one of
	// c.From; otherwise ErrStatusMismatch and nothing changes.
	TransitionStatus(ctx context.Context, c StatusChange) (*models.Booking, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Booking, error)
	ListByInstructor(ctx context.Context, instructorID uuid.UUID) ([]models.Booking, error)
	ActiveInstructorsAt(ctx context.Context, at time.Time) ([]uuid.UUID, error)
	PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ConfirmedStartedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store bundles every collection plus a liveness probe.
type Store interface {
	InstructorStore
	BookingStore
	UserStore
	Ping(ctx context.Context) error
}
