package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/google/uuid"
)

// BookingNotifier turns ledger events into messages for the student and the
// instructor of a booking.
type BookingNotifier struct {
	dispatcher  *Dispatcher
	users       repository.UserStore
	instructors repository.InstructorStore
}

func NewBookingNotifier(d *Dispatcher, users repository.UserStore, instructors repository.InstructorStore) *BookingNotifier {
	return &BookingNotifier{dispatcher: d, users: users, instructors: instructors}
}

func (n *BookingNotifier) HandleBookingEvent(ctx context.Context, ev models.BookingEvent) error {
	var send func(Recipient, models.Booking) models.Message
	switch ev.Type {
	case models.EventConfirmed:
		send = n.dispatcher.SendConfirmation
	case models.EventCancelled:
		send = n.dispatcher.SendCancellation
	default:
		return nil
	}
	return n.notifyParties(ctx, ev.Booking, send)
}

// Remind sends the pre-lesson reminder to both parties.
func (n *BookingNotifier) Remind(ctx context.Context, b models.Booking) error {
	return n.notifyParties(ctx, b, n.dispatcher.SendReminder)
}

func (n *BookingNotifier) notifyParties(ctx context.Context, b models.Booking, send func(Recipient, models.Booking) models.Message) error {
	var errs []error
	if student, err := n.student(ctx, b.StudentID); err != nil {
		errs = append(errs, err)
	} else {
		send(student, b)
	}
	if instructor, err := n.instructor(ctx, b.InstructorID); err != nil {
		errs = append(errs, err)
	} else {
		send(instructor, b)
	}
	return errors.Join(errs...)
}

func (n *BookingNotifier) student(ctx context.Context, id uuid.UUID) (Recipient, error) {
	u, err := n.users.GetUser(ctx, id)
	if err != nil {
		return Recipient{}, fmt.Errorf("look up student %s: %w", id, err)
	}
	return Recipient{ID: u.ID.String(), Name: u.FullName, Email: u.Email}, nil
}

func (n *BookingNotifier) instructor(ctx context.Context, id uuid.UUID) (Recipient, error) {
	in, err := n.instructors.GetInstructor(ctx, id)
	if err != nil {
		return Recipient{}, fmt.Errorf("look up instructor %s: %w", id, err)
	}
	return Recipient{ID: in.ID.String(), Name: in.FullName, Email: in.Email}, nil
}
