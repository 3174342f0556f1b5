package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// Slot is a bookable (date, time) pair resolved to an instant in the school's
// time zone.
type Slot struct {
	Date string          `json:"date"`
	Time models.TimeSlot `json:"time"`
	At   time.Time       `json:"at"`
}

// SlotResolver turns user input into a Slot, rejecting unknown times and
// anything in the past.
type SlotResolver struct {
	loc *time.Location
	now Clock
}

func NewSlotResolver(loc *time.Location, now Clock) *SlotResolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SlotResolver{loc: loc, now: now}
}

func (r *SlotResolver) Location() *time.Location { return r.loc }

func (r *SlotResolver) Resolve(date, timeOfDay string) (Slot, error) {
	slot, err := models.ParseTimeSlot(timeOfDay)
	if err != nil {
		return Slot{}, apperror.ErrInvalidSlot.WithMessage("%s", err.Error())
	}
	day, err := models.ParseDate(date, r.loc)
	if err != nil {
		return Slot{}, apperror.ErrInvalidSlot.WithMessage("date %q must look like YYYY-MM-DD", date)
	}

	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	if day.Before(today) {
		return Slot{}, apperror.ErrInvalidSlot.WithMessage("date %s is in the past", date)
	}
	at := slot.On(day, r.loc)
	if !at.After(now) {
		return Slot{}, apperror.ErrInvalidSlot.WithMessage("the %s slot on %s has already started", slot, date)
	}
	return Slot{Date: day.Format(models.DateLayout), Time: slot, At: at}, nil
}

type SearchFilter struct {
	Location     string              `query:"location"`
	Transmission models.Transmission `query:"transmission"`
	VerifiedOnly bool                `query:"verified_only"`
	// Exclude drops specific instructors, e.g. ones that just lost a race.
	Exclude []uuid.UUID `query:"-"`
}

// AvailabilityIndex answers "who can teach at this slot". It never writes.
type AvailabilityIndex struct {
	instructors repository.InstructorStore
	bookings    repository.BookingStore
	slots       *SlotResolver
}

func NewAvailabilityIndex(instructors repository.InstructorStore, bookings repository.BookingStore, slots *SlotResolver) *AvailabilityIndex {
	return &AvailabilityIndex{instructors: instructors, bookings: bookings, slots: slots}
}

// FindAvailable validates the slot and returns matching instructors in
// insertion order. No match is an empty slice, not an error.
func (a *AvailabilityIndex) FindAvailable(ctx context.Context, date, timeOfDay string, f SearchFilter) ([]models.Instructor, error) {
	slot, err := a.slots.Resolve(date, timeOfDay)
	if err != nil {
		return nil, err
	}
	return a.AvailableAt(ctx, slot.At, f)
}

// AvailableAt is FindAvailable for an already resolved instant.
func (a *AvailabilityIndex) AvailableAt(ctx context.Context, at time.Time, f SearchFilter) ([]models.Instructor, error) {
	candidates, err := a.instructors.ListAvailableInstructors(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	booked, err := a.bookings.ActiveInstructorsAt(ctx, at)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	blocked, err := a.instructors.BlockedInstructorsAt(ctx, at)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}

	skip := make(map[uuid.UUID]struct{}, len(booked)+len(blocked)+len(f.Exclude))
	for _, ids := range [][]uuid.UUID{booked, blocked, f.Exclude} {
		for _, id := range ids {
			skip[id] = struct{}{}
		}
	}

	out := make([]models.Instructor, 0, len(candidates))
	for _, in := range candidates {
		if !in.Available {
			continue
		}
		if _, taken := skip[in.ID]; taken {
			continue
		}
		if f.VerifiedOnly && !in.Verified {
			continue
		}
		if !in.Transmission.Serves(f.Transmission) {
			continue
		}
		if !ServesLocation(in.ServiceAreas, f.Location) {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

// Instructor loads one instructor for the details view.
func (a *AvailabilityIndex) Instructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	in, err := a.instructors.GetInstructor(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidInstructor
	}
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	return in, nil
}

// ServesLocation reports whether any service-area tag contains query, after
// trimming and Unicode case folding. An empty query matches everything.
func ServesLocation(areas []string, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(query)
	for _, area := range areas {
		if strings.Contains(fold.String(strings.TrimSpace(area)), needle) {
			return true
		}
	}
	return false
}
