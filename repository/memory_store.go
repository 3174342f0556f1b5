package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/google/uuid"
)

type slotKey struct {
	instructor uuid.UUID
	at         int64
}

func keyFor(instructorID uuid.UUID, at time.Time) slotKey {
	return slotKey{instructor: instructorID, at: at.UTC().UnixNano()}
}

// MemoryStore keeps everything in process. A single mutex makes the
// insert-if-free check indivisible, which is enough for one process; run the
// Postgres store when several processes serve the ledger.
type MemoryStore struct {
	mu sync.RWMutex

	instructors     map[uuid.UUID]*models.Instructor
	instructorOrder []uuid.UUID
	blocked         map[slotKey]models.BlockedSlot

	bookings     map[uuid.UUID]*models.Booking
	bookingOrder []uuid.UUID
	active       map[slotKey]uuid.UUID

	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instructors: make(map[uuid.UUID]*models.Instructor),
		blocked:     make(map[slotKey]models.BlockedSlot),
		bookings:    make(map[uuid.UUID]*models.Booking),
		active:      make(map[slotKey]uuid.UUID),
		users:       make(map[uuid.UUID]*models.User),
		byEmail:     make(map[string]uuid.UUID),
		now:         time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateInstructor(_ context.Context, in *models.Instructor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instructors[in.ID]; ok {
		return ErrDuplicate
	}
	now := s.now()
	in.CreatedAt, in.UpdatedAt = now, now
	cp := cloneInstructor(*in)
	s.instructors[in.ID] = &cp
	s.instructorOrder = append(s.instructorOrder, in.ID)
	return nil
}

func (s *MemoryStore) SaveInstructor(_ context.Context, in *models.Instructor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instructors[in.ID]; !ok {
		return ErrNotFound
	}
	in.UpdatedAt = s.now()
	cp := cloneInstructor(*in)
	s.instructors[in.ID] = &cp
	return nil
}

func (s *MemoryStore) GetInstructor(_ context.Context, id uuid.UUID) (*models.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.instructors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneInstructor(*in)
	return &cp, nil
}

func (s *MemoryStore) ListAvailableInstructors(context.Context) ([]models.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Instructor
	for _, id := range s.instructorOrder {
		if in := s.instructors[id]; in.Available {
			out = append(out, cloneInstructor(*in))
		}
	}
	return out, nil
}

func (s *MemoryStore) BlockSlot(_ context.Context, b *models.BlockedSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyFor(b.InstructorID, b.StartsAt)
	if _, ok := s.blocked[k]; ok {
		return ErrDuplicate
	}
	b.CreatedAt = s.now()
	s.blocked[k] = *b
	return nil
}

func (s *MemoryStore) UnblockSlot(_ context.Context, instructorID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyFor(instructorID, at)
	if _, ok := s.blocked[k]; !ok {
		return ErrNotFound
	}
	delete(s.blocked, k)
	return nil
}

func (s *MemoryStore) BlockedInstructorsAt(_ context.Context, at time.Time) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for k, b := range s.blocked {
		if k.at == at.UTC().UnixNano() {
			out = append(out, b.InstructorID)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertIfSlotFree(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyFor(b.InstructorID, b.ScheduledAt)
	if _, taken := s.active[k]; taken {
		return ErrSlotTaken
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.bookings[b.ID] = &cp
	s.bookingOrder = append(s.bookingOrder, b.ID)
	if b.Status.IsActive() {
		s.active[k] = b.ID
	}
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, c StatusChange) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[c.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(b.Status, c.From) {
		return nil, ErrStatusMismatch
	}
	applyChange(b, c)
	b.UpdatedAt = s.now()
	if !b.Status.IsActive() {
		k := keyFor(b.InstructorID, b.ScheduledAt)
		if s.active[k] == b.ID {
			delete(s.active, k)
		}
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListByStudent(_ context.Context, studentID uuid.UUID) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool { return b.StudentID == studentID }), nil
}

func (s *MemoryStore) ListByInstructor(_ context.Context, instructorID uuid.UUID) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool { return b.InstructorID == instructorID }), nil
}

func (s *MemoryStore) ActiveInstructorsAt(_ context.Context, at time.Time) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for k := range s.active {
		if k.at == at.UTC().UnixNano() {
			out = append(out, k.instructor)
		}
	}
	return out, nil
}

func (s *MemoryStore) PendingCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool {
		return b.Status == models.StatusPending && b.CreatedAt.Before(cutoff)
	}), nil
}

func (s *MemoryStore) ConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool {
		return b.Status == models.StatusConfirmed && !b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to)
	}), nil
}

func (s *MemoryStore) ConfirmedStartedBefore(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool {
		return b.Status == models.StatusConfirmed && b.ScheduledAt.Before(cutoff)
	}), nil
}

func (s *MemoryStore) filterBookings(keep func(*models.Booking) bool) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, id := range s.bookingOrder {
		if b := s.bookings[id]; keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrDuplicate
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// SetClock overrides the timestamp source; tests use it to age records.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func statusIn(s models.BookingStatus, set []models.BookingStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func applyChange(b *models.Booking, c StatusChange) {
	b.Status = c.To
	at := c.At
	switch c.To {
	case models.StatusConfirmed:
		b.ConfirmedAt = &at
		b.PaymentRef = c.Ref
	case models.StatusCancelled:
		b.CancelledAt = &at
		b.CancelReason = c.Reason
	case models.StatusCompleted:
		b.CompletedAt = &at
	}
}

func cloneInstructor(in models.Instructor) models.Instructor {
	in.ServiceAreas = append([]string(nil), in.ServiceAreas...)
	return in
}
