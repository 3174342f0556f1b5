package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/payments"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (r *recordingSink) HandleBookingEvent(_ context.Context, ev models.BookingEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) types() []models.BookingEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.BookingEventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type gatewayFunc func(ctx context.Context, amount int64, currency string, card payments.CardDetails) (payments.Authorization, error)

func (f gatewayFunc) Authorize(ctx context.Context, amount int64, currency string, card payments.CardDetails) (payments.Authorization, error) {
	return f(ctx, amount, currency, card)
}

// flakyStore fails booking inserts while down is set.
type flakyStore struct {
	*repository.MemoryStore
	mu   sync.Mutex
	down bool
}

func (s *flakyStore) setDown(v bool) {
	s.mu.Lock()
	s.down = v
	s.mu.Unlock()
}

func (s *flakyStore) InsertIfSlotFree(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return errors.New("dial tcp 127.0.0.1:5432: connection refused")
	}
	return s.MemoryStore.InsertIfSlotFree(ctx, b)
}

var (
	goodCard     = payments.CardDetails{Number: "4242 4242 4242 4242", HolderName: "Sam Student", ExpMonth: 12, ExpYear: 2030, CVV: "123"}
	declinedCard = payments.CardDetails{Number: "4242 4242 4242 4242", HolderName: "Sam Student", ExpMonth: 12, ExpYear: 2030, CVV: "000"}
)

const (
	lessonDate = "2025-03-01"
	lessonTime = "10:00 AM"
)

type fixture struct {
	loc    *time.Location
	clock  *testClock
	store  *flakyStore
	slots  *SlotResolver
	index  *AvailabilityIndex
	ledger *Ledger
	flow   *FlowController
	sink   *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2025, 2, 20, 9, 0, 0, 0, loc)}
	mem := repository.NewMemoryStore()
	mem.SetClock(clock.Now)
	store := &flakyStore{MemoryStore: mem}

	slots := NewSlotResolver(loc, clock.Now)
	index := NewAvailabilityIndex(store, store, slots)
	ledger := NewLedger(LedgerConfig{Store: store, Slots: slots, Now: clock.Now, PendingTTL: 15 * time.Minute})
	sink := &recordingSink{}
	ledger.Subscribe(sink)

	flow := NewFlowController(FlowConfig{
		Index:          index,
		Ledger:         ledger,
		Gateway:        payments.NewSimulatedGateway(0, 0),
		PaymentTimeout: time.Second,
		SessionTTL:     30 * time.Minute,
		Now:            clock.Now,
	})

	return &fixture{loc: loc, clock: clock, store: store, slots: slots, index: index, ledger: ledger, flow: flow, sink: sink}
}

func (f *fixture) addInstructor(t *testing.T, name string, rate int64, tr models.Transmission, areas ...string) *models.Instructor {
	t.Helper()
	in := &models.Instructor{
		ID:           uuid.New(),
		FullName:     name,
		Email:        name + "@drivebook.test",
		PricePerHour: rate,
		Currency:     "AUD",
		Transmission: tr,
		ServiceAreas: areas,
		Verified:     true,
		Available:    true,
	}
	require.NoError(t, f.store.CreateInstructor(context.Background(), in))
	return in
}

func (f *fixture) addStudent(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), FullName: name, Email: name + "@student.test", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) reserve(studentID, instructorID uuid.UUID, kind models.LessonKind) (*models.Booking, error) {
	return f.ledger.Reserve(context.Background(), ReserveRequest{
		StudentID:    studentID,
		InstructorID: instructorID,
		Date:         lessonDate,
		Time:         lessonTime,
		LessonKind:   kind,
		Location:     "Bondi",
	})
}

func ids(list []models.Instructor) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, in := range list {
		out = append(out, in.ID)
	}
	return out
}
