package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/locks"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ledgerTracer = otel.Tracer("drivebook.services.ledger")

const (
	DefaultPendingTTL = 15 * time.Minute
	lockWait          = 3 * time.Second

	ReasonExpired         = "reservation expired before payment completed"
	ReasonPaymentDeclined = "payment declined"
	ReasonPaymentTimeout  = "payment timed out"
	ReasonCardInvalid     = "card details rejected"
)

// EventSink receives every successful ledger transition. Errors are logged
// and never undo the transition.
type EventSink interface {
	HandleBookingEvent(ctx context.Context, ev models.BookingEvent) error
}

type EventSinkFunc func(ctx context.Context, ev models.BookingEvent) error

func (f EventSinkFunc) HandleBookingEvent(ctx context.Context, ev models.BookingEvent) error {
	return f(ctx, ev)
}

type ReserveRequest struct {
	StudentID    uuid.UUID
	InstructorID uuid.UUID
	Date         string
	Time         string
	LessonKind   models.LessonKind
	Location     string
}

type LedgerConfig struct {
	Store      repository.Store
	Slots      *SlotResolver
	Locker     locks.SlotLocker
	IDs        utils.IDAllocator
	Now        Clock
	PendingTTL time.Duration
}

// Ledger owns the booking lifecycle and the one-active-booking-per-slot rule.
type Ledger struct {
	store      repository.Store
	slots      *SlotResolver
	locker     locks.SlotLocker
	ids        utils.IDAllocator
	now        Clock
	pendingTTL time.Duration

	mu     sync.RWMutex
	sinks  []subscription
	nextID int
}

type subscription struct {
	id   int
	sink EventSink
}

func NewLedger(cfg LedgerConfig) *Ledger {
	l := &Ledger{
		store:      cfg.Store,
		slots:      cfg.Slots,
		locker:     cfg.Locker,
		ids:        cfg.IDs,
		now:        cfg.Now,
		pendingTTL: cfg.PendingTTL,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.slots == nil {
		l.slots = NewSlotResolver(time.UTC, l.now)
	}
	if l.locker == nil {
		l.locker = locks.NewMemoryLocker()
	}
	if l.ids == nil {
		l.ids = utils.UUIDAllocator{}
	}
	if l.pendingTTL <= 0 {
		l.pendingTTL = DefaultPendingTTL
	}
	return l
}

// Subscribe registers sink and returns a func that removes it again.
func (l *Ledger) Subscribe(sink EventSink) (unsubscribe func()) {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.sinks = append(l.sinks, subscription{id: id, sink: sink})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.sinks {
				if s.id == id {
					l.sinks = append(l.sinks[:i:i], l.sinks[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest) (_ *models.Booking, err error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.reserve")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("drivebook.student_id", req.StudentID.String()),
		attribute.String("drivebook.instructor_id", req.InstructorID.String()),
		attribute.String("drivebook.slot", req.Date+" "+req.Time),
	)

	slot, err := l.slots.Resolve(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if _, err := l.store.GetUser(ctx, req.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrInvalidStudent
		}
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	in, err := l.store.GetInstructor(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrInvalidInstructor
		}
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	if !in.Available {
		return nil, apperror.ErrInvalidInstructor.WithMessage("instructor is not taking bookings")
	}
	quote, err := QuoteLesson(in, req.LessonKind)
	if err != nil {
		return nil, err
	}

	blocked, err := l.store.BlockedInstructorsAt(ctx, slot.At)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	for _, id := range blocked {
		if id == in.ID {
			return nil, apperror.ErrSlotAlreadyTaken.WithMessage("instructor is not available for this slot")
		}
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	unlock, err := l.locker.Lock(lockCtx, locks.SlotKey(in.ID, slot.At))
	if err != nil {
		if errors.Is(err, locks.ErrBusy) {
			return nil, apperror.ErrSlotAlreadyTaken.Wrap(err)
		}
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	defer unlock()

	b := &models.Booking{
		ID:              l.ids.NewID(),
		StudentID:       req.StudentID,
		InstructorID:    in.ID,
		ScheduledAt:     slot.At.UTC(),
		DurationMinutes: quote.DurationMinutes,
		LessonKind:      quote.LessonKind,
		Status:          models.StatusPending,
		Location:        req.Location,
		Price:           quote.Amount,
		Currency:        quote.Currency,
	}
	if err := l.store.InsertIfSlotFree(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, apperror.ErrSlotAlreadyTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrInvalidInstructor
		}
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	span.SetAttributes(attribute.String("drivebook.booking_id", b.ID.String()))

	log.Info().
		Str("booking_id", b.ID.String()).
		Str("instructor_id", in.ID.String()).
		Time("scheduled_at", b.ScheduledAt).
		Msg("✅ Slot reserved")
	l.emit(ctx, models.EventCreated, b, "")
	return b, nil
}

func (l *Ledger) Confirm(ctx context.Context, id uuid.UUID, paymentRef string) (_ *models.Booking, err error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.confirm", trace.WithAttributes(attribute.String("drivebook.booking_id", id.String())))
	defer func() { endSpan(span, err) }()

	ref := paymentRef
	return l.transition(ctx, repository.StatusChange{ID: id, To: models.StatusConfirmed, Ref: &ref}, "")
}

func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID, reason string) (_ *models.Booking, err error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.cancel", trace.WithAttributes(attribute.String("drivebook.booking_id", id.String())))
	defer func() { endSpan(span, err) }()

	change := repository.StatusChange{ID: id, To: models.StatusCancelled}
	if reason != "" {
		change.Reason = &reason
	}
	return l.transition(ctx, change, reason)
}

// CancelFor is a cancellation requested by a person: students and instructors
// may only cancel their own bookings, and only before the lesson starts.
func (l *Ledger) CancelFor(ctx context.Context, id, userID uuid.UUID, role models.Role, reason string) (*models.Booking, error) {
	b, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case models.RoleStudent:
		if b.StudentID != userID {
			return nil, apperror.ErrForbidden
		}
	case models.RoleInstructor:
		if b.InstructorID != userID {
			return nil, apperror.ErrForbidden
		}
	case models.RoleAdmin:
	default:
		return nil, apperror.ErrForbidden
	}
	if b.Status == models.StatusConfirmed && !l.now().Before(b.ScheduledAt) {
		return nil, apperror.ErrInvalidTransition.WithMessage("lesson has already started")
	}
	return l.Cancel(ctx, id, reason)
}

// Complete closes a confirmed lesson once its end time has passed.
func (l *Ledger) Complete(ctx context.Context, id uuid.UUID) (_ *models.Booking, err error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.complete", trace.WithAttributes(attribute.String("drivebook.booking_id", id.String())))
	defer func() { endSpan(span, err) }()

	b, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == models.StatusConfirmed && l.now().Before(b.EndsAt()) {
		return nil, apperror.ErrInvalidTransition.WithMessage("lesson has not finished yet")
	}
	return l.transition(ctx, repository.StatusChange{ID: id, To: models.StatusCompleted}, "")
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := l.store.GetBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrBookingNotFound
	}
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	return b, nil
}

// ListFor returns every booking the user takes part in as role.
func (l *Ledger) ListFor(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Booking, error) {
	var (
		out []models.Booking
		err error
	)
	switch role {
	case models.RoleStudent:
		out, err = l.store.ListByStudent(ctx, userID)
	case models.RoleInstructor:
		out, err = l.store.ListByInstructor(ctx, userID)
	default:
		return nil, apperror.ErrForbidden.WithMessage("bookings are listed for students or instructors")
	}
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}
	if out == nil {
		out = []models.Booking{}
	}
	return out, nil
}

// ExpireStale cancels PENDING bookings older than the pending TTL and
// returns how many it released.
func (l *Ledger) ExpireStale(ctx context.Context) (int, error) {
	stale, err := l.store.PendingCreatedBefore(ctx, l.now().Add(-l.pendingTTL))
	if err != nil {
		return 0, apperror.ErrStoreUnavailable.Wrap(err)
	}
	n := 0
	for _, b := range stale {
		if _, err := l.Cancel(ctx, b.ID, ReasonExpired); err != nil {
			// confirmed or cancelled since the query ran
			if errors.Is(err, apperror.ErrInvalidTransition) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// CompleteFinished completes confirmed lessons whose end time has passed.
func (l *Ledger) CompleteFinished(ctx context.Context) (int, error) {
	now := l.now()
	started, err := l.store.ConfirmedStartedBefore(ctx, now)
	if err != nil {
		return 0, apperror.ErrStoreUnavailable.Wrap(err)
	}
	n := 0
	for _, b := range started {
		if now.Before(b.EndsAt()) {
			continue
		}
		if _, err := l.Complete(ctx, b.ID); err != nil {
			if errors.Is(err, apperror.ErrInvalidTransition) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

func (l *Ledger) transition(ctx context.Context, change repository.StatusChange, reason string) (*models.Booking, error) {
	change.From = models.SourcesFor(change.To)
	change.At = l.now()

	b, err := l.store.TransitionStatus(ctx, change)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.ErrBookingNotFound
	case errors.Is(err, repository.ErrStatusMismatch):
		if cur, getErr := l.store.GetBooking(ctx, change.ID); getErr == nil {
			return nil, apperror.ErrInvalidTransition.WithMessage("booking is %s and cannot become %s", cur.Status, change.To)
		}
		return nil, apperror.ErrInvalidTransition
	case err != nil:
		return nil, apperror.ErrStoreUnavailable.Wrap(err)
	}

	log.Info().
		Str("booking_id", b.ID.String()).
		Str("status", string(b.Status)).
		Msg("✅ Booking status updated")
	l.emit(ctx, eventFor(b.Status), b, reason)
	return b, nil
}

func (l *Ledger) emit(ctx context.Context, typ models.BookingEventType, b *models.Booking, reason string) {
	l.mu.RLock()
	sinks := make([]EventSink, 0, len(l.sinks))
	for _, s := range l.sinks {
		sinks = append(sinks, s.sink)
	}
	l.mu.RUnlock()

	ev := models.BookingEvent{Type: typ, Booking: *b, At: l.now(), Reason: reason}
	ctx = context.WithoutCancel(ctx)
	for _, sink := range sinks {
		if err := sink.HandleBookingEvent(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("booking_id", b.ID.String()).
				Str("event", string(typ)).
				Msg("🔥 Booking event sink failed")
		}
	}
}

func eventFor(s models.BookingStatus) models.BookingEventType {
	switch s {
	case models.StatusConfirmed:
		return models.EventConfirmed
	case models.StatusCancelled:
		return models.EventCancelled
	case models.StatusCompleted:
		return models.EventCompleted
	}
	return models.EventCreated
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
