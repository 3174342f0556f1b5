package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/payments"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var flowTracer = otel.Tracer("drivebook.services.flow")

type Stage string

const (
	StageSchedule Stage = "SCHEDULE"
	StageSearch   Stage = "SEARCH"
	StageCheckout Stage = "CHECKOUT"
	StageSuccess  Stage = "SUCCESS"
)

const DefaultFlowSessionTTL = 30 * time.Minute

// FlowError is the last recoverable failure shown to the student.
type FlowError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FlowSession is a snapshot of one student's progress through the booking
// screens.
type FlowSession struct {
	ID         uuid.UUID           `json:"id"`
	StudentID  uuid.UUID           `json:"student_id"`
	Stage      Stage               `json:"stage"`
	Slot       *Slot               `json:"slot,omitempty"`
	Filter     SearchFilter        `json:"filter"`
	Candidates []models.Instructor `json:"candidates,omitempty"`
	Excluded   []uuid.UUID         `json:"excluded,omitempty"`
	Instructor *models.Instructor  `json:"instructor,omitempty"`
	LessonKind models.LessonKind   `json:"lesson_kind,omitempty"`
	Location   string              `json:"location,omitempty"`
	Quote      *models.Quote       `json:"quote,omitempty"`
	Booking    *models.Booking     `json:"booking,omitempty"`
	LastError  *FlowError          `json:"last_error,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (s FlowSession) clone() FlowSession {
	s.Candidates = append([]models.Instructor(nil), s.Candidates...)
	s.Excluded = append([]uuid.UUID(nil), s.Excluded...)
	s.Filter.Exclude = append([]uuid.UUID(nil), s.Filter.Exclude...)
	return s
}

type InstructorDetails struct {
	Instructor models.Instructor `json:"instructor"`
	Quotes     []models.Quote    `json:"quotes"`
}

type FlowConfig struct {
	Index          *AvailabilityIndex
	Ledger         *Ledger
	Gateway        payments.Gateway
	PaymentTimeout time.Duration
	SessionTTL     time.Duration
	IDs            utils.IDAllocator
	Now            Clock
}

type flowEntry struct {
	mu      sync.Mutex
	session FlowSession
}

// FlowController drives SCHEDULE → SEARCH → CHECKOUT → SUCCESS for each
// student session. Checkout reserves the slot first, then charges, then
// confirms or releases.
type FlowController struct {
	index   *AvailabilityIndex
	ledger  *Ledger
	gateway payments.Gateway
	ttl     time.Duration
	ids     utils.IDAllocator
	now     Clock

	mu       sync.Mutex
	sessions map[uuid.UUID]*flowEntry
}

func NewFlowController(cfg FlowConfig) *FlowController {
	fc := &FlowController{
		index:    cfg.Index,
		ledger:   cfg.Ledger,
		gateway:  payments.WithTimeout(cfg.Gateway, cfg.PaymentTimeout),
		ttl:      cfg.SessionTTL,
		ids:      cfg.IDs,
		now:      cfg.Now,
		sessions: make(map[uuid.UUID]*flowEntry),
	}
	if fc.ttl <= 0 {
		fc.ttl = DefaultFlowSessionTTL
	}
	if fc.ids == nil {
		fc.ids = utils.UUIDAllocator{}
	}
	if fc.now == nil {
		fc.now = time.Now
	}
	return fc
}

func (f *FlowController) Start(_ context.Context, studentID uuid.UUID) FlowSession {
	e := &flowEntry{session: FlowSession{
		ID:        f.ids.NewID(),
		StudentID: studentID,
		Stage:     StageSchedule,
		UpdatedAt: f.now(),
	}}
	f.mu.Lock()
	f.sessions[e.session.ID] = e
	f.mu.Unlock()
	return e.session.clone()
}

func (f *FlowController) Get(sessionID, studentID uuid.UUID) (FlowSession, error) {
	var out FlowSession
	err := f.with(sessionID, studentID, func(s *FlowSession) error {
		out = s.clone()
		return nil
	})
	return out, err
}

// SelectSlot picks the date and time and moves to SEARCH with the unfiltered
// candidates for that slot.
func (f *FlowController) SelectSlot(ctx context.Context, sessionID, studentID uuid.UUID, date, timeOfDay string) (FlowSession, error) {
	return f.update(sessionID, studentID, func(s *FlowSession) error {
		if s.Stage != StageSchedule {
			return stageError(s.Stage, "choose a slot")
		}
		slot, err := f.index.slots.Resolve(date, timeOfDay)
		if err != nil {
			return err
		}
		candidates, err := f.index.AvailableAt(ctx, slot.At, SearchFilter{})
		if err != nil {
			return err
		}
		s.Slot = &slot
		s.Filter = SearchFilter{}
		s.Excluded = nil
		s.Candidates = candidates
		s.Stage = StageSearch
		return nil
	})
}

// Search refreshes the candidates with new filters.
func (f *FlowController) Search(ctx context.Context, sessionID, studentID uuid.UUID, filter SearchFilter) (FlowSession, error) {
	return f.update(sessionID, studentID, func(s *FlowSession) error {
		if s.Stage != StageSearch {
			return stageError(s.Stage, "search instructors")
		}
		s.Filter = filter
		return f.refreshCandidates(ctx, s)
	})
}

// InstructorDetails shows one candidate with both lesson prices.
func (f *FlowController) InstructorDetails(ctx context.Context, sessionID, studentID, instructorID uuid.UUID) (InstructorDetails, error) {
	var out InstructorDetails
	err := f.with(sessionID, studentID, func(s *FlowSession) error {
		if s.Stage != StageSearch {
			return stageError(s.Stage, "view instructor details")
		}
		in, err := f.index.Instructor(ctx, instructorID)
		if err != nil {
			return err
		}
		out.Instructor = *in
		for _, kind := range []models.LessonKind{models.LessonTrial, models.LessonStandard} {
			q, err := QuoteLesson(in, kind)
			if err != nil {
				return err
			}
			out.Quotes = append(out.Quotes, q)
		}
		return nil
	})
	return out, err
}

// SelectInstructor fixes the instructor and lesson kind and moves to CHECKOUT
// with a frozen quote.
func (f *FlowController) SelectInstructor(ctx context.Context, sessionID, studentID, instructorID uuid.UUID, kind models.LessonKind, location string) (FlowSession, error) {
	return f.update(sessionID, studentID, func(s *FlowSession) error {
		if s.Stage != StageSearch {
			return stageError(s.Stage, "choose an instructor")
		}
		if err := f.refreshCandidates(ctx, s); err != nil {
			return err
		}
		var chosen *models.Instructor
		for i := range s.Candidates {
			if s.Candidates[i].ID == instructorID {
				chosen = &s.Candidates[i]
				break
			}
		}
		if chosen == nil {
			return apperror.ErrInvalidInstructor.WithMessage("instructor is not available for this slot")
		}
		quote, err := QuoteLesson(chosen, kind)
		if err != nil {
			return err
		}
		if location == "" {
			location = s.Filter.Location
		}
		in := *chosen
		s.Instructor = &in
		s.LessonKind = kind
		s.Location = location
		s.Quote = &quote
		s.Stage = StageCheckout
		return nil
	})
}

// Checkout reserves the slot, authorizes the card and confirms. A failed
// payment releases the reservation straight away and leaves the session in
// CHECKOUT so the student can retry; losing the slot to someone else sends
// the session back to SEARCH without that instructor.
func (f *FlowController) Checkout(ctx context.Context, sessionID, studentID uuid.UUID, card payments.CardDetails) (_ FlowSession, err error) {
	ctx, span := flowTracer.Start(ctx, "flow.checkout", trace.WithAttributes(attribute.String("drivebook.session_id", sessionID.String())))
	defer func() { endSpan(span, err) }()

	var out FlowSession
	err = f.with(sessionID, studentID, func(s *FlowSession) error {
		if s.Stage != StageCheckout {
			return stageError(s.Stage, "check out")
		}
		s.UpdatedAt = f.now()
		err := f.checkout(ctx, s, card)
		if err != nil {
			s.LastError = flowError(err)
		} else {
			s.LastError = nil
		}
		out = s.clone()
		return err
	})
	return out, err
}

func (f *FlowController) checkout(ctx context.Context, s *FlowSession, card payments.CardDetails) error {
	booking, err := f.ledger.Reserve(ctx, ReserveRequest{
		StudentID:    s.StudentID,
		InstructorID: s.Instructor.ID,
		Date:         s.Slot.Date,
		Time:         string(s.Slot.Time),
		LessonKind:   s.LessonKind,
		Location:     s.Location,
	})
	switch {
	case errors.Is(err, apperror.ErrSlotAlreadyTaken):
		s.Excluded = append(s.Excluded, s.Instructor.ID)
		f.clearSelection(s)
		s.Stage = StageSearch
		if refreshErr := f.refreshCandidates(ctx, s); refreshErr != nil {
			log.Warn().Err(refreshErr).Msg("🔥 Could not refresh candidates after losing a slot")
		}
		return err
	case errors.Is(err, apperror.ErrInvalidSlot):
		f.resetToSchedule(s)
		return err
	case err != nil:
		return err
	}

	auth, err := f.gateway.Authorize(ctx, booking.Price, booking.Currency, card)
	if err != nil {
		reason := ReasonPaymentDeclined
		switch {
		case errors.Is(err, apperror.ErrPaymentTimeout):
			reason = ReasonPaymentTimeout
		case errors.Is(err, apperror.ErrCardValidation):
			reason = ReasonCardInvalid
		}
		if _, cancelErr := f.ledger.Cancel(context.WithoutCancel(ctx), booking.ID, reason); cancelErr != nil {
			log.Error().Err(cancelErr).Str("booking_id", booking.ID.String()).Msg("🔥 Failed to release slot after payment failure")
		}
		return err
	}

	confirmed, err := f.ledger.Confirm(context.WithoutCancel(ctx), booking.ID, auth.TransactionID)
	if err != nil {
		log.Error().Err(err).
			Str("booking_id", booking.ID.String()).
			Str("transaction_id", auth.TransactionID).
			Msg("🔥 Payment authorized but booking could not be confirmed")
		return err
	}
	s.Booking = confirmed
	s.Stage = StageSuccess
	return nil
}

// Back moves one stage towards SCHEDULE.
func (f *FlowController) Back(ctx context.Context, sessionID, studentID uuid.UUID) (FlowSession, error) {
	return f.update(sessionID, studentID, func(s *FlowSession) error {
		switch s.Stage {
		case StageCheckout:
			f.clearSelection(s)
			s.Stage = StageSearch
			return f.refreshCandidates(ctx, s)
		case StageSearch:
			f.resetToSchedule(s)
			return nil
		}
		return stageError(s.Stage, "go back")
	})
}

// Exit abandons the session. Nothing is reserved outside Checkout, so there
// is no slot to release.
func (f *FlowController) Exit(sessionID, studentID uuid.UUID) error {
	if err := f.with(sessionID, studentID, func(*FlowSession) error { return nil }); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.sessions, sessionID)
	f.mu.Unlock()
	return nil
}

// Reap drops sessions idle for longer than the session TTL.
func (f *FlowController) Reap() int {
	cutoff := f.now().Add(-f.ttl)
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, e := range f.sessions {
		if !e.mu.TryLock() {
			continue
		}
		idle := e.session.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(f.sessions, id)
			n++
		}
	}
	return n
}

func (f *FlowController) refreshCandidates(ctx context.Context, s *FlowSession) error {
	filter := s.Filter
	filter.Exclude = append(append([]uuid.UUID(nil), filter.Exclude...), s.Excluded...)
	candidates, err := f.index.AvailableAt(ctx, s.Slot.At, filter)
	if err != nil {
		return err
	}
	s.Candidates = candidates
	return nil
}

func (f *FlowController) clearSelection(s *FlowSession) {
	s.Instructor = nil
	s.LessonKind = ""
	s.Location = ""
	s.Quote = nil
}

func (f *FlowController) resetToSchedule(s *FlowSession) {
	f.clearSelection(s)
	s.Slot = nil
	s.Filter = SearchFilter{}
	s.Candidates = nil
	s.Excluded = nil
	s.Stage = StageSchedule
}

// with runs fn while holding the session's lock.
func (f *FlowController) with(sessionID, studentID uuid.UUID, fn func(*FlowSession) error) error {
	f.mu.Lock()
	e, ok := f.sessions[sessionID]
	f.mu.Unlock()
	if !ok {
		return apperror.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.StudentID != studentID {
		return apperror.ErrSessionNotFound
	}
	return fn(&e.session)
}

// update applies fn to a working copy and keeps it only if fn succeeds, so a
// failed step leaves the session as it was.
func (f *FlowController) update(sessionID, studentID uuid.UUID, fn func(*FlowSession) error) (FlowSession, error) {
	var out FlowSession
	err := f.with(sessionID, studentID, func(s *FlowSession) error {
		work := s.clone()
		if err := fn(&work); err != nil {
			s.LastError = flowError(err)
			s.UpdatedAt = f.now()
			return err
		}
		work.LastError = nil
		work.UpdatedAt = f.now()
		*s = work
		out = work.clone()
		return nil
	})
	return out, err
}

func stageError(stage Stage, action string) error {
	return apperror.ErrInvalidStage.WithMessage("cannot %s while at %s", action, stage)
}

func flowError(err error) *FlowError {
	var e *apperror.Error
	if errors.As(err, &e) {
		return &FlowError{Code: e.Code, Message: e.Message}
	}
	return &FlowError{Code: "INTERNAL", Message: "something went wrong, please try again"}
}
