package services

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/payments"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkToCheckout takes a fresh session for student up to CHECKOUT with in.
func walkToCheckout(t *testing.T, f *fixture, studentID uuid.UUID, in *models.Instructor, kind models.LessonKind) FlowSession {
	t.Helper()
	ctx := context.Background()
	s := f.flow.Start(ctx, studentID)
	assert.Equal(t, StageSchedule, s.Stage)

	s, err := f.flow.SelectSlot(ctx, s.ID, studentID, lessonDate, lessonTime)
	require.NoError(t, err)
	require.Equal(t, StageSearch, s.Stage)

	s, err = f.flow.Search(ctx, s.ID, studentID, SearchFilter{Location: "Bondi"})
	require.NoError(t, err)
	require.Contains(t, ids(s.Candidates), in.ID)

	s, err = f.flow.SelectInstructor(ctx, s.ID, studentID, in.ID, kind, "")
	require.NoError(t, err)
	require.Equal(t, StageCheckout, s.Stage)
	return s
}

func TestFlowEndToEndStandardLessonInBondi(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	first, second := f.addStudent(t, "sam"), f.addStudent(t, "kim")

	s := walkToCheckout(t, f, first.ID, in, models.LessonStandard)
	require.NotNil(t, s.Quote)
	assert.Equal(t, int64(80), s.Quote.Amount)
	assert.Equal(t, "Bondi", s.Location)

	s, err := f.flow.Checkout(ctx, s.ID, first.ID, goodCard)
	require.NoError(t, err)
	assert.Equal(t, StageSuccess, s.Stage)
	require.NotNil(t, s.Booking)
	assert.Equal(t, models.StatusConfirmed, s.Booking.Status)
	assert.Equal(t, int64(80), s.Booking.Price)
	assert.Nil(t, s.LastError)

	_, err = f.reserve(second.ID, in.ID, models.LessonStandard)
	assert.ErrorIs(t, err, apperror.ErrSlotAlreadyTaken)

	other := f.flow.Start(ctx, second.ID)
	other, err = f.flow.SelectSlot(ctx, other.ID, second.ID, lessonDate, lessonTime)
	require.NoError(t, err)
	assert.NotContains(t, ids(other.Candidates), in.ID)

	found, err := f.index.FindAvailable(ctx, lessonDate, lessonTime, SearchFilter{Location: "Bondi"})
	require.NoError(t, err)
	assert.Empty(t, found)

	confirmed, err := f.ledger.ListFor(ctx, first.ID, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, models.StatusConfirmed, confirmed[0].Status)
}

func TestFlowDeclinedCardReleasesSlotAndKeepsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student := f.addStudent(t, "sam")

	s := walkToCheckout(t, f, student.ID, in, models.LessonTrial)
	s, err := f.flow.Checkout(ctx, s.ID, student.ID, declinedCard)
	assert.ErrorIs(t, err, apperror.ErrPaymentDeclined)
	assert.True(t, apperror.Recoverable(err))

	assert.Equal(t, StageCheckout, s.Stage)
	require.NotNil(t, s.Instructor)
	assert.Equal(t, in.ID, s.Instructor.ID)
	assert.Equal(t, models.LessonTrial, s.LessonKind)
	require.NotNil(t, s.LastError)
	assert.Equal(t, "PAYMENT_DECLINED", s.LastError.Code)
	assert.Nil(t, s.Booking)

	bookings, err := f.ledger.ListFor(ctx, student.ID, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.StatusCancelled, bookings[0].Status)
	assert.Equal(t, ReasonPaymentDeclined, *bookings[0].CancelReason)

	found, err := f.index.FindAvailable(ctx, lessonDate, lessonTime, SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{in.ID}, ids(found))

	s, err = f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	require.NoError(t, err)
	assert.Equal(t, StageSuccess, s.Stage)
	assert.Equal(t, int64(48), s.Booking.Price)
	assert.Equal(t, 30, s.Booking.DurationMinutes)
}

func TestFlowLosingTheRaceReturnsToSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contested := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	backup := f.addInstructor(t, "lee", 85, models.TransmissionBoth, "Bondi")
	first, second := f.addStudent(t, "sam"), f.addStudent(t, "kim")

	winner := walkToCheckout(t, f, first.ID, contested, models.LessonStandard)
	loser := walkToCheckout(t, f, second.ID, contested, models.LessonStandard)

	_, err := f.flow.Checkout(ctx, winner.ID, first.ID, goodCard)
	require.NoError(t, err)

	loser, err = f.flow.Checkout(ctx, loser.ID, second.ID, goodCard)
	assert.ErrorIs(t, err, apperror.ErrSlotAlreadyTaken)
	assert.Equal(t, StageSearch, loser.Stage)
	assert.Nil(t, loser.Instructor)
	assert.Contains(t, loser.Excluded, contested.ID)
	assert.Equal(t, []uuid.UUID{backup.ID}, ids(loser.Candidates))
	require.NotNil(t, loser.LastError)
	assert.Equal(t, "SLOT_ALREADY_TAKEN", loser.LastError.Code)

	// the selected slot survives, so the student can pick someone else
	loser, err = f.flow.SelectInstructor(ctx, loser.ID, second.ID, backup.ID, models.LessonStandard, "Bondi")
	require.NoError(t, err)
	loser, err = f.flow.Checkout(ctx, loser.ID, second.ID, goodCard)
	require.NoError(t, err)
	assert.Equal(t, backup.ID, loser.Booking.InstructorID)
}

func TestFlowPaymentTimeoutIsADecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student := f.addStudent(t, "sam")

	hanging := gatewayFunc(func(ctx context.Context, _ int64, _ string, _ payments.CardDetails) (payments.Authorization, error) {
		<-ctx.Done()
		return payments.Authorization{}, ctx.Err()
	})
	f.flow = NewFlowController(FlowConfig{
		Index:          f.index,
		Ledger:         f.ledger,
		Gateway:        hanging,
		PaymentTimeout: 20 * time.Millisecond,
		Now:            f.clock.Now,
	})

	s := walkToCheckout(t, f, student.ID, in, models.LessonStandard)
	s, err := f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	assert.ErrorIs(t, err, apperror.ErrPaymentTimeout)
	assert.Equal(t, StageCheckout, s.Stage)

	bookings, err := f.ledger.ListFor(ctx, student.ID, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.StatusCancelled, bookings[0].Status)
	assert.Equal(t, ReasonPaymentTimeout, *bookings[0].CancelReason)
}

func TestFlowInvalidCardReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student := f.addStudent(t, "sam")

	s := walkToCheckout(t, f, student.ID, in, models.LessonStandard)
	card := goodCard
	card.Number = "4242 4242"
	s, err := f.flow.Checkout(ctx, s.ID, student.ID, card)
	assert.ErrorIs(t, err, apperror.ErrCardValidation)
	assert.Equal(t, StageCheckout, s.Stage)

	found, err := f.index.FindAvailable(ctx, lessonDate, lessonTime, SearchFilter{})
	require.NoError(t, err)
	assert.Contains(t, ids(found), in.ID)
}

func TestFlowStoreOutageKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student := f.addStudent(t, "sam")

	s := walkToCheckout(t, f, student.ID, in, models.LessonStandard)
	f.store.setDown(true)
	s, err := f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	assert.Equal(t, StageCheckout, s.Stage)
	assert.Equal(t, in.ID, s.Instructor.ID)

	f.store.setDown(false)
	s, err = f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	require.NoError(t, err)
	assert.Equal(t, StageSuccess, s.Stage)
}

func TestFlowStagesAreStrictlyOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student := f.addStudent(t, "sam")

	s := f.flow.Start(ctx, student.ID)
	_, err := f.flow.SelectInstructor(ctx, s.ID, student.ID, in.ID, models.LessonStandard, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)
	_, err = f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)
	_, err = f.flow.Search(ctx, s.ID, student.ID, SearchFilter{})
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)
	_, err = f.flow.Back(ctx, s.ID, student.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)

	_, err = f.flow.SelectSlot(ctx, s.ID, student.ID, "2025-02-01", lessonTime)
	assert.ErrorIs(t, err, apperror.ErrInvalidSlot)
	got, err := f.flow.Get(s.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSchedule, got.Stage)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "INVALID_SLOT", got.LastError.Code)

	s, err = f.flow.SelectSlot(ctx, s.ID, student.ID, lessonDate, lessonTime)
	require.NoError(t, err)
	assert.Nil(t, s.LastError)
	_, err = f.flow.Checkout(ctx, s.ID, student.ID, goodCard)
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)
	_, err = f.flow.SelectSlot(ctx, s.ID, student.ID, lessonDate, "12:00 PM")
	assert.ErrorIs(t, err, apperror.ErrInvalidStage)

	_, err = f.flow.SelectInstructor(ctx, s.ID, student.ID, uuid.New(), models.LessonStandard, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidInstructor)
}

func TestFlowBackAndExit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.addInstructor(t, "alex", 80, models.TransmissionAutomatic, "Bondi")
	student, stranger := f.addStudent(t, "sam"), f.addStudent(t, "kim")

	s := walkToCheckout(t, f, student.ID, in, models.LessonStandard)

	_, err := f.flow.Get(s.ID, stranger.ID)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)

	s, err = f.flow.Back(ctx, s.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSearch, s.Stage)
	assert.Nil(t, s.Quote)
	assert.NotNil(t, s.Slot)

	details, err := f.flow.InstructorDetails(ctx, s.ID, student.ID, in.ID)
	require.NoError(t, err)
	require.Len(t, details.Quotes, 2)
	assert.Equal(t, int64(48), details.Quotes[0].Amount)
	assert.Equal(t, int64(80), details.Quotes[1].Amount)

	s, err = f.flow.Back(ctx, s.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, StageSchedule, s.Stage)
	assert.Nil(t, s.Slot)
	assert.Empty(t, s.Candidates)

	require.NoError(t, f.flow.Exit(s.ID, student.ID))
	_, err = f.flow.Get(s.ID, student.ID)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.ErrorIs(t, f.flow.Exit(s.ID, student.ID), apperror.ErrSessionNotFound)

	// nothing was reserved along the way
	bookings, err := f.ledger.ListFor(ctx, student.ID, models.RoleStudent)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestFlowReapDropsIdleSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.addStudent(t, "sam")

	idle := f.flow.Start(ctx, student.ID)
	f.clock.Advance(20 * time.Minute)
	active := f.flow.Start(ctx, student.ID)
	f.clock.Advance(11 * time.Minute)

	assert.Equal(t, 1, f.flow.Reap())
	_, err := f.flow.Get(idle.ID, student.ID)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	_, err = f.flow.Get(active.ID, student.ID)
	assert.NoError(t, err)
}
