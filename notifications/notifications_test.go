package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/anjiri1684/driving_school/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (c *collector) Deliver(_ context.Context, msg models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) all() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.msgs...)
}

func sampleBooking() models.Booking {
	return models.Booking{
		ID:              uuid.New(),
		StudentID:       uuid.New(),
		InstructorID:    uuid.New(),
		ScheduledAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		LessonKind:      models.LessonStandard,
		Status:          models.StatusConfirmed,
		Location:        "Bondi Junction",
		Price:           80,
		Currency:        "AUD",
	}
}

func TestDispatcherFansOutToEverySubscriber(t *testing.T) {
	d := NewDispatcher(time.UTC)
	a, b := &collector{}, &collector{}
	d.Subscribe("a", a)
	d.Subscribe("b", b)

	bk := sampleBooking()
	msg := d.SendConfirmation(Recipient{ID: "s1", Name: "Sam", Email: "sam@example.com"}, bk)
	d.Wait()

	assert.Equal(t, models.KindConfirmation, msg.Kind)
	assert.Equal(t, "sam@example.com", msg.Recipient)
	assert.Equal(t, bk.ID.String(), msg.BookingID)
	assert.Contains(t, msg.Body, "Bondi Junction")
	assert.Contains(t, msg.Body, "AUD 80")
	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	assert.Equal(t, msg, a.all()[0])
}

func TestDispatcherSurvivesFailingAndPanickingSubscribers(t *testing.T) {
	d := NewDispatcher(time.UTC)
	good := &collector{}
	d.Subscribe("failing", SubscriberFunc(func(context.Context, models.Message) error {
		return errors.New("smtp down")
	}))
	d.Subscribe("panicking", SubscriberFunc(func(context.Context, models.Message) error {
		panic("boom")
	}))
	d.Subscribe("good", good)

	d.SendReminder(Recipient{Email: "sam@example.com"}, sampleBooking())
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, good.all(), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher(time.UTC)
	c := &collector{}
	unsubscribe := d.Subscribe("c", c)
	unsubscribe()
	unsubscribe()

	d.SendCancellation(Recipient{Email: "sam@example.com"}, sampleBooking())
	d.Wait()
	assert.Empty(t, c.all())
}

func TestCancellationIncludesReason(t *testing.T) {
	d := NewDispatcher(time.UTC)
	bk := sampleBooking()
	reason := "payment_declined"
	bk.CancelReason = &reason

	msg := d.SendCancellation(Recipient{Email: "sam@example.com"}, bk)
	assert.Equal(t, "Your Driving Lesson was Cancelled", msg.Subject)
	assert.Contains(t, msg.Body, reason)
}

func TestBookingNotifierAddressesBothParties(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	bk := sampleBooking()

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: bk.StudentID, FullName: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent}))
	require.NoError(t, store.CreateInstructor(ctx, &models.Instructor{ID: bk.InstructorID, FullName: "Ivy Instructor", Email: "ivy@example.com", PricePerHour: 80, Transmission: models.TransmissionBoth, Available: true}))

	d := NewDispatcher(time.UTC)
	c := &collector{}
	d.Subscribe("c", c)
	n := NewBookingNotifier(d, store, store)

	require.NoError(t, n.HandleBookingEvent(ctx, models.BookingEvent{Type: models.EventCreated, Booking: bk}))
	require.NoError(t, n.HandleBookingEvent(ctx, models.BookingEvent{Type: models.EventConfirmed, Booking: bk}))
	d.Wait()

	got := c.all()
	require.Len(t, got, 2)
	recipients := []string{got[0].Recipient, got[1].Recipient}
	assert.ElementsMatch(t, []string{"sam@example.com", "ivy@example.com"}, recipients)
	for _, m := range got {
		assert.Equal(t, models.KindConfirmation, m.Kind)
	}
}

func TestBookingNotifierReportsMissingParty(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	bk := sampleBooking()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: bk.StudentID, FullName: "Sam", Email: "sam@example.com", Role: models.RoleStudent}))

	d := NewDispatcher(time.UTC)
	c := &collector{}
	d.Subscribe("c", c)

	err := NewBookingNotifier(d, store, store).Remind(ctx, bk)
	d.Wait()

	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.Len(t, c.all(), 1)
	assert.Equal(t, models.KindReminder, c.all()[0].Kind)
}

func TestBrevoServiceSendsTransactionalEmail(t *testing.T) {
	var got brevoPayload
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewBrevoService("key-123", "lessons@drivebook.test", "DriveBook")
	require.NotNil(t, s)
	s.URL = srv.URL

	err := s.Deliver(context.Background(), models.Message{Recipient: "sam@example.com", Subject: "Hi", Body: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "key-123", apiKey)
	assert.Equal(t, "Hi", got.Subject)
	require.Len(t, got.To, 1)
	assert.Equal(t, "sam", got.To[0]["name"])
	assert.Equal(t, "DriveBook", got.Sender["name"])
}

func TestBrevoServiceRejectsNon201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewBrevoService("k", "a@b.c", "n")
	s.URL = srv.URL
	err := s.Deliver(context.Background(), models.Message{Recipient: "sam@example.com"})
	assert.ErrorContains(t, err, "status 401")

	assert.Error(t, s.Deliver(context.Background(), models.Message{Recipient: "not-an-email"}))
}

func TestNewBrevoServiceRequiresSettings(t *testing.T) {
	assert.Nil(t, NewBrevoService("", "a@b.c", "n"))
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "notification.reminder", RoutingKey(models.KindReminder))
}
