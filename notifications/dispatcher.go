package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/rs/zerolog/log"
)

// Subscriber receives every dispatched message. Delivery is best effort.
type Subscriber interface {
	Deliver(ctx context.Context, msg models.Message) error
}

type SubscriberFunc func(ctx context.Context, msg models.Message) error

func (f SubscriberFunc) Deliver(ctx context.Context, msg models.Message) error { return f(ctx, msg) }

// Recipient is who a message is addressed to.
type Recipient struct {
	ID    string
	Name  string
	Email string
}

type subscription struct {
	id   int
	name string
	sub  Subscriber
}

// Dispatcher fans messages out to subscribers, each on its own goroutine, so
// a slow or failing subscriber never holds up the caller.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	wg     sync.WaitGroup
	now    func() time.Time
	loc    *time.Location
}

func NewDispatcher(loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{now: time.Now, loc: loc}
}

// Subscribe attaches sub under name and returns a func that detaches it.
func (d *Dispatcher) Subscribe(name string, sub Subscriber) (unsubscribe func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, name: name, sub: sub})
	d.mu.Unlock()
	log.Info().Str("subscriber", name).Msg("✅ Notification subscriber attached")

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.subs {
				if s.id == id {
					d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (d *Dispatcher) SendConfirmation(to Recipient, b models.Booking) models.Message {
	return d.Publish(d.compose(models.KindConfirmation, to, b))
}

func (d *Dispatcher) SendCancellation(to Recipient, b models.Booking) models.Message {
	return d.Publish(d.compose(models.KindCancellation, to, b))
}

func (d *Dispatcher) SendReminder(to Recipient, b models.Booking) models.Message {
	return d.Publish(d.compose(models.KindReminder, to, b))
}

// Publish hands msg to every current subscriber and returns immediately.
func (d *Dispatcher) Publish(msg models.Message) models.Message {
	d.mu.RLock()
	subs := append([]subscription(nil), d.subs...)
	d.mu.RUnlock()

	for _, s := range subs {
		d.wg.Add(1)
		go d.deliver(s, msg)
	}
	return msg
}

func (d *Dispatcher) deliver(s subscription, msg models.Message) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("subscriber", s.name).Interface("panic", r).Msg("🔥 Notification subscriber panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sub.Deliver(ctx, msg); err != nil {
		log.Error().Err(err).
			Str("subscriber", s.name).
			Str("kind", string(msg.Kind)).
			Str("booking_id", msg.BookingID).
			Msg("🔥 Failed to deliver notification")
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Close waits for in-flight deliveries, giving up when ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still in flight: %w", ctx.Err())
	}
}
