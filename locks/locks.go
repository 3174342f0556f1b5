package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned when a slot lock could not be taken before the
// context expired or the retries ran out.
var ErrBusy = errors.New("slot is being reserved by another request")

// SlotLocker serializes reservation attempts for one instructor and instant.
// The returned func releases the lock and is safe to call once.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func SlotKey(instructorID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("slot:%s:%s", instructorID, at.UTC().Format(time.RFC3339))
}

type entry struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*entry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*entry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.slots[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.slots[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
}

func (l *MemoryLocker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
