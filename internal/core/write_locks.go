package core

// write_locks.go serializes writers per category.
//
// Each category gets a one-slot semaphore. A writer holds the slot from
// resolve through reload, so two sales against the same sheet cannot both
// read the same stock value. Writers to different categories still proceed
// in parallel; the store adapters serialize their own I/O.
//
// WaitForDrain supports graceful shutdown by blocking until no writer holds
// a slot.

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultWriteWait is how long a writer waits for its category slot.
const DefaultWriteWait = 10 * time.Second

// WriteLocks hands out one exclusive slot per category.
type WriteLocks struct {
	maxWait time.Duration

	mu     sync.Mutex
	slots  map[string]chan struct{}
	active int
}

// NewWriteLocks creates the lock table. Writers that cannot acquire their
// slot within maxWait receive ErrWriteBusy.
func NewWriteLocks(maxWait time.Duration) *WriteLocks {
	if maxWait <= 0 {
		maxWait = DefaultWriteWait
	}
	return &WriteLocks{
		maxWait: maxWait,
		slots:   make(map[string]chan struct{}),
	}
}

func (l *WriteLocks) slot(category string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[category]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[category] = s
	}
	return s
}

// Acquire blocks until the category slot is free, maxWait elapses or ctx is
// done. The returned release func must be called exactly once.
func (l *WriteLocks) Acquire(ctx context.Context, category string) (func(), error) {
	s := l.slot(category)

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case s <- struct{}{}:
		return l.acquired(s), nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own wait budget
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrWriteBusy
	}
}

// TryAcquire takes the slot only if it is free right now.
func (l *WriteLocks) TryAcquire(category string) (func(), bool) {
	s := l.slot(category)
	select {
	case s <- struct{}{}:
		return l.acquired(s), true
	default:
		return nil, false
	}
}

func (l *WriteLocks) acquired(s chan struct{}) func() {
	l.mu.Lock()
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.active--
			l.mu.Unlock()
			<-s
		})
	}
}

// ActiveCount returns the number of writers currently holding a slot.
func (l *WriteLocks) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until every held slot is released or ctx is cancelled.
func (l *WriteLocks) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WriteLockStatus is a point-in-time view of the lock table.
type WriteLockStatus struct {
	Active int      `json:"active"`
	Held   []string `json:"held"`
	Known  int      `json:"known"`
}

// Status returns the current lock state for monitoring.
func (l *WriteLocks) Status() WriteLockStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := []string{}
	for name, s := range l.slots {
		if len(s) > 0 {
			held = append(held, name)
		}
	}
	sort.Strings(held)

	return WriteLockStatus{
		Active: l.active,
		Held:   held,
		Known:  len(l.slots),
	}
}
