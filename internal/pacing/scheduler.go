// Package pacing serializes calls to the external generation API behind a
// fixed minimum inter-call delay. The scheduler is constructed once per
// process and injected into the components it paces.
package pacing

import (
	"context"
	"sync"
	"time"
)

// Scheduler grants call slots in FIFO order, each at least the configured
// interval after the previous one
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// New creates a scheduler with the given minimum interval between calls
func New(minInterval time.Duration) *Scheduler {
	return &Scheduler{interval: minInterval}
}

// Wait reserves the next call slot and blocks until it arrives or the
// context is cancelled. Reservation happens under the lock, so callers are
// served in arrival order.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	now := time.Now()
	slot := s.next
	if slot.Before(now) {
		slot = now
	}
	s.next = slot.Add(s.interval)
	s.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval returns the configured minimum inter-call delay
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval updates the minimum inter-call delay for future slots
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}
