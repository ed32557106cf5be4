package sched

import (
	"sync"
	"time"

	"github.com/bdunix/tinyserial/uart"
)

// ManualScheduler is a virtual-time scheduler for tests. Callbacks only
// run inside Advance, one at a time in due order, so firings are strictly
// serialized and fully deterministic.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	entries []*manualEntry
	failErr error
}

type manualEntry struct {
	id  int
	due time.Duration
	fn  func()
}

// NewManualScheduler creates a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// FailAllocations makes subsequent ScheduleAfter calls return err, to
// exercise the timer allocation failure path. Pass nil to clear.
func (s *ManualScheduler) FailAllocations(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// ScheduleAfter records a callback due at now+d.
func (s *ManualScheduler) ScheduleAfter(d time.Duration, fn func()) (uart.TimerHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return nil, s.failErr
	}
	s.nextID++
	e := &manualEntry{id: s.nextID, due: s.now + d, fn: fn}
	s.entries = append(s.entries, e)
	return e, nil
}

// Cancel removes a pending entry. It returns false if the entry already
// ran or was cancelled.
func (s *ManualScheduler) Cancel(h uart.TimerHandle) bool {
	e, ok := h.(*manualEntry)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, pending := range s.entries {
		if pending == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves virtual time forward by d, running every due callback in
// order. Virtual time steps to each entry's due time before its callback
// runs, so a callback that re-arms within the window fires again in the
// same Advance. Callbacks run without the scheduler lock held, so they
// may schedule or cancel freely.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		e := s.popDue(target)
		if e == nil {
			break
		}
		e.fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// popDue removes the earliest entry due at or before target and steps
// virtual time to its due time.
func (s *ManualScheduler) popDue(target time.Duration) *manualEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := -1
	for i, e := range s.entries {
		if e.due > target {
			continue
		}
		if best == -1 || e.due < s.entries[best].due ||
			(e.due == s.entries[best].due && e.id < s.entries[best].id) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	e := s.entries[best]
	s.entries = append(s.entries[:best], s.entries[best+1:]...)
	if e.due > s.now {
		s.now = e.due
	}
	return e
}

// Pending returns how many firings are scheduled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
