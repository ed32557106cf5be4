// Package sched provides the timer scheduling used by the simulated
// driver: a wall-clock implementation for running the daemon and a
// manually stepped one for deterministic tests.
package sched

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bdunix/tinyserial/uart"
)

// TickScheduler schedules callbacks on the runtime timer wheel, with an
// optional jitter so simulated character timing is not perfectly regular.
type TickScheduler struct {
	mu            sync.Mutex
	jitterPercent float64
	random        *rand.Rand
}

// NewTickScheduler creates a scheduler. jitterPercent spreads each delay
// by up to +/- that percentage; 0 disables jitter.
func NewTickScheduler(jitterPercent float64) *TickScheduler {
	return &TickScheduler{
		jitterPercent: jitterPercent,
		random:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *TickScheduler) interval(d time.Duration) time.Duration {
	if s.jitterPercent <= 0 {
		return d
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Random factor between -jitter% and +jitter%.
	jitterFactor := (s.random.Float64()*2 - 1) * (s.jitterPercent / 100)
	return d + time.Duration(float64(d)*jitterFactor)
}

// ScheduleAfter runs fn once after d (plus jitter).
func (s *TickScheduler) ScheduleAfter(d time.Duration, fn func()) (uart.TimerHandle, error) {
	return time.AfterFunc(s.interval(d), fn), nil
}

// Cancel stops a pending firing.
func (s *TickScheduler) Cancel(h uart.TimerHandle) bool {
	if h == nil {
		return false
	}
	t, ok := h.(*time.Timer)
	if !ok {
		return false
	}
	return t.Stop()
}
