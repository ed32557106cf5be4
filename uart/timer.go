package uart

import "time"

// lineTimer is the per-port repeating timer that stands in for receive and
// transmit interrupts. The handle is created lazily on first open and kept
// across close/reopen; only removing the port from its driver releases it.
//
// All methods require the owning port's mutex to be held, which is what
// keeps firings strictly serialized with start/stop.
type lineTimer struct {
	port    *Port
	pending TimerHandle
}

func newLineTimer(p *Port) *lineTimer {
	return &lineTimer{port: p}
}

func (t *lineTimer) delay() time.Duration {
	return t.port.cfg.Tick * time.Duration(t.port.cfg.DelayTicks)
}

// startLocked arms the next firing. If one is already pending it is
// cancelled first, so a double start never schedules two firings against
// the same timer.
func (t *lineTimer) startLocked() error {
	if t.pending != nil {
		t.port.sched.Cancel(t.pending)
		t.pending = nil
	}
	h, err := t.port.sched.ScheduleAfter(t.delay(), t.port.fire)
	if err != nil {
		return err
	}
	t.pending = h
	return nil
}

// rearmLocked schedules the next firing from inside the current one. The
// delay is relative to now, so intervals drift under load but firings
// never reorder.
func (t *lineTimer) rearmLocked() error {
	h, err := t.port.sched.ScheduleAfter(t.delay(), t.port.fire)
	if err != nil {
		t.pending = nil
		return err
	}
	t.pending = h
	return nil
}

// stopLocked cancels the pending firing. Safe no-op when nothing is armed.
// A firing already executing completes on its own; it observes the closed
// port and does not re-arm.
func (t *lineTimer) stopLocked() {
	if t.pending == nil {
		return
	}
	t.port.sched.Cancel(t.pending)
	t.pending = nil
}
