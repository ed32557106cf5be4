// Package uart implements a simulated serial port driver. No hardware
// exists behind it: a repeating timer fabricates received characters and
// drains queued transmit bytes one firing at a time, which is enough to
// exercise the whole open/write/read/close lifecycle of a serial line.
package uart

import "time"

// PortAdapter is the upper layer a port delivers into: the line-discipline
// side of the simulation. Its methods are called from the timer firing and
// must be safe to call from that context without further locking.
type PortAdapter interface {
	// InjectReceivedByte adds one received byte to the upper layer.
	InjectReceivedByte(b byte)

	// FlushReceived pushes injected bytes through to consumers.
	FlushReceived()

	// IsOpen reports whether the upper layer still wants data.
	IsOpen() bool

	// SignalWakeup asks the upper layer to queue more transmit data.
	SignalWakeup()
}

// TimerHandle identifies one pending firing at the scheduler.
type TimerHandle interface{}

// Scheduler is the host timing facility the driver arms itself against.
type Scheduler interface {
	// ScheduleAfter runs fn once after d. The returned handle can cancel
	// the firing. An error means the scheduler could not allocate the
	// timer resource.
	ScheduleAfter(d time.Duration, fn func()) (TimerHandle, error)

	// Cancel stops a pending firing. It returns false if the firing
	// already ran or was cancelled. Cancelling a nil handle is a no-op.
	Cancel(h TimerHandle) bool
}

// Source supplies the fabricated received byte for one firing. Returning
// ok=false skips injection for that firing (an exhausted replay feed).
type Source func() (b byte, ok bool)
