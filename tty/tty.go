// Package tty is the upper layer of the simulation: the line-discipline
// side a user of the serial device talks to. It implements uart.PortAdapter,
// buffering received bytes behind a coalesced readable notification and
// feeding writes into the port's transmit ring with wakeup-driven
// backpressure.
package tty

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdunix/tinyserial/ring"
	"github.com/bdunix/tinyserial/uart"
)

const defaultRxSize = 256

// Host owns the reader/writer surface of one open port.
type Host struct {
	port   *uart.Port
	logger *slog.Logger

	mu       sync.Mutex
	open     bool
	staged   []byte // injected but not yet flushed, like a flip buffer
	rx       *ring.Buffer
	overflow uint64

	notify chan struct{} // coalesced: receive data flushed
	wakeup chan struct{} // coalesced: transmit ring wants more
	closed chan struct{}
}

// Open attaches a host to the port and starts the line: the port's timer
// begins firing. The returned Host is the PortAdapter the firings call
// into.
func Open(p *uart.Port, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rx, err := ring.New(defaultRxSize)
	if err != nil {
		return nil, err
	}
	h := &Host{
		port:   p,
		logger: logger.With("port", p.Name()),
		open:   true,
		rx:     rx,
		notify: make(chan struct{}, 1),
		wakeup: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	if err := p.Startup(h); err != nil {
		return nil, err
	}
	h.logger.Info("line opened")
	return h, nil
}

// Close shuts the port down and unblocks any pending readers or writers.
// Safe to call more than once.
func (h *Host) Close() {
	h.mu.Lock()
	if !h.open {
		h.mu.Unlock()
		return
	}
	h.open = false
	close(h.closed)
	h.mu.Unlock()

	h.port.Shutdown()
	h.logger.Info("line closed")
}

// InjectReceivedByte stages one received byte. Staged bytes become
// readable only after FlushReceived, mirroring how flip buffers hold data
// until pushed.
func (h *Host) InjectReceivedByte(b byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.staged = append(h.staged, b)
}

// FlushReceived moves staged bytes into the read buffer and wakes readers.
// Bytes that do not fit are dropped and counted.
func (h *Host) FlushReceived() {
	h.mu.Lock()
	for _, b := range h.staged {
		if !h.rx.Push(b) {
			h.overflow++
		}
	}
	h.staged = h.staged[:0]
	h.mu.Unlock()

	h.tryNotify()
}

// IsOpen reports whether the upper layer still wants data.
func (h *Host) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// SignalWakeup wakes a blocked writer. Coalesced; writers must re-check.
func (h *Host) SignalWakeup() {
	select {
	case h.wakeup <- struct{}{}:
	default:
	}
}

func (h *Host) tryNotify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Readable returns a coalesced notification for receive readiness.
// Callers must re-check state after waking.
func (h *Host) Readable() <-chan struct{} { return h.notify }

// Wakeup returns the coalesced transmit backpressure-relief channel.
func (h *Host) Wakeup() <-chan struct{} { return h.wakeup }

// TryRead returns immediately with up to len(p) flushed bytes. It never
// blocks; 0 means no data now.
func (h *Host) TryRead(p []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for n < len(p) {
		b, ok := h.rx.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n
}

// Read blocks until at least one byte is available, the line closes, or
// the context ends.
func (h *Host) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n := h.TryRead(p); n > 0 {
			return n, nil
		}
		select {
		case <-h.notify:
			// Coalesced wake-up; re-check.
		case <-h.closed:
			return 0, fmt.Errorf("tty: line closed")
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Write queues data for transmission, blocking on the wakeup signal when
// the ring is full, until everything is accepted, the line closes, or the
// context ends.
func (h *Host) Write(ctx context.Context, data []byte) (int, error) {
	sent := 0
	for sent < len(data) {
		n := h.port.QueueTx(data[sent:])
		sent += n
		if sent == len(data) {
			break
		}
		select {
		case <-h.wakeup:
			// Space may have opened up; re-try.
		case <-h.closed:
			return sent, fmt.Errorf("tty: line closed")
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

// Overflow returns how many received bytes were dropped because the read
// buffer was full.
func (h *Host) Overflow() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overflow
}

// Port returns the underlying port.
func (h *Host) Port() *uart.Port { return h.port }
