// Package ring implements the fixed-capacity circular byte buffer used as
// the transmit queue of a simulated serial port. Head, tail, and count are
// kept together so every index invariant is enforced in one place instead
// of being scattered across callers.
package ring

import "fmt"

// Buffer is a circular byte buffer. Pop consumes from the head, Push
// appends at the tail. The count field distinguishes full from empty when
// head == tail.
type Buffer struct {
	buf   []byte
	head  int
	tail  int
	count int
}

// New returns a buffer holding at most capacity bytes.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring: invalid capacity %d", capacity)
	}
	return &Buffer{buf: make([]byte, capacity)}, nil
}

// Cap returns the total capacity in bytes.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Pending returns how many bytes are queued.
func (b *Buffer) Pending() int {
	return b.count
}

// Free returns how many more bytes can be queued.
func (b *Buffer) Free() int {
	return len(b.buf) - b.count
}

// Empty reports whether no bytes are queued.
func (b *Buffer) Empty() bool {
	return b.count == 0
}

// Full reports whether the buffer is at capacity.
func (b *Buffer) Full() bool {
	return b.count == len(b.buf)
}

// Push appends a byte at the tail. It returns false if the buffer is full;
// the tail does not move on failure.
func (b *Buffer) Push(v byte) bool {
	if b.count == len(b.buf) {
		return false
	}
	b.buf[b.tail] = v
	b.tail = (b.tail + 1) % len(b.buf)
	b.count++
	return true
}

// Pop removes and returns the byte at the head. It returns false if the
// buffer is empty; the head does not move on failure.
func (b *Buffer) Pop() (byte, bool) {
	if b.count == 0 {
		return 0, false
	}
	v := b.buf[b.head]
	b.head = (b.head + 1) % len(b.buf)
	b.count--
	return v, true
}

// Clear discards all queued bytes.
func (b *Buffer) Clear() {
	b.head = 0
	b.tail = 0
	b.count = 0
}
