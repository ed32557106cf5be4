// Package serial provides the destinations for bytes the simulated UART
// "transmits": a real serial device, a file, stdout, or an in-memory mock.
package serial

import (
	"io"
	"sync"
	"time"
)

// SinkConfig contains the settings for a real serial sink.
type SinkConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string // "none", "odd", "even"
}

// Sink receives the bytes drained from the simulated transmit path.
type Sink interface {
	io.WriteCloser

	// Flush waits until all output has been transmitted
	Flush() error

	// Device returns the device path
	Device() string

	// IsOpen returns true if the sink is currently open
	IsOpen() bool
}

// Stats tracks activity on a sink.
type Stats struct {
	BytesSent int64
	Drains    int64
	Errors    int64
	LastDrain time.Time
	OpenedAt  time.Time
}

// SinkWithStats wraps a Sink with statistics tracking. Writes happen on
// the timer path while the monitoring handlers read, so stats are guarded.
type SinkWithStats struct {
	Sink

	mu    sync.Mutex
	stats Stats
}

// NewSinkWithStats creates a new sink wrapper with statistics.
func NewSinkWithStats(s Sink) *SinkWithStats {
	return &SinkWithStats{
		Sink: s,
		stats: Stats{
			OpenedAt: time.Now(),
		},
	}
}

// Write writes data to the sink and tracks statistics.
func (s *SinkWithStats) Write(data []byte) (int, error) {
	n, err := s.Sink.Write(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.Errors++
		return n, err
	}
	s.stats.BytesSent += int64(n)
	s.stats.Drains++
	s.stats.LastDrain = time.Now()
	return n, nil
}

// Stats returns a copy of the current statistics.
func (s *SinkWithStats) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
