package serial

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockSink implements Sink for testing purposes.
type MockSink struct {
	mu       sync.Mutex
	buffer   bytes.Buffer
	device   string
	isOpen   bool
	writes   [][]byte
	writeErr error // If set, Write will return this error
}

// NewMockSink creates a new mock sink.
func NewMockSink(device string) *MockSink {
	return &MockSink{
		device: device,
		isOpen: true,
	}
}

// Write appends data to the mock buffer.
func (s *MockSink) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return 0, fmt.Errorf("sink is closed")
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	s.writes = append(s.writes, dataCopy)

	return s.buffer.Write(data)
}

// Close closes the mock sink.
func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
	return nil
}

// Flush is a no-op for the mock sink.
func (s *MockSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return fmt.Errorf("sink is closed")
	}
	return nil
}

// Device returns the mock device path.
func (s *MockSink) Device() string {
	return s.device
}

// IsOpen returns true if the mock sink is open.
func (s *MockSink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Received returns all bytes written to the mock sink.
func (s *MockSink) Received() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buffer.Len())
	copy(out, s.buffer.Bytes())
	return out
}

// Writes returns the individual write operations, one per drain.
func (s *MockSink) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([][]byte, len(s.writes))
	for i, w := range s.writes {
		result[i] = make([]byte, len(w))
		copy(result[i], w)
	}
	return result
}

// Reset clears all captured data.
func (s *MockSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Reset()
	s.writes = nil
}

// SetWriteError sets an error to be returned on subsequent writes.
func (s *MockSink) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Reopen reopens a closed mock sink.
func (s *MockSink) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = true
}

// FileSink implements Sink on an arbitrary writer, typically a file or PTY.
type FileSink struct {
	writer io.WriteCloser
	device string
	isOpen bool
}

// NewFileSink creates a new file-backed sink.
func NewFileSink(device string, writer io.WriteCloser) *FileSink {
	return &FileSink{
		writer: writer,
		device: device,
		isOpen: true,
	}
}

// Write writes data to the file.
func (s *FileSink) Write(data []byte) (int, error) {
	if !s.isOpen {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.writer.Write(data)
}

// Close closes the file.
func (s *FileSink) Close() error {
	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	return s.writer.Close()
}

// Flush syncs the file if the writer supports it.
func (s *FileSink) Flush() error {
	if !s.isOpen {
		return fmt.Errorf("sink is closed")
	}
	if syncer, ok := s.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Device returns the device/file path.
func (s *FileSink) Device() string {
	return s.device
}

// IsOpen returns true if the file sink is open.
func (s *FileSink) IsOpen() bool {
	return s.isOpen
}

// StdoutSink implements Sink writing to stdout (useful for watching the
// simulation drain).
type StdoutSink struct {
	device string
	isOpen bool
}

// NewStdoutSink creates a new stdout sink.
func NewStdoutSink(device string) *StdoutSink {
	return &StdoutSink{
		device: device,
		isOpen: true,
	}
}

// Write prints data with a device/timestamp prefix.
func (s *StdoutSink) Write(data []byte) (int, error) {
	if !s.isOpen {
		return 0, fmt.Errorf("sink is closed")
	}
	fmt.Printf("[%s][%s] %q\n", s.device, time.Now().Format("15:04:05.000"), data)
	return len(data), nil
}

// Close closes the stdout sink.
func (s *StdoutSink) Close() error {
	s.isOpen = false
	return nil
}

// Flush is a no-op for stdout.
func (s *StdoutSink) Flush() error {
	return nil
}

// Device returns the device name.
func (s *StdoutSink) Device() string {
	return s.device
}

// IsOpen returns true if the sink is open.
func (s *StdoutSink) IsOpen() bool {
	return s.isOpen
}
