package feed

import "sync"

func init() {
	MustRegister(NewCycleFeed(""))
}

const defaultPattern = "0123456789abcdefghijklmnopqrstuvwxyz"

// CycleFeed rotates through a printable pattern, one byte per firing,
// wrapping around forever. Useful for telling firings apart in a capture.
type CycleFeed struct {
	mu      sync.Mutex
	pattern []byte
	pos     int
}

// NewCycleFeed creates a cycle feed. An empty pattern uses the default
// alphanumeric rotation.
func NewCycleFeed(pattern string) *CycleFeed {
	if pattern == "" {
		pattern = defaultPattern
	}
	return &CycleFeed{pattern: []byte(pattern)}
}

func (f *CycleFeed) Name() string        { return "cycle" }
func (f *CycleFeed) Description() string { return "Rotating printable pattern" }

func (f *CycleFeed) Next() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.pattern[f.pos]
	f.pos = (f.pos + 1) % len(f.pattern)
	return b, true
}
