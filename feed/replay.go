package feed

import (
	"fmt"
	"os"
	"sync"
)

// ReplayFeed injects the bytes of a sample file in order. With Loop the
// file repeats forever; otherwise the feed reports exhaustion at the end
// and firings stop injecting.
type ReplayFeed struct {
	mu   sync.Mutex
	data []byte
	pos  int
	loop bool
}

// NewReplayFeed loads the sample file.
func NewReplayFeed(path string, loop bool) (*ReplayFeed, error) {
	if path == "" {
		return nil, fmt.Errorf("sample_file is required for the replay feed")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("sample file %s is empty", path)
	}
	return &ReplayFeed{data: data, loop: loop}, nil
}

func (f *ReplayFeed) Name() string        { return "replay" }
func (f *ReplayFeed) Description() string { return "Bytes replayed from a sample file" }

func (f *ReplayFeed) Next() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pos >= len(f.data) {
		if !f.loop {
			return 0, false
		}
		f.pos = 0
	}
	b := f.data[f.pos]
	f.pos++
	return b, true
}
