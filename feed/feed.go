// Package feed supplies the fabricated "received" bytes of the simulated
// serial line. A feed is consulted once per timer firing. Feeds register
// themselves by name; the default is the constant synthetic character.
package feed

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Feed produces one received byte per firing. Implementations must be safe
// for use from the timer callback.
type Feed interface {
	// Name returns the unique identifier for this feed (e.g. "constant")
	Name() string

	// Description returns a human-readable description
	Description() string

	// Next returns the byte to inject. ok=false means the feed is
	// exhausted and the firing injects nothing.
	Next() (b byte, ok bool)
}

// registry holds all registered feeds
var (
	registry = make(map[string]Feed)
	mu       sync.RWMutex
)

// Register adds a feed to the registry.
func Register(f Feed) error {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(f.Name())
	if _, exists := registry[name]; exists {
		return fmt.Errorf("feed %q already registered", name)
	}

	registry[name] = f
	return nil
}

// MustRegister registers a feed and panics on error.
// This is useful for init() functions.
func MustRegister(f Feed) {
	if err := Register(f); err != nil {
		panic(err)
	}
}

// Get retrieves a feed by name (case-insensitive).
func Get(name string) (Feed, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown feed: %s", name)
	}
	return f, nil
}

// List returns all registered feed names in alphabetical order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered feeds.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(registry)
}

// ForEach calls fn for each registered feed.
func ForEach(fn func(name string, f Feed)) {
	mu.RLock()
	defer mu.RUnlock()

	for name, f := range registry {
		fn(name, f)
	}
}
