// Package dedupe tracks already-submitted case ids so the batch pipeline
// scores each case at most once.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize bounds the seen-set when no option overrides it.
const defaultMaxSize = 50_000

// Deduper records seen ids for at-most-once batch scoring.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so it can be resubmitted, used when a job was
	// recorded but never made it into the queue.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of tracked ids.
	Size() int
}

// Option applies a configuration option to the seen-set.
type Option func(*seenSet)

// WithMaxSize bounds the number of tracked ids; zero or negative means
// unbounded.
func WithMaxSize(n int) Option {
	return func(s *seenSet) { s.maxSize = n }
}

// seenSet implements Deduper with a map plus a FIFO ring of insertion order.
// When the bound is hit, the oldest id is forgotten first.
type seenSet struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // FIFO insertion order, only maintained in bounded mode
	head    int      // index of the oldest live entry in order
	maxSize int
}

// New creates a bounded seen-set.
func New(opts ...Option) Deduper {
	s := &seenSet{
		seen:    make(map[string]struct{}),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *seenSet) SeenAndRecord(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return true
	}

	if s.maxSize > 0 && len(s.seen) >= s.maxSize {
		s.evictOldest()
	}
	s.seen[id] = struct{}{}
	if s.maxSize > 0 {
		s.order = append(s.order, id)
	}
	return false
}

func (s *seenSet) Unrecord(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The stale slot in order is skipped during eviction.
	delete(s.seen, id)
}

func (s *seenSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// evictOldest drops the oldest still-tracked id. Slots whose id was already
// unrecorded are skipped. Must be called with s.mu held.
func (s *seenSet) evictOldest() {
	for s.head < len(s.order) {
		id := s.order[s.head]
		s.head++
		if _, ok := s.seen[id]; ok {
			delete(s.seen, id)
			break
		}
	}
	// Compact once the dead prefix dominates the slice.
	if s.head > len(s.order)/2 {
		s.order = append([]string(nil), s.order[s.head:]...)
		s.head = 0
	}
}
