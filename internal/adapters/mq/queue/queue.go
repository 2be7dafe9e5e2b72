// Package queue defines the contract for buffering batch-scoring jobs
// between the HTTP layer and the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/metrics"
)

// defaultCapacity bounds the in-memory queue when no option overrides it.
const defaultCapacity = 10_000

// Job is the payload type flowing through the queue.
type Job = model.CaseJob

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns false on backpressure or a closed queue.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns the channel workers consume from. It is closed when
	// the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of buffered jobs.
	Len(ctx context.Context) int

	// Close stops the queue; subsequent enqueues fail and the dequeue
	// channel drains then closes.
	Close() error
}

// Option applies a configuration option to the in-memory queue.
type Option func(*InMemory)

// WithCapacity bounds the queue buffer.
func WithCapacity(n int) Option {
	return func(q *InMemory) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// InMemory implements Queue over a buffered channel.
type InMemory struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemory creates an in-memory queue with configuration options.
func NewInMemory(opts ...Option) *InMemory {
	q := &InMemory{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemory) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejection()
		return false
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordQueueRejection()
		return false
	default:
		// Buffer full: reject rather than block the submitter.
		metrics.RecordQueueRejection()
		return false
	}
}

// Dequeue returns the consumption channel.
func (q *InMemory) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len returns the number of buffered jobs.
func (q *InMemory) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close marks the queue closed and closes the jobs channel once no enqueue
// is in flight.
func (q *InMemory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}
