// Package repository stores labeled case history used for training and the
// results of batch-scored cases.
package repository

import (
	"context"
	"sync"

	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/metrics"
)

// Store is the persistence contract for the prediction service. The MVP is
// in-memory; a database-backed implementation can replace it behind this
// interface.
type Store interface {
	// AddRecords appends labeled history used for training.
	AddRecords(ctx context.Context, records ...model.CaseRecord) error

	// Records returns a copy of the stored history.
	Records(ctx context.Context) []model.CaseRecord

	// RecordCount returns the number of stored history records.
	RecordCount(ctx context.Context) int

	// SaveResult stores the batch-scoring result for a case.
	SaveResult(ctx context.Context, caseID string, result ensemble.Combined) error

	// Result returns the stored result for a case.
	Result(ctx context.Context, caseID string) (ensemble.Combined, error)
}

// Option applies a configuration option to the memory store.
type Option func(*MemoryStore)

// WithMaxHistory bounds stored history; when exceeded, the oldest records are
// dropped first. Zero or negative means unbounded.
func WithMaxHistory(n int) Option {
	return func(s *MemoryStore) { s.maxHistory = n }
}

// MemoryStore implements Store with RWMutex-guarded maps.
type MemoryStore struct {
	mu         sync.RWMutex
	history    []model.CaseRecord
	results    map[string]ensemble.Combined
	maxHistory int
}

// NewMemoryStore creates an in-memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		results: make(map[string]ensemble.Combined),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRecords appends labeled history, trimming the oldest records beyond the
// configured bound.
func (s *MemoryStore) AddRecords(_ context.Context, records ...model.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, records...)
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		s.history = append([]model.CaseRecord(nil), s.history[len(s.history)-s.maxHistory:]...)
	}
	metrics.UpdateTrainingRecords(len(s.history))
	return nil
}

// Records returns a defensive copy of the stored history.
func (s *MemoryStore) Records(_ context.Context) []model.CaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CaseRecord, len(s.history))
	copy(out, s.history)
	return out
}

// RecordCount returns the number of stored history records.
func (s *MemoryStore) RecordCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// SaveResult stores the batch-scoring result for a case, overwriting any
// previous result.
func (s *MemoryStore) SaveResult(_ context.Context, caseID string, result ensemble.Combined) error {
	if caseID == "" {
		return ErrEmptyCaseID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[caseID] = result
	return nil
}

// Result returns the stored result for a case.
func (s *MemoryStore) Result(_ context.Context, caseID string) (ensemble.Combined, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[caseID]
	if !ok {
		return ensemble.Combined{}, ErrResultNotFound
	}
	return result, nil
}
