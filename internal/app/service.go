// Package service provides the owning application around the prediction
// ensemble: it wires storage, dedupe, the batch pipeline, and the backends,
// and exposes the operations the HTTP API depends on.
package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/verdict/internal/adapters/llm"
	jobqueue "github.com/okian/verdict/internal/adapters/mq/queue"
	workerpool "github.com/okian/verdict/internal/adapters/mq/worker"
	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/backend"
	"github.com/okian/verdict/internal/domain/dedupe"
	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Default wiring constants.
const (
	defaultQueueSize   = 10_000
	defaultWorkerCount = 4
	defaultDedupeSize  = 50_000

	// Configured blend weights. They sum to 1 by construction; the ensemble
	// re-derives effective weights per request over responding backends.
	defaultStatisticalWeight = 0.25
	defaultGeminiWeight      = 0.40
	defaultOpenAIWeight      = 0.35
)

// LLMSettings carries the per-provider wiring for one LLM backend.
type LLMSettings struct {
	Enabled bool
	Weight  float64
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible endpoints only
}

// Service implements the API dependencies for the prediction system. The
// ensemble is constructed once here and injected into everything that needs
// it; there is no package-level predictor.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *jobqueue.InMemory
	ens     *ensemble.Ensemble
	pool    *workerpool.Pool

	// Configuration
	queueSize         int
	workerCount       int
	dedupeSize        int
	maxHistory        int
	statisticalWeight float64
	gemini            LLMSettings
	openai            LLMSettings
	members           []ensemble.Member // overrides backend construction when set

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize bounds the batch-scoring queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of batch-scoring workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize bounds the duplicate-submission cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithMaxHistory bounds stored training history.
func WithMaxHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithStatisticalWeight sets the statistical backend's blend weight.
func WithStatisticalWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 {
			s.statisticalWeight = w
		}
	}
}

// WithGemini configures the Gemini backend.
func WithGemini(settings LLMSettings) Option {
	return func(s *Service) { s.gemini = settings }
}

// WithOpenAI configures the OpenAI backend.
func WithOpenAI(settings LLMSettings) Option {
	return func(s *Service) { s.openai = settings }
}

// WithMembers injects fully-built ensemble members, bypassing backend
// construction. Used by tests and statistical-only deployments.
func WithMembers(members ...ensemble.Member) Option {
	return func(s *Service) { s.members = members }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:         defaultQueueSize,
		workerCount:       defaultWorkerCount,
		dedupeSize:        defaultDedupeSize,
		statisticalWeight: defaultStatisticalWeight,
		gemini:            LLMSettings{Weight: defaultGeminiWeight},
		openai:            LLMSettings{Weight: defaultOpenAIWeight},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = repository.NewMemoryStore(repository.WithMaxHistory(s.maxHistory))
	s.deduper = dedupe.New(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemory(jobqueue.WithCapacity(s.queueSize))

	members := s.members
	if len(members) == 0 {
		built, err := s.buildMembers(ctx)
		if err != nil {
			return err
		}
		members = built
	}

	ens, err := ensemble.New(members)
	if err != nil {
		return fmt.Errorf("build ensemble: %w", err)
	}
	s.ens = ens

	s.pool = workerpool.NewPool(s.workerCount, s.queue, ens, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("backends", ens.Size()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// buildMembers assembles the configured backend set. The statistical backend
// is always present; LLM backends join when enabled and configured.
func (s *Service) buildMembers(ctx context.Context) ([]ensemble.Member, error) {
	members := []ensemble.Member{
		{Backend: backend.NewStatistical(), Weight: s.statisticalWeight},
	}

	if s.gemini.Enabled {
		b, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: s.gemini.APIKey, Model: s.gemini.Model})
		if err != nil {
			return nil, fmt.Errorf("gemini backend: %w", err)
		}
		members = append(members, ensemble.Member{Backend: b, Weight: s.gemini.Weight})
	}

	if s.openai.Enabled {
		b, err := llm.NewOpenAI(llm.OpenAIConfig{APIKey: s.openai.APIKey, Model: s.openai.Model, BaseURL: s.openai.BaseURL})
		if err != nil {
			return nil, fmt.Errorf("openai backend: %w", err)
		}
		members = append(members, ensemble.Member{Backend: b, Weight: s.openai.Weight})
	}

	return members, nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// TrainModels stores any supplied labeled records and retrains every backend
// from the full stored history. Idempotent; callers may run it periodically.
func (s *Service) TrainModels(ctx context.Context, records []model.CaseRecord) error {
	s.mu.RLock()
	store, ens, started := s.store, s.ens, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if len(records) > 0 {
		if err := store.AddRecords(ctx, records...); err != nil {
			return fmt.Errorf("store records: %w", err)
		}
	}

	history := store.Records(ctx)
	if err := ens.Train(ctx, history); err != nil {
		return fmt.Errorf("train backends: %w", err)
	}

	metrics.RecordTrainingRun()
	s.logger.Info(ctx, "backends trained", logger.Int("records", len(history)))
	return nil
}

// PredictCaseOutcome runs one synchronous ensemble prediction. Backend-level
// failures never surface here; the result degrades through its metadata.
func (s *Service) PredictCaseOutcome(ctx context.Context, features model.CaseFeatures, narrative string) (ensemble.Combined, error) {
	s.mu.RLock()
	ens, started := s.ens, s.started
	s.mu.RUnlock()
	if !started {
		return ensemble.Combined{}, ErrNotStarted
	}
	if err := ValidateFeatures(features); err != nil {
		return ensemble.Combined{}, err
	}
	return ens.Predict(ctx, features, narrative), nil
}

// EnqueueCase submits a case for asynchronous batch scoring. Returns the job
// id, whether the case was already submitted, and whether it was accepted.
func (s *Service) EnqueueCase(ctx context.Context, caseID string, features model.CaseFeatures, narrative string) (jobID string, duplicate, ok bool) {
	s.mu.RLock()
	q, deduper, started := s.queue, s.deduper, s.started
	s.mu.RUnlock()
	if !started {
		return "", false, false
	}

	if deduper.SeenAndRecord(ctx, caseID) {
		metrics.RecordJobDuplicate()
		return "", true, true
	}

	job := model.CaseJob{
		JobID:     uuid.NewString(),
		CaseID:    caseID,
		Features:  features,
		Narrative: narrative,
	}
	if !q.Enqueue(ctx, job) {
		// Give the submission back so a retry is possible.
		deduper.Unrecord(ctx, caseID)
		return "", false, false
	}
	return job.JobID, false, true
}

// Result returns the stored batch-scoring result for a case.
func (s *Service) Result(ctx context.Context, caseID string) (ensemble.Combined, error) {
	s.mu.RLock()
	store, started := s.store, s.started
	s.mu.RUnlock()
	if !started {
		return ensemble.Combined{}, ErrNotStarted
	}
	return store.Result(ctx, caseID)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["trainingRecords"] = s.store.RecordCount(ctx)
		stats["backends"] = s.ens.Size()
		stats["pendingSubmissions"] = s.deduper.Size()
	}
	return stats
}

// ValidateFeatures rejects malformed input before it reaches the ensemble.
// Feature scores are conceptually [0,1]; out-of-range or non-finite values
// are programmer errors on the caller's side.
func ValidateFeatures(f model.CaseFeatures) error {
	for _, fv := range []struct {
		name  string
		value float64
	}{
		{"case_type_fit", f.CaseTypeFit},
		{"jurisdiction_fit", f.JurisdictionFit},
		{"complexity", f.Complexity},
		{"evidence_strength", f.EvidenceStrength},
		{"case_value", f.CaseValue},
		{"judge_favorability", f.JudgeFavorability},
		{"precedent_alignment", f.PrecedentAlignment},
		{"plaintiff_advantage", f.PlaintiffAdvantage},
		{"defendant_advantage", f.DefendantAdvantage},
		{"settlement_likelihood", f.SettlementLikelihood},
	} {
		if math.IsNaN(fv.value) || fv.value < 0 || fv.value > 1 {
			return fmt.Errorf("%w: %s=%f", ErrInvalidFeatures, fv.name, fv.value)
		}
	}
	return nil
}
