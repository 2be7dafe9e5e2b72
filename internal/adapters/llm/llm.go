// Package llm implements the two LLM-backed prediction backends. Both share
// one code path (prompt -> bounded-retry generation -> parse -> calibration
// fill) and differ only in the remote provider and calibration defaults.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Retry policy defaults: up to 3 attempts with exponential backoff starting
// at 4s and capped at 10s, applied uniformly to transport errors and
// unusable responses.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 4 * time.Second
	defaultMaxBackoff     = 10 * time.Second
)

// Sentinel error kinds for this package.
var (
	ErrMissingAPIKey = errors.New("missing api key")

	// errUnusableResponse marks a generation round-trip that succeeded at the
	// transport level but produced no extractable probabilities. It is
	// retryable and, after retry exhaustion, degrades to the calibration
	// defaults instead of surfacing.
	errUnusableResponse = errors.New("unusable model response")
)

// TextGenerator issues one remote text-generation call. It is the seam
// between the shared backend logic and a concrete provider client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Backend adapts a TextGenerator into the prediction backend contract.
type Backend struct {
	name string
	gen  TextGenerator

	// Calibration: what this provider falls back to when its output cannot
	// be parsed. The two providers carry slightly different defaults.
	defaults          outcome.Distribution
	defaultConfidence float64

	// Retry policy bounds.
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu      sync.RWMutex
	summary string // training summary embedded in every prompt

	logger logger.Logger
}

// Option applies a configuration option to the Backend.
type Option func(*Backend)

// WithCalibration sets the fallback distribution and confidence used when the
// provider's output yields nothing usable.
func WithCalibration(defaults outcome.Distribution, confidence float64) Option {
	return func(b *Backend) {
		if err := defaults.Validate(); err == nil {
			b.defaults = defaults.Clone()
		}
		if confidence >= 0 && confidence <= 1 {
			b.defaultConfidence = confidence
		}
	}
}

// WithRetryPolicy bounds the generation retry loop.
func WithRetryPolicy(maxAttempts int, initial, maxInterval time.Duration) Option {
	return func(b *Backend) {
		if maxAttempts > 0 {
			b.maxAttempts = maxAttempts
		}
		if initial > 0 {
			b.initialBackoff = initial
		}
		if maxInterval >= initial && maxInterval > 0 {
			b.maxBackoff = maxInterval
		}
	}
}

// WithLogger sets a custom logger for the backend.
func WithLogger(l logger.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates an LLM-backed prediction backend around gen.
func NewBackend(name string, gen TextGenerator, opts ...Option) *Backend {
	b := &Backend{
		name: name,
		gen:  gen,
		defaults: outcome.Distribution{
			outcome.PlaintiffWin: 0.35,
			outcome.DefendantWin: 0.30,
			outcome.Settlement:   0.25,
			outcome.Dismissed:    0.10,
		},
		defaultConfidence: 0.55,
		maxAttempts:       defaultMaxAttempts,
		initialBackoff:    defaultInitialBackoff,
		maxBackoff:        defaultMaxBackoff,
		logger:            logger.Get().Named(name),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Train condenses the labeled history into the short summary that every
// prompt embeds. Idempotent; safe to rerun as history grows.
func (b *Backend) Train(_ context.Context, history []model.CaseRecord) error {
	summary := summarizeHistory(history)
	b.mu.Lock()
	b.summary = summary
	b.mu.Unlock()
	return nil
}

// Predict builds the deterministic prompt, runs the bounded-retry generation
// loop, and parses the response. Transport failure after retry exhaustion is
// returned as an error; an unusable response degrades to the calibration
// defaults instead.
func (b *Backend) Predict(ctx context.Context, features model.CaseFeatures, narrative string) (outcome.Prediction, error) {
	b.mu.RLock()
	summary := b.summary
	b.mu.RUnlock()

	prompt := buildPrompt(summary, features, narrative)

	parsed, err := b.generateAndParse(ctx, prompt)
	if err != nil {
		if errors.Is(err, errUnusableResponse) {
			b.logger.Warn(ctx, "response unusable after retries, using calibration defaults",
				logger.String("backend", b.name),
			)
			metrics.RecordBackendDegraded(b.name)
			return outcome.Prediction{
				Probabilities: b.defaults.Clone(),
				Confidence:    b.defaultConfidence,
			}, nil
		}
		return outcome.Prediction{}, fmt.Errorf("%s predict: %w", b.name, err)
	}

	if len(parsed.KeyFactors) > 0 {
		b.logger.Debug(ctx, "model key factors",
			logger.String("backend", b.name),
			logger.Any("factors", parsed.KeyFactors),
		)
	}

	// The found subset was already normalized over the keys present; filling
	// the gaps from calibration can push the sum slightly off 1.0. The
	// ensemble's final renormalization accounts for that.
	probs := parsed.Probabilities.Clone()
	for _, o := range outcome.All() {
		if _, ok := probs[o]; !ok {
			probs[o] = b.defaults[o]
		}
	}

	confidence := b.defaultConfidence
	if parsed.ConfidenceFound {
		confidence = clamp01(parsed.Confidence)
	}

	return outcome.Prediction{Probabilities: probs, Confidence: confidence}, nil
}

// generateAndParse runs one generation attempt per retry tick. Both transport
// errors and unusable responses re-enter the backoff loop; they are only
// distinguished after the loop gives up.
func (b *Backend) generateAndParse(ctx context.Context, prompt string) (parseResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.initialBackoff
	bo.MaxInterval = b.maxBackoff
	bo.MaxElapsedTime = 0

	var parsed parseResult
	attempt := 0
	op := func() error {
		attempt++
		start := time.Now()
		raw, err := b.gen.Generate(ctx, prompt)
		metrics.RecordBackendLatency(b.name, float64(time.Since(start).Milliseconds()))
		if err != nil {
			b.logger.Warn(ctx, "generation attempt failed",
				logger.String("backend", b.name),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return fmt.Errorf("generate: %w", err)
		}

		result, ok := parseResponse(raw)
		if !ok {
			b.logger.Warn(ctx, "no probabilities extractable from response",
				logger.String("backend", b.name),
				logger.Int("attempt", attempt),
			)
			return errUnusableResponse
		}
		parsed = result
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(b.maxAttempts-1)), ctx))
	if err != nil {
		return parseResult{}, err
	}
	return parsed, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
