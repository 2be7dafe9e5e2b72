// Package ensemble combines heterogeneous prediction backends into a single
// weighted outcome distribution, tolerating per-backend failure.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/verdict/internal/domain/backend"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Method names the combination strategy recorded in ensemble metadata.
type Method string

// Combination methods.
const (
	// MethodWeightedEnsemble is the normal path: a weighted blend over the
	// backends that responded.
	MethodWeightedEnsemble Method = "weighted_ensemble"

	// MethodDefaultFallback marks a total-failure response built entirely
	// from the ensemble-level defaults.
	MethodDefaultFallback Method = "default_fallback"
)

// fallbackConfidence is the fixed low confidence attached when every backend
// failed. The contract favors a hedged answer over an outage.
const fallbackConfidence = 0.20

// Sentinel error kinds for this package.
var (
	ErrNoMembers     = errors.New("ensemble requires at least one member")
	ErrInvalidWeight = errors.New("member weight must be non-negative")
)

// Member pairs a backend with its configured blend weight. Weights are fixed
// at construction; effective weights are re-derived per request over the
// members that actually responded.
type Member struct {
	Backend backend.Backend
	Weight  float64
}

// Combined is the per-request ensemble output: a normalized distribution,
// a blended confidence, and metadata describing how it was produced.
type Combined struct {
	Probabilities outcome.Distribution `json:"probabilities"`
	Confidence    float64              `json:"confidence"`
	ModelsUsed    int                  `json:"models_used"`
	TotalModels   int                  `json:"total_models"`
	Method        Method               `json:"prediction_method"`
}

// Ensemble coordinates concurrent backend calls for one request. It is
// constructed once by the owning application and injected into callers; it
// carries no request state.
type Ensemble struct {
	members  []Member
	fallback outcome.Distribution
	logger   logger.Logger
}

// New constructs an ensemble over the given members.
func New(members []Member, opts ...Option) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	for _, m := range members {
		if m.Weight < 0 {
			return nil, fmt.Errorf("%w: %s has weight %f", ErrInvalidWeight, m.Backend.Name(), m.Weight)
		}
	}

	e := &Ensemble{
		members: members,
		fallback: outcome.Distribution{
			outcome.PlaintiffWin: 0.30,
			outcome.DefendantWin: 0.30,
			outcome.Settlement:   0.25,
			outcome.Dismissed:    0.15,
		},
		logger: logger.Get().Named("ensemble"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Size returns the number of configured members.
func (e *Ensemble) Size() int { return len(e.members) }

// Train forwards labeled history to every member. Members are trained
// sequentially; training is expected to be strictly sequenced before serving.
func (e *Ensemble) Train(ctx context.Context, history []model.CaseRecord) error {
	var errs []error
	for _, m := range e.members {
		if err := m.Backend.Train(ctx, history); err != nil {
			errs = append(errs, fmt.Errorf("train %s: %w", m.Backend.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// settled is one member's terminal state for a request.
type settled struct {
	member Member
	pred   outcome.Prediction
	err    error
}

// Predict fans out to all members concurrently, waits for every task to
// settle, and blends the survivors. Backend errors are logged and absorbed;
// the only total-failure mode is the documented fallback result, never an
// error to the caller.
func (e *Ensemble) Predict(ctx context.Context, features model.CaseFeatures, narrative string) Combined {
	results := make([]settled, len(e.members))

	var wg sync.WaitGroup
	for i, m := range e.members {
		wg.Add(1)
		go func(i int, m Member) {
			defer wg.Done()
			pred, err := m.Backend.Predict(ctx, features, narrative)
			results[i] = settled{member: m, pred: pred, err: err}
		}(i, m)
	}
	// All tasks must settle before combining; a fast subset is never blended
	// on its own.
	wg.Wait()

	succeeded := results[:0:0]
	for _, r := range results {
		if r.err != nil {
			e.logger.Warn(ctx, "backend failed, excluded from blend",
				logger.String("backend", r.member.Backend.Name()),
				logger.Error(r.err),
			)
			metrics.RecordBackendFailure(r.member.Backend.Name())
			continue
		}
		succeeded = append(succeeded, r)
	}

	if len(succeeded) == 0 {
		e.logger.Error(ctx, "all backends failed, returning fallback prediction")
		metrics.RecordPrediction(string(MethodDefaultFallback))
		return Combined{
			Probabilities: e.fallback.Clone(),
			Confidence:    fallbackConfidence,
			ModelsUsed:    0,
			TotalModels:   len(e.members),
			Method:        MethodDefaultFallback,
		}
	}

	// Re-derive weights over the surviving subset: a member that did not
	// respond contributes neither signal nor weight.
	var weightSum float64
	for _, r := range succeeded {
		weightSum += r.member.Weight
	}

	blended := make(outcome.Distribution, len(outcome.All()))
	var confidence float64
	for _, r := range succeeded {
		w := r.member.Weight
		if weightSum > 0 {
			w /= weightSum
		} else {
			// All surviving weights are zero; fall back to an even split.
			w = 1 / float64(len(succeeded))
		}
		for _, o := range outcome.All() {
			blended[o] += r.pred.Probabilities[o] * w
		}
		confidence += r.pred.Confidence * w
	}

	// Final defensive renormalization: upstream normalization is not
	// guaranteed, especially after partial-key calibration fills.
	normalized, ok := blended.Normalize()
	if !ok {
		normalized = e.fallback.Clone()
	}

	metrics.RecordPrediction(string(MethodWeightedEnsemble))
	metrics.ObserveEnsembleConfidence(confidence)
	metrics.ObserveModelsUsed(len(succeeded))

	return Combined{
		Probabilities: normalized,
		Confidence:    confidence,
		ModelsUsed:    len(succeeded),
		TotalModels:   len(e.members),
		Method:        MethodWeightedEnsemble,
	}
}
