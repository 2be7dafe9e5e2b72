package backend

import (
	"context"
	"sync"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
)

// Statistical backend tuning constants.
const (
	// StatisticalName identifies the statistical backend.
	StatisticalName = "statistical"

	evidenceShiftScale  = 0.2  // shift per unit of evidence-strength deviation from neutral
	settlementBoost     = 0.3  // maximum additive boost from settlement likelihood
	settlementCap       = 0.8  // ceiling on the settlement bucket after boosting
	judgeShiftScale     = 0.15 // shift per unit of judge-favorability deviation from neutral
	neutralMidpoint     = 0.5
	maxConfidence       = 0.70 // confidence when every completeness feature is populated
	completenessFeature = 5    // number of features in the completeness proxy
)

// Option applies a configuration option to the Statistical backend.
type Option func(*Statistical)

// WithDefaults overrides the distribution used when the backend is untrained
// or an adjustment zeroes out all probability mass.
func WithDefaults(d outcome.Distribution) Option {
	return func(s *Statistical) {
		if err := d.Validate(); err == nil {
			s.defaults = d.Clone()
		}
	}
}

// Statistical predicts from empirical outcome frequencies over labeled
// history, nudged by a handful of case features. It is the only backend that
// never leaves the process: pure in-memory computation, no network calls.
type Statistical struct {
	mu       sync.RWMutex
	base     outcome.Distribution // empirical frequencies; empty until trained
	defaults outcome.Distribution
}

// NewStatistical creates a statistical backend with configuration options.
func NewStatistical(opts ...Option) *Statistical {
	s := &Statistical{
		defaults: outcome.Distribution{
			outcome.PlaintiffWin: 0.30,
			outcome.DefendantWin: 0.25,
			outcome.Settlement:   0.35,
			outcome.Dismissed:    0.10,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Backend.
func (s *Statistical) Name() string { return StatisticalName }

// Train computes base outcome probabilities as empirical frequencies over the
// historical outcomes. Records with unknown labels are skipped. An empty (or
// all-invalid) history clears the base map so Predict falls back to defaults.
func (s *Statistical) Train(_ context.Context, history []model.CaseRecord) error {
	counts := make(map[outcome.Outcome]int)
	total := 0
	for _, rec := range history {
		if !rec.Outcome.IsValid() {
			continue
		}
		counts[rec.Outcome]++
		total++
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if total == 0 {
		s.base = nil
		return nil
	}
	base := make(outcome.Distribution, len(counts))
	for o, n := range counts {
		base[o] = float64(n) / float64(total)
	}
	s.base = base
	return nil
}

// Base returns a copy of the trained base distribution, or nil if untrained.
func (s *Statistical) Base() outcome.Distribution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.base == nil {
		return nil
	}
	return s.base.Clone()
}

// Predict starts from the trained base probabilities (defaults if untrained),
// applies three independent feature nudges, floors at zero, and renormalizes.
func (s *Statistical) Predict(_ context.Context, features model.CaseFeatures, _ string) (outcome.Prediction, error) {
	base := s.Base()
	var probs outcome.Distribution
	if base == nil {
		probs = s.defaults.Clone()
	} else {
		// A trained base omits outcomes never seen in history; give those an
		// explicit zero so the adjustments below still have a key to act on.
		probs = make(outcome.Distribution, len(outcome.All()))
		for _, o := range outcome.All() {
			probs[o] = base[o]
		}
	}

	// Evidence strength shifts plaintiff up and defendant down.
	evidenceShift := (features.EvidenceStrength - neutralMidpoint) * evidenceShiftScale
	probs[outcome.PlaintiffWin] += evidenceShift
	probs[outcome.DefendantWin] -= evidenceShift

	// Settlement likelihood boosts the settlement bucket, capped.
	boosted := probs[outcome.Settlement] + features.SettlementLikelihood*settlementBoost
	if boosted > settlementCap {
		boosted = settlementCap
	}
	probs[outcome.Settlement] = boosted

	// Judge favorability shifts the plaintiff/defendant split.
	judgeShift := (features.JudgeFavorability - neutralMidpoint) * judgeShiftScale
	probs[outcome.PlaintiffWin] += judgeShift
	probs[outcome.DefendantWin] -= judgeShift

	for o, v := range probs {
		if v < 0 {
			probs[o] = 0
		}
	}

	normalized, ok := probs.Normalize()
	if !ok {
		normalized = s.defaults.Clone()
	}

	return outcome.Prediction{
		Probabilities: normalized,
		Confidence:    s.confidence(features),
	}, nil
}

// confidence is a data-quality proxy: the fraction of the five completeness
// features that carry any signal, scaled by the backend's ceiling.
func (s *Statistical) confidence(f model.CaseFeatures) float64 {
	populated := 0
	for _, v := range []float64{
		f.CaseTypeFit,
		f.JurisdictionFit,
		f.EvidenceStrength,
		f.JudgeFavorability,
		f.PrecedentAlignment,
	} {
		if v != 0 {
			populated++
		}
	}
	return maxConfidence * float64(populated) / float64(completenessFeature)
}
