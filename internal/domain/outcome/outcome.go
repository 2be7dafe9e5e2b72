// Package outcome defines the closed set of case outcomes and the
// probability-distribution arithmetic shared by every prediction backend.
package outcome

import (
	"fmt"
	"math"
)

// Tolerance for treating a distribution as normalized.
const sumTolerance = 1e-6

// Outcome is one of the four terminal results of a litigated case.
type Outcome string

// The closed outcome set. Backends must never emit labels outside it.
const (
	PlaintiffWin Outcome = "plaintiff_win"
	DefendantWin Outcome = "defendant_win"
	Settlement   Outcome = "settlement"
	Dismissed    Outcome = "dismissed"
)

// String returns the outcome label.
func (o Outcome) String() string { return string(o) }

// IsValid reports whether o is a known outcome label.
func (o Outcome) IsValid() bool {
	switch o {
	case PlaintiffWin, DefendantWin, Settlement, Dismissed:
		return true
	default:
		return false
	}
}

// All returns the outcome labels in canonical order.
func All() []Outcome {
	return []Outcome{PlaintiffWin, DefendantWin, Settlement, Dismissed}
}

// Distribution maps each outcome to a probability. A valid distribution is
// fully populated, non-negative, and sums to 1 within tolerance; intermediate
// values produced while blending may temporarily break that.
type Distribution map[Outcome]float64

// Clone returns an independent copy of d.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Sum returns the total probability mass in d.
func (d Distribution) Sum() float64 {
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum
}

// Normalize returns a copy of d rescaled to sum to 1. If the total mass is
// zero or not finite, normalization is impossible and ok is false; callers
// decide the fallback.
func (d Distribution) Normalize() (Distribution, bool) {
	sum := d.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return d.Clone(), false
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v / sum
	}
	return out, true
}

// Validate checks that d covers all four outcomes with finite, non-negative
// probabilities summing to 1 within tolerance.
func (d Distribution) Validate() error {
	for _, o := range All() {
		v, ok := d[o]
		if !ok {
			return fmt.Errorf("distribution missing outcome %q", o)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("outcome %q has non-finite probability", o)
		}
		if v < 0 {
			return fmt.Errorf("outcome %q has negative probability %f", o, v)
		}
	}
	if sum := d.Sum(); math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("distribution sums to %f, want 1", sum)
	}
	return nil
}

// Prediction is the result shape every backend returns: a distribution over
// the four outcomes plus a confidence score in [0,1].
type Prediction struct {
	Probabilities Distribution
	Confidence    float64
}
