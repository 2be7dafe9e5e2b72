package ensemble

import (
	"github.com/okian/verdict/internal/domain/outcome"
	"github.com/okian/verdict/pkg/logger"
)

// Option applies a configuration option to the Ensemble.
type Option func(*Ensemble)

// WithFallback overrides the distribution returned when every backend fails.
func WithFallback(d outcome.Distribution) Option {
	return func(e *Ensemble) {
		if err := d.Validate(); err == nil {
			e.fallback = d.Clone()
		}
	}
}

// WithLogger sets a custom logger for the ensemble.
func WithLogger(l logger.Logger) Option {
	return func(e *Ensemble) {
		if l != nil {
			e.logger = l
		}
	}
}
