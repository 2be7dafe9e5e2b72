// Package backend defines the capability contract shared by every
// outcome-prediction strategy, and the statistical implementation.
package backend

import (
	"context"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
)

// Backend is one independent prediction-producing strategy. Implementations
// are a closed set resolved when the ensemble is constructed: the statistical
// backend in this package and the LLM-backed adapters.
type Backend interface {
	// Name identifies the backend in logs, metrics, and ensemble metadata.
	Name() string

	// Train updates the backend from labeled history. It is idempotent and
	// may be a no-op for stateless backends. Train must not run concurrently
	// with itself; implementations guard against concurrent Predict calls.
	Train(ctx context.Context, history []model.CaseRecord) error

	// Predict produces a fully-populated prediction for one case. A backend
	// signals failure by returning an error; it never returns a prediction
	// with missing outcome keys.
	Predict(ctx context.Context, features model.CaseFeatures, narrative string) (outcome.Prediction, error)
}
