// Package api declares HTTP contracts and route registration helpers for the
// prediction service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the application service.
type Dependencies interface {
	// PredictCaseOutcome runs one synchronous ensemble prediction.
	PredictCaseOutcome(ctx context.Context, features model.CaseFeatures, narrative string) (ensemble.Combined, error)

	// TrainModels stores labeled records and retrains every backend.
	TrainModels(ctx context.Context, records []model.CaseRecord) error

	// EnqueueCase submits a case for asynchronous batch scoring.
	EnqueueCase(ctx context.Context, caseID string, features model.CaseFeatures, narrative string) (jobID string, duplicate, ok bool)

	// Result returns the stored batch-scoring result for a case.
	Result(ctx context.Context, caseID string) (ensemble.Combined, error)

	// Stats returns service statistics for monitoring.
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	predictHandler *PredictHandler
	trainHandler   *TrainHandler
	casesHandler   *CasesHandler
	statsHandler   *StatsHandler
	healthHandler  *HealthHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		predictHandler: NewPredictHandler(deps),
		trainHandler:   NewTrainHandler(deps),
		casesHandler:   NewCasesHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("/cases", MetricsMiddleware(s.casesHandler.HandleSubmitCase, "cases"))
	mux.HandleFunc("/cases/", MetricsMiddleware(s.casesHandler.HandleGetPrediction, "case_prediction"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates the store's not-found error to a 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrResultNotFound)
}
