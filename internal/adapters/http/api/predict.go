package api

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
)

// predictRequest mirrors the POST /predict body.
type predictRequest struct {
	Features  model.CaseFeatures `json:"features"`
	Narrative string             `json:"narrative,omitempty"`
}

// PredictHandler handles synchronous prediction requests.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := service.ValidateFeatures(req.Features); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_features", err)
		return
	}

	combined, err := h.deps.PredictCaseOutcome(r.Context(), req.Features, req.Narrative)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotStarted):
			writeError(w, http.StatusServiceUnavailable, "not_ready", err)
		case errors.Is(err, service.ErrInvalidFeatures):
			writeError(w, http.StatusBadRequest, "invalid_features", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, combined)
}
