package api

import (
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
)

// caseRequest mirrors the POST /cases body for batch scoring.
type caseRequest struct {
	CaseID    string             `json:"case_id"`
	Features  model.CaseFeatures `json:"features"`
	Narrative string             `json:"narrative,omitempty"`
}

func (c caseRequest) validate() error {
	if strings.TrimSpace(c.CaseID) == "" {
		return errMissingField("case", 0, "case_id")
	}
	return service.ValidateFeatures(c.Features)
}

type caseResponse struct {
	Status    string `json:"status"`
	JobID     string `json:"job_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// CasesHandler handles batch-scoring submission and result retrieval.
type CasesHandler struct {
	deps Dependencies
}

// NewCasesHandler creates a new cases handler.
func NewCasesHandler(deps Dependencies) *CasesHandler {
	return &CasesHandler{deps: deps}
}

// HandleSubmitCase handles POST /cases requests.
func (h *CasesHandler) HandleSubmitCase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	jobID, duplicate, ok := h.deps.EnqueueCase(r.Context(), req.CaseID, req.Features, req.Narrative)
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, caseResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, caseResponse{Status: "accepted", JobID: jobID})
}

// HandleGetPrediction handles GET /cases/{case_id}/prediction requests.
func (h *CasesHandler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/cases/")
	caseID, ok := strings.CutSuffix(path, "/prediction")
	if !ok || caseID == "" || strings.Contains(caseID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	combined, err := h.deps.Result(r.Context(), caseID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, combined)
}
