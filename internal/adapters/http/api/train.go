package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/verdict/internal/domain/model"
)

// trainRequest mirrors the POST /train body.
type trainRequest struct {
	Records []model.CaseRecord `json:"records"`
}

func (t trainRequest) validate() error {
	for i, rec := range t.Records {
		if strings.TrimSpace(rec.CaseID) == "" {
			return errMissingField("records", i, "case_id")
		}
		if !rec.Outcome.IsValid() {
			return errUnknownOutcome(i, string(rec.Outcome))
		}
	}
	return nil
}

type trainResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// TrainHandler handles training requests.
type TrainHandler struct {
	deps Dependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps Dependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

// HandleTrain handles POST /train requests. An empty record list retrains
// from already-stored history.
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.TrainModels(r.Context(), req.Records); err != nil {
		writeError(w, http.StatusInternalServerError, "train_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, trainResponse{Status: "trained", Records: len(req.Records)})
}
