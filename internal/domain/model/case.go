// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/verdict/internal/domain/outcome"
)

// CaseFeatures is the normalized numeric description of a legal case used as
// prediction input. Every field is conceptually a [0,1] score produced by
// feature extraction upstream of this service; backends read it as-is.
type CaseFeatures struct {
	CaseTypeFit          float64 `json:"case_type_fit"`         // how well the case matches known case types
	JurisdictionFit      float64 `json:"jurisdiction_fit"`      // familiarity of the filing jurisdiction
	Complexity           float64 `json:"complexity"`            // procedural and factual complexity
	EvidenceStrength     float64 `json:"evidence_strength"`     // strength of the plaintiff's evidence
	CaseValue            float64 `json:"case_value"`            // claim value, normalized
	JudgeFavorability    float64 `json:"judge_favorability"`    // assigned judge's historical lean
	PrecedentAlignment   float64 `json:"precedent_alignment"`   // alignment with controlling precedent
	PlaintiffAdvantage   float64 `json:"plaintiff_advantage"`   // structural advantages on the plaintiff side
	DefendantAdvantage   float64 `json:"defendant_advantage"`   // structural advantages on the defendant side
	SettlementLikelihood float64 `json:"settlement_likelihood"` // prior likelihood the parties settle
}

// CaseRecord is one labeled historical case used to train backends.
type CaseRecord struct {
	CaseID    string          `json:"case_id"`
	Outcome   outcome.Outcome `json:"outcome"`
	Features  CaseFeatures    `json:"features"`
	Narrative string          `json:"narrative,omitempty"`
	DecidedAt time.Time       `json:"decided_at,omitzero"`
}

// CaseJob is one batch-scoring request flowing through the queue.
type CaseJob struct {
	JobID     string       // unique id for idempotency
	CaseID    string       // subject case identifier
	Features  CaseFeatures // extracted feature scores
	Narrative string       // free-text case narrative, may be empty
}
