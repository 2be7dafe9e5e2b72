package llm

import (
	"fmt"
	"strings"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
)

// maxNarrativeChars bounds the narrative excerpt embedded in the prompt so a
// long filing cannot blow the token budget.
const maxNarrativeChars = 2000

// summarizeHistory condenses labeled history into one line of outcome counts
// for the prompt. Returns an empty string for empty history.
func summarizeHistory(history []model.CaseRecord) string {
	if len(history) == 0 {
		return ""
	}
	counts := make(map[outcome.Outcome]int)
	total := 0
	for _, rec := range history {
		if !rec.Outcome.IsValid() {
			continue
		}
		counts[rec.Outcome]++
		total++
	}
	if total == 0 {
		return ""
	}
	parts := make([]string, 0, len(counts))
	for _, o := range outcome.All() {
		if n := counts[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", o, n))
		}
	}
	return fmt.Sprintf("%d resolved cases (%s)", total, strings.Join(parts, ", "))
}

// buildPrompt renders the deterministic prediction prompt: same summary,
// features, and narrative always produce the same prompt text.
func buildPrompt(summary string, f model.CaseFeatures, narrative string) string {
	var sb strings.Builder
	sb.WriteString("You are a litigation outcome model. Estimate the probability of each ")
	sb.WriteString("outcome for the civil case described below.\n\n")

	if summary != "" {
		sb.WriteString("Historical context: ")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}

	if narrative != "" {
		excerpt := narrative
		if len(excerpt) > maxNarrativeChars {
			excerpt = excerpt[:maxNarrativeChars]
		}
		sb.WriteString("Case narrative:\n")
		sb.WriteString(excerpt)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Normalized feature scores (0-1):\n")
	for _, row := range []struct {
		label string
		value float64
	}{
		{"case_type_fit", f.CaseTypeFit},
		{"jurisdiction_fit", f.JurisdictionFit},
		{"complexity", f.Complexity},
		{"evidence_strength", f.EvidenceStrength},
		{"case_value", f.CaseValue},
		{"judge_favorability", f.JudgeFavorability},
		{"precedent_alignment", f.PrecedentAlignment},
		{"plaintiff_advantage", f.PlaintiffAdvantage},
		{"defendant_advantage", f.DefendantAdvantage},
		{"settlement_likelihood", f.SettlementLikelihood},
	} {
		fmt.Fprintf(&sb, "- %s: %.3f\n", row.label, row.value)
	}

	sb.WriteString("\nRespond with JSON only, exactly this shape:\n")
	sb.WriteString(`{"probabilities": {"plaintiff_win": 0.0, "defendant_win": 0.0, "settlement": 0.0, "dismissed": 0.0}, "confidence": 0.0, "key_factors": ["..."]}`)
	sb.WriteString("\nProbabilities must sum to 1.0. List 3-5 key factors.\n")
	return sb.String()
}
