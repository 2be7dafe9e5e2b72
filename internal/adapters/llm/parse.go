package llm

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/verdict/internal/domain/outcome"
)

// parseResult is the explicit outcome of response extraction: either a
// populated (possibly partial, then normalized) distribution, or a "nothing
// usable" signal from parseResponse's second return value. No exceptions-y
// control flow.
type parseResult struct {
	// Probabilities holds only the outcome keys actually found in the
	// response, normalized to sum to 1 over that subset.
	Probabilities outcome.Distribution
	// Confidence is valid only when ConfidenceFound is true.
	Confidence      float64
	ConfidenceFound bool
	KeyFactors      []string
}

// responseSchema mirrors the JSON shape the prompt requests.
type responseSchema struct {
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    *float64           `json:"confidence"`
	KeyFactors    []string           `json:"key_factors"`
}

// labelPatterns extract "label: value" pairs when the JSON path fails. One
// pattern per outcome so a partially garbled response still yields a subset.
var labelPatterns = func() map[outcome.Outcome]*regexp.Regexp {
	m := make(map[outcome.Outcome]*regexp.Regexp, len(outcome.All()))
	for _, o := range outcome.All() {
		m[o] = regexp.MustCompile(`(?i)"?` + string(o) + `"?\s*[:=]\s*([0-9]*\.?[0-9]+)`)
	}
	return m
}()

var confidencePattern = regexp.MustCompile(`(?i)"?confidence"?\s*[:=]\s*([0-9]*\.?[0-9]+)`)

// parseResponse extracts probabilities from raw model output. Structured JSON
// is preferred; free-text label extraction is the fallback. ok is false when
// no outcome key could be recovered.
func parseResponse(raw string) (parseResult, bool) {
	if result, ok := parseJSON(raw); ok {
		return result, true
	}
	return parseLabels(raw)
}

// parseJSON tries the widest {...} slice of the response, tolerating code
// fences and prose around the object. Flat objects carrying outcome keys at
// the top level are accepted as well.
func parseJSON(raw string) (parseResult, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return parseResult{}, false
	}

	var schema responseSchema
	if err := json.Unmarshal([]byte(raw[start:end+1]), &schema); err != nil {
		return parseResult{}, false
	}

	source := schema.Probabilities
	if len(source) == 0 {
		// Flat shape: outcome labels at the top level.
		var flat map[string]float64
		if err := json.Unmarshal([]byte(raw[start:end+1]), &flat); err != nil {
			return parseResult{}, false
		}
		source = flat
	}

	probs := make(outcome.Distribution)
	for label, v := range source {
		o := outcome.Outcome(strings.ToLower(strings.TrimSpace(label)))
		if o.IsValid() && isUsable(v) {
			probs[o] = v
		}
	}
	normalized, ok := probs.Normalize()
	if !ok {
		return parseResult{}, false
	}

	result := parseResult{Probabilities: normalized, KeyFactors: schema.KeyFactors}
	if schema.Confidence != nil && isUsable(*schema.Confidence) {
		result.Confidence = *schema.Confidence
		result.ConfidenceFound = true
	}
	return result, true
}

// parseLabels scrapes "label: value" pairs out of free text.
func parseLabels(raw string) (parseResult, bool) {
	probs := make(outcome.Distribution)
	for o, pattern := range labelPatterns {
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || !isUsable(v) {
			continue
		}
		probs[o] = v
	}
	normalized, ok := probs.Normalize()
	if !ok {
		return parseResult{}, false
	}

	result := parseResult{Probabilities: normalized}
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && isUsable(v) {
			result.Confidence = v
			result.ConfidenceFound = true
		}
	}
	return result, true
}

// isUsable rejects values that would poison a blend.
func isUsable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
