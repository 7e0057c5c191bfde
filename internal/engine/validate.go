package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/lazypower/rapport/internal/features"
)

// parseFeatureResponse pulls the feature object out of a model reply.
// Code fences and surrounding prose are tolerated.
func parseFeatureResponse(content string) (features.Vector, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		// Remove first and last lines (```json and ```)
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	content = strings.TrimSpace(content)

	// Find the JSON object
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < 0 || end <= start {
		return features.Vector{}, fmt.Errorf("no JSON object found in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return features.Vector{}, fmt.Errorf("unmarshal features: %w", err)
	}
	return validateFeatures(raw), nil
}

// validateFeatures coerces a decoded object into a clamped, rounded vector.
// Missing, null or non-numeric signals become 0; unknown keys are ignored.
func validateFeatures(raw map[string]any) features.Vector {
	m := make(map[string]float64, 6)
	for _, name := range features.SignalNames() {
		m[name] = coerceSignal(raw[name])
	}
	return features.FromMap(m).Clamp().Round()
}

func coerceSignal(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// truncateClean truncates a string to maxLen, cutting at the last word boundary
// to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back up to last space
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-40 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
