package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/acheong08/credscore/pkg/models"
)

// Normalize turns a decoded scorer payload into an Outcome. It returns
// ErrRejectedPayload when raw is not an object or carries no numeric
// credibility score.
func Normalize(raw any) (models.Outcome, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return models.Outcome{}, fmt.Errorf("%w: payload is %T, not an object", ErrRejectedPayload, raw)
	}

	scoreValue, ok := obj[fieldScore]
	if !ok {
		scoreValue, ok = obj[fieldScoreCamel]
	}
	if !ok {
		return models.Outcome{}, fmt.Errorf("%w: missing %s", ErrRejectedPayload, fieldScore)
	}
	score, ok := toFloat(scoreValue)
	if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
		return models.Outcome{}, fmt.Errorf("%w: %s is not a number", ErrRejectedPayload, fieldScore)
	}
	credibility := clampScore(score)

	flags := upstreamFlags(obj)
	details, _ := obj[fieldDetails].(map[string]any)
	if v, ok := indicator(details, fieldFactual); ok && v < lowFactualAlignment {
		flags = append(flags, FlagFactualInaccuracies)
	}
	if v, ok := indicator(details, fieldManipulation); ok && v > highLanguageManipulation {
		flags = append(flags, FlagLanguageManipulation)
	}
	if v, ok := indicator(details, fieldConsistency); ok && v < lowLogicalConsistency {
		flags = append(flags, FlagLogicalInconsistency)
	}
	if credibility < lowCredibilityScore {
		flags = append(flags, FlagLowCredibility)
	}

	explanation, _ := obj[fieldExplanation].(string)
	if strings.TrimSpace(explanation) == "" {
		explanation = synthesizeExplanation(len(flags))
	}

	return models.Outcome{
		CredibilityScore: credibility,
		RedFlags:         flags,
		Explanation:      explanation,
		IsSynthetic:      false,
	}, nil
}

func clampScore(score float64) int {
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// upstreamFlags keeps any non-empty string flags the scorer sent itself
func upstreamFlags(obj map[string]any) []string {
	list, ok := obj[fieldRedFlags].([]any)
	if !ok {
		list, _ = obj[fieldRedFlagsCamel].([]any)
	}

	flags := make([]string, 0, len(list)+4)
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			flags = append(flags, s)
		}
	}
	return flags
}

func indicator(details map[string]any, key string) (float64, bool) {
	if details == nil {
		return 0, false
	}
	v, ok := details[key]
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// toFloat coerces JSON numbers, json.Number and numeric strings
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func synthesizeExplanation(flagCount int) string {
	if flagCount == 0 {
		return "This content meets basic credibility standards. Individual claims should still be verified against trusted sources."
	}
	noun := "concerns"
	if flagCount == 1 {
		noun = "concern"
	}
	return fmt.Sprintf("Analysis identified %d potential credibility %s. Cross-verify this content with trusted sources before relying on or sharing it.", flagCount, noun)
}
