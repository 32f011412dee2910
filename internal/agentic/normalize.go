package agentic

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// Alias map from messy model-emitted tool names to the strict set.
var toolAliases = map[string]ToolName{
	// snapshot
	"get_snapshot":   ToolGetSnapshot,
	"snapshot":       ToolGetSnapshot,
	"get_quote":      ToolGetSnapshot,
	"quote":          ToolGetSnapshot,
	"price_snapshot": ToolGetSnapshot,
	// candidates
	"get_top_candidates": ToolGetTopCandidates,
	"top_candidates":     ToolGetTopCandidates,
	"candidates":         ToolGetTopCandidates,
	"rank_candidates":    ToolGetTopCandidates,
	"select_candidates":  ToolGetTopCandidates,
	// rejections
	"explain_filter_rejections": ToolExplainFilterRejections,
	"filter_rejections":         ToolExplainFilterRejections,
	"rejections":                ToolExplainFilterRejections,
	"explain_rejections":        ToolExplainFilterRejections,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
var multiUnderscore = regexp.MustCompile(`_+`)

func slugifyToolName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeToolName converts a raw tool name into a whitelisted ToolName.
// The second return is false for unknown or empty names.
func NormalizeToolName(raw string) (ToolName, bool) {
	slug := slugifyToolName(raw)
	if slug == "" {
		return "", false
	}
	for _, t := range AllTools {
		if slug == string(t) {
			return t, true
		}
	}
	t, ok := toolAliases[slug]
	return t, ok
}

// CoerceArgs forces raw tool arguments into a map. Accepts an object, a
// JSON-string-encoded object, or nothing; anything else collapses to an
// empty map. Common ticker key variants fold into "ticker".
func CoerceArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}

	var d map[string]any
	if err := json.Unmarshal(raw, &d); err != nil || d == nil {
		// Maybe a JSON string containing an object.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return map[string]any{}
		}
		if err := json.Unmarshal([]byte(s), &d); err != nil || d == nil {
			return map[string]any{}
		}
	}

	if _, ok := d["ticker"]; !ok {
		for _, k := range []string{"symbol", "underlying", "asset", "stock"} {
			if v, ok := d[k]; ok {
				d["ticker"] = v
				delete(d, k)
				break
			}
		}
	}
	return d
}

// CoerceStance maps loose model stance strings onto the closed enum.
func CoerceStance(raw string) models.Stance {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BULLISH", "BULL", "LONG", "BUY":
		return models.StanceBullish
	case "BEARISH", "BEAR", "SHORT", "SELL":
		return models.StanceBearish
	default:
		return models.StanceNeutral
	}
}

// CoerceBias maps loose model bias strings onto the closed enum.
func CoerceBias(raw string) models.Bias {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UPSIDE", "UP", "GROWTH":
		return models.BiasUpside
	case "CAUTION", "DEFENSIVE", "RISK_OFF":
		return models.BiasCaution
	default:
		return models.BiasIncome
	}
}
