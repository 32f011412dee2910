package fundamentals

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// Divergence dimension weights. Stance disagreement dominates, bias
// refines, confidence gaps matter least.
const (
	weightStance     = 0.45
	weightBias       = 0.30
	weightConfidence = 0.25
)

// MissingInputNote is recorded when one side of the comparison is absent.
const MissingInputNote = "det_fundamentals or (agentic_fundamentals/llm_fundamentals) missing"

var stanceScale = map[models.Stance]float64{
	models.StanceBearish: -1,
	models.StanceNeutral: 0,
	models.StanceBullish: 1,
}

var biasScale = map[models.Bias]float64{
	models.BiasCaution: -1,
	models.BiasIncome:  0,
	models.BiasUpside:  1,
}

// SeverityForScore maps a divergence score onto the fixed band set.
// The band set is closed: ALIGNED, MINOR, MAJOR, CRITICAL.
func SeverityForScore(score float64) models.Severity {
	switch {
	case score < 0.20:
		return models.SeverityAligned
	case score < 0.40:
		return models.SeverityMinor
	case score < 0.65:
		return models.SeverityMajor
	default:
		return models.SeverityCritical
	}
}

// ActionHint returns the operator guidance for a severity band.
func ActionHint(sev models.Severity) string {
	switch sev {
	case models.SeverityAligned:
		return "Proceed with deterministic recommendation"
	case models.SeverityMinor:
		return "Proceed but annotate LLM nuance"
	case models.SeverityMajor:
		return "Surface both views to user (or trigger debate)"
	default:
		return "Require manual review or run debate/second pass"
	}
}

// CompareViews quantifies the disagreement between the deterministic
// view and the LLM/agentic view. Either side may be nil, which yields a
// zero-score ALIGNED report with an explanatory note instead of an error.
func CompareViews(det, cmp *models.View) *models.DivergenceReport {
	if det == nil || cmp == nil {
		return &models.DivergenceReport{
			Score:      0.0,
			Severity:   models.SeverityAligned,
			Stance:     [2]models.Stance{models.StanceNeutral, models.StanceNeutral},
			Bias:       [2]models.Bias{models.BiasIncome, models.BiasIncome},
			Confidence: [2]float64{0.5, 0.5},
			ActionHint: ActionHint(models.SeverityAligned),
			Notes:      MissingInputNote,
		}
	}

	// Unknown enum values degrade to the neutral midpoint.
	sDet, sCmp := stanceScale[det.Stance], stanceScale[cmp.Stance]
	bDet, bCmp := biasScale[det.Bias], biasScale[cmp.Bias]

	stanceDiv := math.Abs(sDet-sCmp) / 2.0
	biasDiv := math.Abs(bDet-bCmp) / 2.0
	confDiv := math.Min(math.Abs(det.Confidence-cmp.Confidence), 0.5) / 0.5

	score := weightStance*stanceDiv + weightBias*biasDiv + weightConfidence*confDiv
	score = math.Max(0.0, math.Min(1.0, score))
	sev := SeverityForScore(score)

	return &models.DivergenceReport{
		Score:                round3(score),
		Severity:             sev,
		Stance:               [2]models.Stance{det.Stance, cmp.Stance},
		Bias:                 [2]models.Bias{det.Bias, cmp.Bias},
		Confidence:           [2]float64{round3(det.Confidence), round3(cmp.Confidence)},
		StanceDivergence:     round3(stanceDiv),
		BiasDivergence:       round3(biasDiv),
		ConfidenceDivergence: round3(confDiv),
		ActionHint:           ActionHint(sev),
	}
}

// FormatDivergenceReport renders the human-readable divergence block
// used in CLI output and report appendices.
func FormatDivergenceReport(rep *models.DivergenceReport) string {
	if rep == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("DIVERGENCE REPORT\n")
	b.WriteString("-----------------\n")
	fmt.Fprintf(&b, "Score:      %v\n", rep.Score)
	fmt.Fprintf(&b, "Severity:   %s\n\n", rep.Severity)
	fmt.Fprintf(&b, "Stance:     DET=%s | LLM=%s\n", rep.Stance[0], rep.Stance[1])
	fmt.Fprintf(&b, "Bias:       DET=%s  | LLM=%s\n", rep.Bias[0], rep.Bias[1])
	fmt.Fprintf(&b, "Confidence: DET=%v  | LLM=%v\n\n", rep.Confidence[0], rep.Confidence[1])
	fmt.Fprintf(&b, "Action:     %s\n", rep.ActionHint)
	if rep.Notes != "" {
		fmt.Fprintf(&b, "Notes:      %s\n", rep.Notes)
	}
	return b.String()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
