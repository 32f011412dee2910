package fundamentals

import (
	"fmt"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// Thresholds parameterize the deterministic evaluator.
type Thresholds struct {
	StrongGrowthPct     float64
	MinOperMarginPct    float64
	StrongOperMarginPct float64
	MaxDebtToEquity     float64
}

// DefaultThresholds returns the standard signal thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongGrowthPct:     5.0,
		MinOperMarginPct:    5.0,
		StrongOperMarginPct: 10.0,
		MaxDebtToEquity:     2.0,
	}
}

// Evaluation is the deterministic evaluator's output: the trimmed view
// plus the untruncated key points and risks for building a full report.
type Evaluation struct {
	View      *models.View
	KeyPoints []string
	Risks     []string
}

// Evaluate scores a snapshot against fixed thresholds. It is total:
// missing fields lower confidence and add risks but never fail the
// evaluation. Confidence is 0.8 with complete data, decaying by 0.1 per
// missing field down to a floor of 0.3.
func Evaluate(snap *models.Snapshot, th Thresholds) Evaluation {
	var points, risks []string
	bullish, bearish := 0, 0

	if g := snap.RevenueGrowthYoYPct; g != nil {
		points = append(points, fmt.Sprintf("Revenue growth YoY: %.1f%%", *g))
		if *g >= th.StrongGrowthPct {
			bullish++
		} else if *g < 0 {
			bearish++
		}
	} else {
		risks = append(risks, "Missing revenue growth data")
	}

	if m := snap.OperatingMarginPct; m != nil {
		points = append(points, fmt.Sprintf("Operating margin: %.1f%%", *m))
		if *m >= th.StrongOperMarginPct {
			bullish++
		} else if *m < th.MinOperMarginPct {
			bearish++
		}
	} else {
		risks = append(risks, "Missing operating margin data")
	}

	if d := snap.DebtToEquity; d != nil {
		points = append(points, fmt.Sprintf("Debt-to-equity: %.2f", *d))
		if *d > th.MaxDebtToEquity {
			bearish++
			risks = append(risks, "Leverage is elevated")
		}
	} else {
		risks = append(risks, "Missing leverage (debt-to-equity) data")
	}

	var stance models.Stance
	switch {
	case bearish >= 2:
		stance = models.StanceBearish
	case bullish >= 2 && bearish == 0:
		stance = models.StanceBullish
	default:
		stance = models.StanceNeutral
	}

	var bias models.Bias
	switch stance {
	case models.StanceBullish:
		bias = models.BiasUpside
		points = append(points, "Fundamentals tilt bullish → prefer higher strike / more OTM calls.")
	case models.StanceBearish:
		bias = models.BiasCaution
		points = append(points, "Fundamentals tilt bearish → consider no-trade or very conservative calls.")
	default:
		bias = models.BiasIncome
		points = append(points, "Fundamentals neutral → prefer income harvesting / closer strikes.")
	}

	missing := len(snap.Quality.MissingFields)
	confidence := 0.8
	if missing > 0 {
		confidence = 0.7 - 0.1*float64(missing)
		if confidence < 0.3 {
			confidence = 0.3
		}
	}

	fullRisks := append(append([]string(nil), risks...), snap.Quality.Warnings...)

	return Evaluation{
		View: &models.View{
			Stance:     stance,
			Bias:       bias,
			Confidence: confidence,
			KeyPoints:  capStrings(points, 4),
			Risks:      capStrings(fullRisks, 2),
		},
		KeyPoints: points,
		Risks:     fullRisks,
	}
}

func capStrings(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string(nil), in...)
}
