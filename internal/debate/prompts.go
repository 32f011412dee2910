// Package debate runs the adversarial bull/bear evaluation and its
// synthesis. Debate costs three extra model calls, so it is gated on
// either an explicit request or meaningful divergence.
package debate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seenimoa/coveredcall/pkg/models"
)

const bullSystem = `You are a disciplined equity fundamentals analyst.
You must argue the BULLISH case using financial fundamentals only.
You are conservative, factual, and concise.

Hard rules:
- Output ONLY valid JSON (no markdown, no prose).
- Use ONLY the keys defined by the contract.
- Enum strings must match exactly (case-sensitive).
- Do NOT include literal newlines inside strings (use \n if needed).

Brevity rules:
- Each bullet and risk must be <= 110 characters.
- Prefer short phrases over long sentences.`

const bearSystem = `You are a disciplined equity risk analyst.
You must argue the BEARISH case using financial fundamentals only.
You are skeptical, factual, and concise.

Hard rules:
- Output ONLY valid JSON (no markdown, no prose).
- Use ONLY the keys defined by the contract.
- Enum strings must match exactly (case-sensitive).
- Do NOT include literal newlines inside strings (use \n if needed).

Brevity rules:
- Each bullet and risk must be <= 110 characters.
- Prefer short phrases over long sentences.`

const debateSystem = `You are a neutral investment committee chair.
You must synthesize the bull and bear arguments objectively.

Hard rules:
- Output ONLY valid JSON (no markdown, no prose).
- Use ONLY the keys defined by the contract.
- Do NOT include literal newlines inside strings (use \n if needed).

The JSON object must contain exactly these top-level keys:
"bull", "bear", "synthesis", "disagreements".

Rules:
- Use double quotes for all keys and strings.
- Do NOT include trailing commas.
- Do NOT include markdown fences.`

const snapshotCopyRule = `Rules:
- When citing a metric, copy the value EXACTLY as shown in the SNAPSHOT block (same rounding/units).
- Do NOT introduce facts not present in SNAPSHOT.`

const argumentContract = `Return ONLY valid JSON with EXACTLY these keys:

{
  "stance": "BULLISH",
  "covered_call_bias": "UPSIDE",
  "confidence": 0.65,
  "bullets": ["short bullet", "short bullet"],
  "risks": []
}

Rules:
- Use EXACT key names shown above (case-sensitive).
- stance MUST be exactly one of: BULLISH, NEUTRAL, BEARISH.
- covered_call_bias MUST be exactly one of: UPSIDE, INCOME, CAUTION.
- confidence MUST be a number between 0.0 and 1.0.
- bullets MUST contain 1-2 concise strings.
- risks MUST contain 0-1 short strings.
- Return JSON ONLY. No markdown. No commentary.`

const debateContract = `Return ONLY valid JSON with EXACTLY these keys:

{
  "bull": {"stance": "BULLISH", "covered_call_bias": "UPSIDE", "confidence": 0.65, "bullets": ["short bullet"], "risks": []},
  "bear": {"stance": "BEARISH", "covered_call_bias": "CAUTION", "confidence": 0.60, "bullets": ["short bullet"], "risks": ["short risk"]},
  "synthesis": ["concise synthesis bullet"],
  "disagreements": ["key disagreement"]
}

Rules:
- bull and bear MUST each follow the argument format exactly.
- synthesis should contain 1-2 bullets.
- disagreements may be empty [].
- Return JSON ONLY.`

// SnapshotBlock renders a compact, stably-rounded snapshot text used as
// ground truth in prompts. Missing values print as an em dash.
func SnapshotBlock(snap *models.Snapshot) string {
	if snap == nil {
		return ""
	}
	return fmt.Sprintf(
		"Ticker: %s\nPrice: %s\nMarket cap: %s\nRevenue growth YoY: %s\nEPS growth YoY: %s\nGross margin: %s\nOperating margin: %s\nDebt to equity: %s\n",
		snap.Ticker,
		fmtFloat(snap.Price, 2),
		fmtMarketCap(snap.MarketCap),
		fmtPct(snap.RevenueGrowthYoYPct, 1),
		fmtPct(snap.EPSGrowthYoYPct, 1),
		fmtPct(snap.GrossMarginPct, 1),
		fmtPct(snap.OperatingMarginPct, 1),
		fmtFloat(snap.DebtToEquity, 2),
	)
}

func fmtPct(v *float64, decimals int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.*f%%", decimals, *v)
}

func fmtFloat(v *float64, decimals int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func fmtMarketCap(v *float64) string {
	if v == nil {
		return "—"
	}
	x := *v
	abs := x
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", x/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", x/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", x/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", x/1e3)
	default:
		return fmt.Sprintf("%.2f", x)
	}
}

func bullUser(snap *models.Snapshot) string {
	return strings.Join([]string{
		"You are arguing the BULLISH case for this stock based on fundamentals.",
		"",
		"SNAPSHOT:",
		SnapshotBlock(snap),
		"Focus on:",
		"- Growth strength",
		"- Profitability",
		"- Balance-sheet resilience",
		"- Competitive positioning",
		"",
		snapshotCopyRule,
		argumentContract,
	}, "\n")
}

func bearUser(snap *models.Snapshot) string {
	return strings.Join([]string{
		"You are arguing the BEARISH case for this stock based on fundamentals.",
		"",
		"SNAPSHOT:",
		SnapshotBlock(snap),
		"Focus on:",
		"- Leverage or balance-sheet risk",
		"- Margin sustainability",
		"- Growth durability",
		"- Valuation or macro sensitivity",
		"",
		snapshotCopyRule,
		argumentContract,
	}, "\n")
}

func debateUser(snap *models.Snapshot, bull, bear *models.Argument) string {
	bullJSON, _ := json.Marshal(bull)
	bearJSON, _ := json.Marshal(bear)
	return strings.Join([]string{
		"You are synthesizing a bull vs bear debate.",
		"",
		"SNAPSHOT:",
		SnapshotBlock(snap),
		"BULL ARGUMENT (JSON):",
		string(bullJSON),
		"",
		"BEAR ARGUMENT (JSON):",
		string(bearJSON),
		"",
		"Your task:",
		"- Objectively summarize areas of agreement and disagreement",
		"- Do NOT introduce new facts",
		"",
		snapshotCopyRule,
		debateContract,
	}, "\n")
}
