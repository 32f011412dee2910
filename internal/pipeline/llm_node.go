package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/seenimoa/coveredcall/internal/agentic"
	"github.com/seenimoa/coveredcall/internal/debate"
	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// llmFallbackConfidenceCap bounds how confident a degraded LLM view may
// look: a copy of the deterministic view must never outrank it.
const llmFallbackConfidenceCap = 0.60

const llmNodeSystem = `You are a disciplined equity fundamentals analyst assisting a covered-call strategy.

Hard rules:
- Output ONLY valid JSON (no markdown, no prose).
- Use ONLY these keys: stance, covered_call_bias, confidence, bullets, risks
- stance MUST be exactly one of: BULLISH, NEUTRAL, BEARISH.
- covered_call_bias MUST be exactly one of: UPSIDE, INCOME, CAUTION.
- confidence MUST be a number between 0.0 and 1.0.
- bullets MUST contain 1-4 concise strings citing snapshot numbers.
- risks MUST contain 0-2 short strings.
- When citing a metric, copy the value EXACTLY as shown in the SNAPSHOT block.
- Do NOT introduce facts not present in SNAPSHOT.`

var llmFundamentalsSchema = llm.ObjectSchema("LLMFundamentals", "fundamentals view for covered-call positioning",
	map[string]*llm.Schema{
		"stance":            llm.EnumProp("directional stance", "BULLISH", "NEUTRAL", "BEARISH"),
		"covered_call_bias": llm.EnumProp("covered-call posture", "UPSIDE", "INCOME", "CAUTION"),
		"confidence":        llm.NumberProp("confidence in [0,1]"),
		"bullets":           llm.ArrayProp("key points citing snapshot numbers", llm.StringProp("bullet")),
		"risks":             llm.ArrayProp("risks", llm.StringProp("risk")),
	},
	"stance", "covered_call_bias", "confidence")

type llmViewPayload struct {
	Stance     string   `json:"stance"`
	Bias       string   `json:"covered_call_bias"`
	Confidence float64  `json:"confidence"`
	Bullets    []string `json:"bullets"`
	Risks      []string `json:"risks"`
}

// runLLMNode fills the llm view slot. Idempotent, and total once a
// snapshot exists: any backend failure degrades to the deterministic
// view with capped confidence instead of failing the run.
func (p *Pipeline) runLLMNode(ctx context.Context, st *State) error {
	if st.LLMView != nil {
		return nil
	}
	if st.Snapshot == nil {
		return errNoSnapshot
	}

	var out llmViewPayload
	err := p.client.GenerateJSON(ctx, llmNodeSystem, llmNodeUser(st.Snapshot), llmFundamentalsSchema, &out)
	if err != nil {
		log.Printf("pipeline: llm fundamentals failed for %s; falling back to deterministic view: %v", st.Ticker, err)
		st.LLMView = llmFallbackView(st.DetView)
		return nil
	}

	conf := out.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	st.LLMView = &models.View{
		Stance:     agentic.CoerceStance(out.Stance),
		Bias:       agentic.CoerceBias(out.Bias),
		Confidence: conf,
		KeyPoints:  capList(out.Bullets, 4),
		Risks:      capList(out.Risks, 2),
	}
	return nil
}

func llmNodeUser(snap *models.Snapshot) string {
	return strings.Join([]string{
		"Assess the fundamentals below for covered-call positioning.",
		"",
		"SNAPSHOT:",
		debate.SnapshotBlock(snap),
		"Return your view as JSON per the rules.",
	}, "\n")
}

// llmFallbackView degrades to a copy of the deterministic view, or a
// neutral placeholder when even that is missing.
func llmFallbackView(det *models.View) *models.View {
	fb := det.Clone()
	if fb == nil {
		fb = &models.View{
			Stance:     models.StanceNeutral,
			Bias:       models.BiasIncome,
			Confidence: 0.30,
			KeyPoints:  []string{"LLM fundamentals unavailable; proceeding without it."},
			Risks:      []string{},
		}
	}
	if fb.Confidence > llmFallbackConfidenceCap {
		fb.Confidence = llmFallbackConfidenceCap
	}
	return fb
}

func capList(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string(nil), in...)
}
