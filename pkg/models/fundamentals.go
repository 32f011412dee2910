// Package models defines the shared data contracts passed between the
// fundamentals pipeline, the API layer, and the CLI.
package models

import "time"

// Stance represents the directional sentiment classification for a ticker.
type Stance string

const (
	StanceBullish Stance = "BULLISH"
	StanceNeutral Stance = "NEUTRAL"
	StanceBearish Stance = "BEARISH"
)

// Bias represents the covered-call posture classification.
type Bias string

const (
	BiasUpside  Bias = "UPSIDE"
	BiasIncome  Bias = "INCOME"
	BiasCaution Bias = "CAUTION"
)

// TradeAction is the discrete recommended covered-call posture.
type TradeAction string

const (
	ActionSellCall        TradeAction = "SELL_CALL"
	ActionSellCallMoreOTM TradeAction = "SELL_CALL_MORE_OTM"
	ActionHold            TradeAction = "HOLD"
	ActionAvoidCalls      TradeAction = "AVOID_CALLS"
	ActionCloseOrRoll     TradeAction = "CLOSE_OR_ROLL"
)

// FinalSource tags which evaluator produced the winning view.
type FinalSource string

const (
	SourceDeterministic FinalSource = "deterministic"
	SourceLLM           FinalSource = "llm"
	SourceAgentic       FinalSource = "agentic"
)

// Severity classifies how strongly two views disagree.
type Severity string

const (
	SeverityAligned  Severity = "ALIGNED"
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
)

// DataQuality records how trustworthy a snapshot is.
type DataQuality struct {
	AsOf          time.Time `json:"as_of"`
	IsStub        bool      `json:"is_stub"`
	MissingFields []string  `json:"missing_fields"`
	Warnings      []string  `json:"warnings"`
}

// Snapshot is a point-in-time fundamentals snapshot for a ticker.
// Numeric fields are pointers: nil means the provider could not supply
// the value, and the field name appears in Quality.MissingFields.
// Snapshots are immutable once produced.
type Snapshot struct {
	Ticker string    `json:"ticker"`
	AsOf   time.Time `json:"as_of"`
	Source string    `json:"source"`

	Price               *float64 `json:"price,omitempty"`
	MarketCap           *float64 `json:"market_cap,omitempty"`
	RevenueGrowthYoYPct *float64 `json:"revenue_growth_yoy_pct,omitempty"`
	EPSGrowthYoYPct     *float64 `json:"eps_growth_yoy_pct,omitempty"`
	GrossMarginPct      *float64 `json:"gross_margin_pct,omitempty"`
	OperatingMarginPct  *float64 `json:"operating_margin_pct,omitempty"`
	DebtToEquity        *float64 `json:"debt_to_equity,omitempty"`

	Quality DataQuality `json:"quality"`
}

// View is a single evaluator's verdict on a ticker: stance, covered-call
// bias, confidence in [0,1], up to 4 key points and up to 2 risks.
// Views are never mutated after creation; use Clone before patching.
type View struct {
	Stance     Stance   `json:"stance"`
	Bias       Bias     `json:"covered_call_bias"`
	Confidence float64  `json:"confidence"`
	KeyPoints  []string `json:"key_points"`
	Risks      []string `json:"risks"`
}

// Clone returns a deep copy of the view.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	cp := *v
	cp.KeyPoints = append([]string(nil), v.KeyPoints...)
	cp.Risks = append([]string(nil), v.Risks...)
	return &cp
}

// DivergenceReport quantifies the disagreement between the deterministic
// view and the LLM/agentic view. Pair fields hold (det, cmp) values.
type DivergenceReport struct {
	Score    float64  `json:"score"`
	Severity Severity `json:"severity"`

	Stance     [2]Stance  `json:"stance"`
	Bias       [2]Bias    `json:"covered_call_bias"`
	Confidence [2]float64 `json:"confidence"`

	StanceDivergence     float64 `json:"stance_divergence"`
	BiasDivergence       float64 `json:"bias_divergence"`
	ConfidenceDivergence float64 `json:"confidence_divergence"`

	ActionHint string `json:"action_hint"`
	Notes      string `json:"notes,omitempty"`
}

// Argument is one side's case in the bull/bear debate.
type Argument struct {
	Stance     Stance   `json:"stance"`
	Bias       Bias     `json:"covered_call_bias"`
	Confidence float64  `json:"confidence"`
	Bullets    []string `json:"bullets"`
	Risks      []string `json:"risks"`
}

// DebateSummary is the synthesis of the bull and bear arguments.
type DebateSummary struct {
	Bull          Argument `json:"bull"`
	Bear          Argument `json:"bear"`
	Synthesis     []string `json:"synthesis"`
	Disagreements []string `json:"disagreements"`
}

// FinalDecision is the single winning view chosen by the resolution
// policy, with a rationale recording which policy rule fired.
type FinalDecision struct {
	Stance     Stance      `json:"stance"`
	Bias       Bias        `json:"covered_call_bias"`
	Confidence float64     `json:"confidence"`
	Source     FinalSource `json:"source"`
	Rationale  string      `json:"rationale"`
}

// ExplainPayload bundles every intermediate pipeline artifact for
// auditability. All fields are optional; absence means the producing
// stage did not run.
type ExplainPayload struct {
	DetView     *View `json:"det_fundamentals,omitempty"`
	LLMView     *View `json:"llm_fundamentals,omitempty"`
	AgenticView *View `json:"agentic_fundamentals,omitempty"`

	Divergence *DivergenceReport `json:"divergence_report,omitempty"`

	BullCase *Argument      `json:"bull_case,omitempty"`
	BearCase *Argument      `json:"bear_case,omitempty"`
	Debate   *DebateSummary `json:"debate_summary,omitempty"`

	Mode       string   `json:"mode,omitempty"`
	TraceNodes []string `json:"trace_nodes,omitempty"`
}

// Report is the final analysis output for one run. Action and Appendix
// may be backfilled once by the proposal step; populated fields are
// never overwritten.
type Report struct {
	Ticker     string   `json:"ticker"`
	Stance     Stance   `json:"stance"`
	Bias       Bias     `json:"covered_call_bias"`
	Confidence float64  `json:"confidence"`
	KeyPoints  []string `json:"key_points"`
	Risks      []string `json:"risks"`

	Snapshot *Snapshot `json:"snapshot"`

	Action       TradeAction `json:"action,omitempty"`
	ActionReason string      `json:"action_reason,omitempty"`

	Appendix string          `json:"appendix,omitempty"`
	Explain  *ExplainPayload `json:"explain,omitempty"`
}

// Float returns a pointer to v. Convenience for building snapshots.
func Float(v float64) *float64 { return &v }
