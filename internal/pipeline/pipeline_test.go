package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/seenimoa/coveredcall/internal/config"
	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/internal/provider"
	"github.com/seenimoa/coveredcall/pkg/models"
)

func testConfig(mode string) *config.Config {
	cfg := config.Default()
	cfg.Pipeline.Mode = mode
	cfg.LLM.Provider = llm.BackendMock
	cfg.Provider.Name = "stub"
	return cfg
}

func newTestPipeline(t *testing.T, mode string, client llm.Client) *Pipeline {
	t.Helper()
	opts := []Option{}
	if client != nil {
		opts = append(opts, WithClient(client))
	}
	p, err := New(testConfig(mode), provider.DefaultRegistry(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestDeterministicRunSkipsLLMNodes(t *testing.T) {
	p := newTestPipeline(t, "deterministic", nil)

	st, err := p.Run(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantTrace := []string{"fundamental", "det", "fund_resolve", "proposal"}
	if !reflect.DeepEqual(st.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", st.Trace, wantTrace)
	}

	rep := st.Report
	if rep == nil {
		t.Fatal("report is nil")
	}
	if rep.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want normalized AAPL", rep.Ticker)
	}
	// AAPL stub: one bullish signal only, so a neutral income posture.
	if rep.Stance != models.StanceNeutral || rep.Bias != models.BiasIncome {
		t.Errorf("stance/bias = %s/%s, want NEUTRAL/INCOME", rep.Stance, rep.Bias)
	}
	if rep.Action != models.ActionSellCall {
		t.Errorf("action = %s, want SELL_CALL", rep.Action)
	}
	if rep.Appendix != "" {
		t.Errorf("appendix = %q, want empty on the deterministic fast path", rep.Appendix)
	}
	if st.LLMView != nil || st.Divergence != nil || st.DebateSummary != nil {
		t.Error("deterministic run must not produce llm artifacts")
	}
	if rep.Explain == nil || rep.Explain.Mode != "deterministic" {
		t.Errorf("explain = %+v, want mode recorded", rep.Explain)
	}
}

func TestActionAlwaysMatchesPolicy(t *testing.T) {
	p := newTestPipeline(t, "deterministic", nil)
	for _, ticker := range []string{"AAPL", "MSFT", "TSLA", "ZZZZ"} {
		st, err := p.Run(context.Background(), ticker)
		if err != nil {
			t.Fatalf("Run(%s) error = %v", ticker, err)
		}
		rep := st.Report
		want := fundamentals.DecideTradeAction(rep.Stance, rep.Bias, rep.Confidence, 0.55)
		if rep.Action != want.Action || rep.ActionReason != want.Reason {
			t.Errorf("%s: action = %s (%q), policy says %s (%q)",
				ticker, rep.Action, rep.ActionReason, want.Action, want.Reason)
		}
	}
}

func TestLLMModeDivergesAndDebates(t *testing.T) {
	// The canned llm payload is bearish while AAPL's deterministic view
	// is neutral, which lands in the MAJOR band and triggers debate.
	p := newTestPipeline(t, "llm", llm.NewMockClient())

	st, err := p.Run(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantTrace := []string{
		"fundamental", "llm", "divergence", "fanout_llm",
		"bull", "bear", "debate", "fund_resolve", "proposal",
	}
	if !reflect.DeepEqual(st.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", st.Trace, wantTrace)
	}

	if st.Divergence == nil || st.Divergence.Severity != models.SeverityMajor {
		t.Fatalf("divergence = %+v, want MAJOR", st.Divergence)
	}
	if st.DebateSummary == nil {
		t.Fatal("debate summary missing despite MAJOR divergence")
	}
	if st.Final.Source != models.SourceDeterministic {
		t.Errorf("final source = %s, want deterministic fallback at MAJOR without force_debate", st.Final.Source)
	}

	appendix := st.Report.Appendix
	for _, want := range []string{"DIVERGENCE REPORT", "LLM Debate Summary"} {
		if !strings.Contains(appendix, want) {
			t.Errorf("appendix missing %q:\n%s", want, appendix)
		}
	}
}

func TestLLMBackendFailureFallsBackCapped(t *testing.T) {
	client := llm.NewMockClient()
	client.FailJSON("LLMFundamentals", llm.ErrBackendDown)
	p := newTestPipeline(t, "llm", client)

	st, err := p.Run(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if st.LLMView == nil {
		t.Fatal("llm view missing after fallback")
	}
	if st.LLMView.Stance != st.DetView.Stance || st.LLMView.Bias != st.DetView.Bias {
		t.Errorf("fallback view = %s/%s, want the deterministic %s/%s",
			st.LLMView.Stance, st.LLMView.Bias, st.DetView.Stance, st.DetView.Bias)
	}
	if st.LLMView.Confidence != llmFallbackConfidenceCap {
		t.Errorf("fallback confidence = %v, want capped at %v", st.LLMView.Confidence, llmFallbackConfidenceCap)
	}

	// Same stance/bias and a small confidence gap: aligned, no debate.
	if st.Divergence.Severity != models.SeverityAligned {
		t.Errorf("severity = %s, want ALIGNED", st.Divergence.Severity)
	}
	if st.DebateSummary != nil {
		t.Error("debate ran despite aligned views")
	}
	if st.Final.Rationale != "severity=ALIGNED; prefer deterministic" {
		t.Errorf("rationale = %q", st.Final.Rationale)
	}
}

func TestAgenticModeProposalWins(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(`{"action":"PROPOSE","summary":"strong fundamentals","confidence":0.7,` +
		`"stance":"BULLISH","covered_call_bias":"UPSIDE",` +
		`"bullets":["Revenue growth YoY: 2.0%","Operating margin: 30.0%"],"risks":[]}`)
	p := newTestPipeline(t, "agentic", client)

	st, err := p.Run(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if st.Final.Source != models.SourceAgentic {
		t.Fatalf("final source = %s (%s), want agentic", st.Final.Source, st.Final.Rationale)
	}
	if st.LLMView == nil {
		t.Error("PROPOSE must mirror the agentic view into the llm slot")
	}

	rep := st.Report
	if rep.Stance != models.StanceBullish || rep.Bias != models.BiasUpside {
		t.Errorf("report = %s/%s, want BULLISH/UPSIDE", rep.Stance, rep.Bias)
	}
	if rep.Action != models.ActionAvoidCalls {
		t.Errorf("action = %s, want AVOID_CALLS for bullish upside", rep.Action)
	}
	if !strings.Contains(rep.Appendix, "Agentic Fundamentals") {
		t.Errorf("appendix missing agentic block:\n%s", rep.Appendix)
	}
}

func TestAgenticAbstainStillProducesReport(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(`{"action":"ABSTAIN","summary":"insufficient data","confidence":0.0,` +
		`"stance":"NEUTRAL","covered_call_bias":"INCOME","bullets":[],"risks":["thin data"]}`)
	p := newTestPipeline(t, "agentic", client)

	st, err := p.Run(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st.Report == nil {
		t.Fatal("report is nil")
	}
	if st.LLMView != nil {
		t.Error("ABSTAIN must not fill the llm slot")
	}
	if len(st.Report.KeyPoints) == 0 {
		t.Error("key points must be backfilled when the winning view is empty")
	}
}

func TestReportPatchIsIdempotent(t *testing.T) {
	// A second proposal pass over a finished run must leave the report
	// byte-identical: populated action and appendix are never rewritten.
	for _, mode := range []string{"deterministic", "llm"} {
		t.Run(mode, func(t *testing.T) {
			p := newTestPipeline(t, mode, llm.NewMockClient())
			st, err := p.Run(context.Background(), "AAPL")
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			before, err := json.Marshal(st.Report)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			if next, err := p.stepProposal(st); err != nil || next != nodeEnd {
				t.Fatalf("stepProposal = %v, %v", next, err)
			}

			after, err := json.Marshal(st.Report)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !bytes.Equal(before, after) {
				t.Errorf("report changed on re-patch:\nbefore: %s\nafter:  %s", before, after)
			}
		})
	}
}

func TestNewFailsFastWithoutBackend(t *testing.T) {
	cfg := testConfig("llm")
	cfg.LLM.Provider = "nope"
	if _, err := New(cfg, provider.DefaultRegistry()); err == nil {
		t.Fatal("New() must reject llm mode with an unknown backend")
	}

	cfg = testConfig("deterministic")
	cfg.LLM.Provider = "nope"
	if _, err := New(cfg, provider.DefaultRegistry()); err != nil {
		t.Fatalf("deterministic mode must not need a backend: %v", err)
	}
}

func TestRunRejectsEmptyTicker(t *testing.T) {
	p := newTestPipeline(t, "deterministic", nil)
	if _, err := p.Run(context.Background(), "   "); err == nil {
		t.Fatal("Run() must reject an empty ticker")
	}
}

func TestTraceFuncSeesEveryNode(t *testing.T) {
	var seen []string
	cfg := testConfig("deterministic")
	p, err := New(cfg, provider.DefaultRegistry(), WithTraceFunc(func(n string) {
		seen = append(seen, n)
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	st, err := p.Run(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(seen, st.Trace) {
		t.Errorf("trace func saw %v, state recorded %v", seen, st.Trace)
	}
}
