package agentic

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/pkg/models"
)

func testEnv() *Env {
	return &Env{
		Ticker: "AAPL",
		AsOf:   "2026-01-02",
		Snapshot: &models.Snapshot{
			Ticker:              "AAPL",
			AsOf:                time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			Source:              "stub",
			Price:               models.Float(190.0),
			RevenueGrowthYoYPct: models.Float(2.0),
			OperatingMarginPct:  models.Float(30.0),
			DebtToEquity:        models.Float(1.5),
			Quality:             models.DataQuality{IsStub: true},
		},
	}
}

const groundedPropose = `{"action":"PROPOSE","summary":"ok","confidence":0.7,` +
	`"stance":"BULLISH","covered_call_bias":"UPSIDE",` +
	`"bullets":["Revenue growth YoY: 2.0%","Operating margin: 30.0%"],"risks":[]}`

func TestRunLoopProposeFirstTurn(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(groundedPropose)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionPropose {
		t.Fatalf("action = %s, want PROPOSE", out.Response.Action)
	}
	if out.View.Stance != models.StanceBullish || out.View.Bias != models.BiasUpside {
		t.Errorf("view = %s/%s, want BULLISH/UPSIDE", out.View.Stance, out.View.Bias)
	}
	if len(out.ToolHistory) != 0 {
		t.Errorf("tool history = %v, want empty", out.ToolHistory)
	}
}

func TestRunLoopToolCallThenPropose(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(
		`{"action":"CALL_TOOL","tool_call":{"tool":"quote","args":{"symbol":"AAPL"}}}`,
		groundedPropose,
	)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionPropose {
		t.Fatalf("action = %s, want PROPOSE", out.Response.Action)
	}
	if len(out.ToolHistory) != 1 {
		t.Fatalf("tool history len = %d, want 1", len(out.ToolHistory))
	}
	tr := out.ToolHistory[0]
	if tr.Tool != string(ToolGetSnapshot) || !tr.OK {
		t.Errorf("tool result = %+v, want normalized get_snapshot success", tr)
	}
	if has, _ := tr.Result["has_snapshot"].(bool); !has {
		t.Errorf("result = %v, want has_snapshot true", tr.Result)
	}
}

func TestRunLoopAlwaysToolCallExhaustsBudget(t *testing.T) {
	client := llm.NewMockClient()
	call := `{"action":"CALL_TOOL","tool_call":{"tool":"get_snapshot"}}`
	client.ScriptText(call, call, call, call, call)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionAbstain {
		t.Fatalf("action = %s, want ABSTAIN", out.Response.Action)
	}
	if len(out.ToolHistory) != MaxToolCalls {
		t.Errorf("tool calls = %d, want %d", len(out.ToolHistory), MaxToolCalls)
	}
	if out.View.Stance != models.StanceNeutral || out.View.Bias != models.BiasIncome || out.View.Confidence != 0 {
		t.Errorf("abstain view = %s/%s/%v, want NEUTRAL/INCOME/0", out.View.Stance, out.View.Bias, out.View.Confidence)
	}
}

func TestRunLoopMalformedJSONFallsBack(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText("not json at all", "still not json", "{broken")

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionAbstain {
		t.Fatalf("action = %s, want ABSTAIN", out.Response.Action)
	}
	if out.Response.Summary != "Agentic loop failed; defaulting to ABSTAIN." {
		t.Errorf("summary = %q", out.Response.Summary)
	}
	if len(out.View.Risks) < 1 || out.View.Risks[0] != "LLM output failed validation or exceeded limits." {
		t.Errorf("risks = %v", out.View.Risks)
	}
}

func TestRunLoopUngroundedProposeRetries(t *testing.T) {
	client := llm.NewMockClient()
	ungrounded := `{"action":"PROPOSE","summary":"vibes","confidence":0.9,` +
		`"stance":"BULLISH","covered_call_bias":"UPSIDE","bullets":["looks great"],"risks":[]}`
	client.ScriptText(ungrounded, groundedPropose)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionPropose {
		t.Fatalf("action = %s, want PROPOSE after retry", out.Response.Action)
	}
	if out.View.Confidence != 0.7 {
		t.Errorf("confidence = %v, want the grounded proposal's 0.7", out.View.Confidence)
	}
}

func TestRunLoopProposeWithoutConfidenceDefaults(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(`{"action":"PROPOSE","summary":"ok",` +
		`"stance":"BULLISH","covered_call_bias":"UPSIDE",` +
		`"bullets":["Revenue growth YoY: 2.0%","Operating margin: 30.0%"],"risks":[]}`)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionPropose {
		t.Fatalf("action = %s, want PROPOSE", out.Response.Action)
	}
	if out.View.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5 default for an omitted value", out.View.Confidence)
	}
}

func TestRunLoopMissingActionRepairs(t *testing.T) {
	client := llm.NewMockClient()
	client.ScriptText(`{"ticker":"AAPL","has_snapshot":true}`, groundedPropose)

	out := RunLoop(context.Background(), client, testEnv())
	if out.Response.Action != ActionPropose {
		t.Fatalf("action = %s, want PROPOSE after repair turn", out.Response.Action)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	tr := Dispatch(testEnv(), &ToolCall{Tool: "hack_the_planet"})
	if tr.OK {
		t.Fatal("unknown tool must not succeed")
	}
	if !strings.Contains(tr.Error, "Unknown tool 'hack_the_planet'") ||
		!strings.Contains(tr.Error, "get_snapshot") {
		t.Errorf("error = %q, want unknown-tool message listing allowed tools", tr.Error)
	}
}

func TestDispatchAliasesAndScoringTools(t *testing.T) {
	env := testEnv()

	for _, alias := range []string{"Get-Snapshot", "price_snapshot", "QUOTE"} {
		tr := Dispatch(env, &ToolCall{Tool: alias})
		if tr.Tool != string(ToolGetSnapshot) || !tr.OK {
			t.Errorf("alias %q: result = %+v", alias, tr)
		}
	}

	tr := Dispatch(env, &ToolCall{Tool: "top_candidates", Args: []byte(`{"n": 50}`)})
	if !tr.OK {
		t.Fatalf("candidates dispatch failed: %+v", tr)
	}
	if has, _ := tr.Result["has_scoring"].(bool); has {
		t.Error("has_scoring should be false without scoring data")
	}

	tr = Dispatch(env, &ToolCall{Tool: "explain rejections"})
	if tr.Tool != string(ToolExplainFilterRejections) || !tr.OK {
		t.Errorf("rejections dispatch = %+v", tr)
	}
}

func TestCoerceArgsShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // expected ticker value, "" for absent
	}{
		{"object with symbol", `{"symbol":"MSFT"}`, "MSFT"},
		{"object with ticker", `{"ticker":"AAPL"}`, "AAPL"},
		{"json string payload", `"{\"underlying\":\"TSLA\"}"`, "TSLA"},
		{"scalar", `42`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := CoerceArgs([]byte(tt.raw))
			got, _ := args["ticker"].(string)
			if got != tt.want {
				t.Errorf("ticker = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringListDrift(t *testing.T) {
	var resp Response
	payload := `{"action":"PROPOSE","confidence":0.5,` +
		`"bullets":[{"bullet":"margin 30%"},"growth 2%",{"note":"single value"}],` +
		`"risks":"one risk"}`
	if err := llm.DecodeFirstJSON(payload, &resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(resp.Bullets) != 3 {
		t.Errorf("bullets = %v, want 3 coerced items", resp.Bullets)
	}
	if len(resp.Risks) != 1 || resp.Risks[0] != "one risk" {
		t.Errorf("risks = %v", resp.Risks)
	}
}
