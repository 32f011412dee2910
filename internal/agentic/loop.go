package agentic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"unicode"

	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// Loop bounds. The model gets at most MaxTurns replies and at most
// MaxToolCalls successful tool dispatches before the loop abstains.
const (
	MaxTurns     = 3
	MaxToolCalls = 2
)

const systemPrompt = `You are an investing assistant running in a bounded tool-calling loop.

Each turn you receive a CONTEXT object and must reply with ONE action:
- CALL_TOOL: request one read-only tool (include "tool_call").
- PROPOSE: commit to a fundamentals view grounded in snapshot numbers.
- ABSTAIN: decline when the data is insufficient.

Hard rules:
- Output ONLY a single JSON object (no markdown, no prose).
- Use ONLY these keys: action, tool_call, summary, confidence, stance, covered_call_bias, bullets, risks
- stance MUST be one of: "BULLISH", "NEUTRAL", "BEARISH"
- covered_call_bias MUST be one of: "UPSIDE", "INCOME", "CAUTION"
- confidence MUST be a number between 0.0 and 1.0
- A PROPOSE must cite at least two snapshot numbers in bullets.
- Do NOT echo the CONTEXT object back.`

// Outcome is the loop's terminal result: the final parsed response, the
// full tool history, and the coerced view for the pipeline.
type Outcome struct {
	Response    *Response
	ToolHistory []ToolResult
	View        *models.View
}

// RunLoop drives the bounded tool-calling conversation. It is total:
// whatever the backend does — malformed JSON, unknown actions, endless
// tool requests — the loop terminates within MaxTurns and returns a
// valid outcome, degrading to ABSTAIN with confidence 0.
func RunLoop(ctx context.Context, client llm.Client, env *Env) *Outcome {
	var (
		history   []ToolResult
		toolCalls int
		lastError string
	)

	for turn := 0; turn < MaxTurns; turn++ {
		raw, err := client.GenerateText(ctx, systemPrompt, userPrompt(env, history, lastError))
		if err != nil {
			lastError = fmt.Sprintf("LLM error: %v", err)
			log.Printf("agentic: turn %d: %s", turn, lastError)
			continue
		}
		if raw == "" {
			lastError = "LLM error: empty response"
			continue
		}

		var resp Response
		if err := llm.DecodeFirstJSON(raw, &resp); err != nil {
			lastError = fmt.Sprintf("LLM error: %v", err)
			log.Printf("agentic: turn %d: %s", turn, lastError)
			continue
		}
		if resp.Action == "" {
			lastError = "Your JSON is missing required field 'action'. " +
				"Do NOT echo CONTEXT; output a response object."
			continue
		}

		switch resp.Action {
		case ActionCallTool:
			if resp.ToolCall == nil {
				lastError = "CALL_TOOL requires tool_call"
				continue
			}
			if toolCalls >= MaxToolCalls {
				lastError = "Tool call limit reached"
				continue
			}
			toolCalls++
			tr := Dispatch(env, resp.ToolCall)
			history = append(history, tr)
			lastError = ""
			continue

		case ActionPropose, ActionAbstain:
			if resp.Action == ActionPropose && env != nil && env.Snapshot != nil &&
				!hasMinNumericGrounding(&resp) {
				lastError = "Your PROPOSE must cite at least two snapshot numbers in bullets " +
					"(e.g., Revenue YoY %, Operating margin %, Debt-to-equity, Price)."
				continue
			}
			conf := resp.Confidence
			if resp.Action == ActionPropose && conf == 0 {
				// An omitted confidence on an otherwise valid proposal
				// defaults to 0.5 rather than gating the trade to HOLD.
				conf = 0.5
			}
			return &Outcome{
				Response:    &resp,
				ToolHistory: history,
				View: &models.View{
					Stance:     CoerceStance(resp.Stance),
					Bias:       CoerceBias(resp.Bias),
					Confidence: conf,
					KeyPoints:  append([]string(nil), resp.Bullets...),
					Risks:      append([]string(nil), resp.Risks...),
				},
			}

		default:
			lastError = fmt.Sprintf("Unknown action: %s", resp.Action)
		}
	}

	// Turn budget exhausted.
	risks := []string{"LLM output failed validation or exceeded limits."}
	if lastError != "" {
		risks = append(risks, lastError)
	}
	fallback := &Response{
		Action:     ActionAbstain,
		Summary:    "Agentic loop failed; defaulting to ABSTAIN.",
		Confidence: 0.0,
		Bullets:    StringList{},
		Risks:      StringList(risks),
	}
	return &Outcome{
		Response:    fallback,
		ToolHistory: history,
		View: &models.View{
			Stance:     models.StanceNeutral,
			Bias:       models.BiasIncome,
			Confidence: 0.0,
			KeyPoints:  []string{},
			Risks:      append([]string(nil), risks...),
		},
	}
}

// userPrompt serializes the loop context for the model.
func userPrompt(env *Env, history []ToolResult, lastError string) string {
	ctxObj := map[string]any{
		"tool_history": history,
		"has_scoring":  false,
	}
	if env != nil {
		ctxObj["ticker"] = env.Ticker
		ctxObj["as_of"] = env.AsOf
		ctxObj["has_snapshot"] = env.Snapshot != nil
		if env.Snapshot != nil {
			ctxObj["snapshot"] = env.Snapshot
		}
	}
	if lastError != "" {
		ctxObj["last_error"] = lastError
	}

	data, err := json.MarshalIndent(ctxObj, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return "You MUST output a single JSON object that matches the response contract.\n\nCONTEXT:\n" + string(data)
}

// hasMinNumericGrounding requires at least two digits across the
// proposal's bullets, a cheap proxy for citing snapshot numbers.
func hasMinNumericGrounding(resp *Response) bool {
	digits := 0
	for _, b := range resp.Bullets {
		for _, r := range b {
			if unicode.IsDigit(r) {
				digits++
				if digits >= 2 {
					return true
				}
			}
		}
	}
	return false
}
