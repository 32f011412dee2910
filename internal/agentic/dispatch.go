package agentic

import (
	"encoding/json"
	"fmt"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// Env is the read-only state the tools may inspect. Scoring data is not
// part of this pipeline, so candidate/rejection tools answer structurally
// empty rather than erroring.
type Env struct {
	Ticker   string
	AsOf     string
	Snapshot *models.Snapshot
}

// Dispatch executes exactly one tool call. It is the safety gate of the
// loop: tool names are normalized, args coerced, and failures come back
// as ToolResult values — Dispatch never returns an error.
func Dispatch(env *Env, call *ToolCall) ToolResult {
	if call == nil {
		return ToolResult{OK: false, Result: map[string]any{}, Error: "missing tool_call"}
	}

	name, ok := NormalizeToolName(call.Tool)
	if !ok {
		allowed := make([]string, len(AllTools))
		for i, t := range AllTools {
			allowed[i] = string(t)
		}
		return ToolResult{
			OK:     false,
			Result: map[string]any{},
			Error:  fmt.Sprintf("Unknown tool '%s'. Allowed tools: %v", call.Tool, allowed),
		}
	}

	args := CoerceArgs(call.Args)

	switch name {
	case ToolGetSnapshot:
		return ToolResult{Tool: string(name), OK: true, Result: getSnapshot(env)}
	case ToolGetTopCandidates:
		n := 5
		if v, ok := args["n"].(float64); ok {
			n = int(v)
		}
		return ToolResult{Tool: string(name), OK: true, Result: getTopCandidates(n)}
	case ToolExplainFilterRejections:
		return ToolResult{Tool: string(name), OK: true, Result: explainFilterRejections()}
	}

	return ToolResult{Tool: string(name), OK: false, Result: map[string]any{},
		Error: fmt.Sprintf("Tool '%s' not registered", name)}
}

func getSnapshot(env *Env) map[string]any {
	if env == nil || env.Snapshot == nil {
		return map[string]any{"has_snapshot": false}
	}
	// Round-trip through JSON so the model sees wire-shaped keys.
	var dump map[string]any
	if data, err := json.Marshal(env.Snapshot); err == nil {
		_ = json.Unmarshal(data, &dump)
	}
	return map[string]any{"has_snapshot": true, "snapshot": dump}
}

func getTopCandidates(n int) map[string]any {
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	// Option scoring is out of scope here, so the answer is structurally
	// empty instead of an error.
	return map[string]any{"has_scoring": false, "candidates": []any{}}
}

func explainFilterRejections() map[string]any {
	return map[string]any{"has_filter_stats": false, "rejected_counts": map[string]any{}}
}
