// Package agentic implements the bounded tool-calling evaluation loop:
// the model may inspect read-only tools a limited number of times before
// committing to a proposal, and every reply passes through a single
// normalization boundary before the loop's control logic sees it.
package agentic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the model's declared intent for a loop turn.
type Action string

const (
	ActionCallTool Action = "CALL_TOOL"
	ActionPropose  Action = "PROPOSE"
	ActionAbstain  Action = "ABSTAIN"
)

// ToolName is the closed set of tools the loop may dispatch.
type ToolName string

const (
	ToolGetSnapshot             ToolName = "get_snapshot"
	ToolGetTopCandidates        ToolName = "get_top_candidates"
	ToolExplainFilterRejections ToolName = "explain_filter_rejections"
)

// AllTools lists the whitelisted tool names in a stable order.
var AllTools = []ToolName{ToolGetSnapshot, ToolGetTopCandidates, ToolExplainFilterRejections}

// ToolCall is the model's request to run one tool. Tool stays a free
// string because models routinely emit aliases like "snapshot" or
// "get-quote"; normalization happens at dispatch.
type ToolCall struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolResult is the structured outcome of one dispatch. Failures are
// values, not errors: the loop feeds them back to the model.
type ToolResult struct {
	Tool   string         `json:"tool,omitempty"`
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Response is the parsed shape of one loop turn.
type Response struct {
	Action   Action    `json:"action"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`

	Stance string `json:"stance,omitempty"`
	Bias   string `json:"covered_call_bias,omitempty"`

	Bullets StringList `json:"bullets"`
	Risks   StringList `json:"risks"`
}

// StringList tolerates the usual model drift when decoding: a bare
// string, a list of strings, or a list of single-entry objects like
// {"bullet": "..."} all decode to []string.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = coerceStringList(raw)
	return nil
}

func coerceStringList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if t := strings.TrimSpace(v); t != "" {
			return []string{t}
		}
		return nil
	case []any:
		var out []string
		for _, item := range v {
			switch it := item.(type) {
			case nil:
			case string:
				if t := strings.TrimSpace(it); t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if str, ok := singleString(it); ok {
					out = append(out, str)
				} else {
					out = append(out, fmt.Sprintf("%v", it))
				}
			default:
				out = append(out, fmt.Sprintf("%v", it))
			}
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// singleString pulls the item text out of a wrapper object, preferring
// the conventional keys before falling back to a lone string value.
func singleString(m map[string]any) (string, bool) {
	for _, key := range []string{"bullet", "risk", "text"} {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	var vals []string
	for _, v := range m {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			vals = append(vals, strings.TrimSpace(s))
		}
	}
	if len(vals) == 1 {
		return vals[0], true
	}
	return "", false
}
