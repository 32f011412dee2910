// Package fundamentals implements the core decision logic: the
// deterministic evaluator, the divergence engine, the final resolution
// policy and the trade-action policy. Everything here is pure — no I/O,
// no backends — so it is exhaustively table-testable.
package fundamentals

import (
	"fmt"
	"strings"
)

// Mode selects which evaluator produces the candidate view.
type Mode string

const (
	ModeDeterministic Mode = "deterministic"
	ModeLLM           Mode = "llm"
	ModeAgentic       Mode = "agentic"
)

// ParseMode normalizes a user-supplied mode string. Empty input means
// deterministic; unknown input is a configuration error.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "deterministic", "det":
		return ModeDeterministic, nil
	case "llm":
		return ModeLLM, nil
	case "agentic", "llm_agentic":
		return ModeAgentic, nil
	default:
		return "", fmt.Errorf("fundamentals: unknown mode %q", raw)
	}
}
