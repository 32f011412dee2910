// Package pipeline orchestrates one analysis run as an explicit state
// machine over a closed set of nodes. Each run owns its State; nothing
// is shared across concurrent runs.
package pipeline

import (
	"time"

	"github.com/seenimoa/coveredcall/internal/agentic"
	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// Node identifies one pipeline stage. Centralized so trace output and
// transition logic never disagree on spelling.
type Node string

const (
	NodeFundamental Node = "fundamental"
	NodeDet         Node = "det"
	NodeLLM         Node = "llm"
	NodeAgentic     Node = "agentic"
	NodeDivergence  Node = "divergence"
	NodeFanoutLLM   Node = "fanout_llm"
	NodeBull        Node = "bull"
	NodeBear        Node = "bear"
	NodeDebate      Node = "debate"
	NodeFundResolve Node = "fund_resolve"
	NodeProposal    Node = "proposal"

	nodeEnd Node = "end"
)

// State accumulates every artifact of one run. Views, reports and
// decisions are write-once: nodes patch missing fields, never overwrite.
type State struct {
	Ticker string
	AsOf   time.Time
	Mode   fundamentals.Mode

	Snapshot *models.Snapshot

	DetView     *models.View
	LLMView     *models.View
	AgenticView *models.View

	// Untruncated deterministic output, kept for report building.
	DetKeyPoints []string
	DetRisks     []string

	AgenticResult      *agentic.Response
	AgenticToolHistory []agentic.ToolResult

	Divergence *models.DivergenceReport

	BullCase      *models.Argument
	BearCase      *models.Argument
	DebateSummary *models.DebateSummary

	Final  *models.FinalDecision
	Report *models.Report

	// Trace is the append-only list of node identifiers this run visited.
	Trace []string
}

// Explain assembles the audit payload from the run's artifacts.
func (s *State) Explain() *models.ExplainPayload {
	return &models.ExplainPayload{
		DetView:     s.DetView,
		LLMView:     s.LLMView,
		AgenticView: s.AgenticView,
		Divergence:  s.Divergence,
		BullCase:    s.BullCase,
		BearCase:    s.BearCase,
		Debate:      s.DebateSummary,
		Mode:        string(s.Mode),
		TraceNodes:  append([]string(nil), s.Trace...),
	}
}
