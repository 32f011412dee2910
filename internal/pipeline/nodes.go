package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/seenimoa/coveredcall/internal/agentic"
	"github.com/seenimoa/coveredcall/internal/debate"
	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/pkg/models"
)

var errNoSnapshot = errors.New("no snapshot available")

// stepFundamental fetches the snapshot and runs the deterministic
// evaluator. In deterministic mode the full report is built here so the
// fast path never touches the later nodes.
func (p *Pipeline) stepFundamental(ctx context.Context, st *State) (Node, error) {
	prov, err := p.registry.Get(p.cfg.Provider.Name)
	if err != nil {
		return nodeEnd, err
	}
	snap, err := prov.Fetch(ctx, st.Ticker)
	if err != nil {
		return nodeEnd, err
	}
	st.Snapshot = snap

	eval := fundamentals.Evaluate(snap, p.thresholds())
	st.DetView = eval.View
	st.DetKeyPoints = eval.KeyPoints
	st.DetRisks = eval.Risks

	if p.mode == fundamentals.ModeDeterministic {
		d := fundamentals.DecideTradeAction(
			eval.View.Stance, eval.View.Bias, eval.View.Confidence,
			p.cfg.TradePolicy.MinConfidence)
		st.Report = &models.Report{
			Ticker:       st.Ticker,
			Stance:       eval.View.Stance,
			Bias:         eval.View.Bias,
			Confidence:   eval.View.Confidence,
			KeyPoints:    append([]string(nil), eval.KeyPoints...),
			Risks:        append([]string(nil), eval.Risks...),
			Snapshot:     snap,
			Action:       d.Action,
			ActionReason: d.Reason,
		}
	}

	switch p.mode {
	case fundamentals.ModeLLM:
		return NodeLLM, nil
	case fundamentals.ModeAgentic:
		return NodeAgentic, nil
	default:
		return NodeDet, nil
	}
}

// stepLLM produces the single-shot LLM view; failures degrade to a
// confidence-capped copy of the deterministic view.
func (p *Pipeline) stepLLM(ctx context.Context, st *State) (Node, error) {
	if err := p.runLLMNode(ctx, st); err != nil {
		return nodeEnd, err
	}
	return NodeDivergence, nil
}

// stepAgentic runs the bounded tool-calling loop. A PROPOSE also fills
// the llm slot so divergence and resolution see the same view under
// either name.
func (p *Pipeline) stepAgentic(ctx context.Context, st *State) (Node, error) {
	if st.Snapshot == nil {
		return nodeEnd, errNoSnapshot
	}
	env := &agentic.Env{
		Ticker:   st.Ticker,
		AsOf:     st.AsOf.Format("2006-01-02"),
		Snapshot: st.Snapshot,
	}
	out := agentic.RunLoop(ctx, p.client, env)
	st.AgenticResult = out.Response
	st.AgenticToolHistory = out.ToolHistory
	st.AgenticView = out.View
	if out.Response.Action == agentic.ActionPropose {
		st.LLMView = out.View.Clone()
	}
	return NodeDivergence, nil
}

// stepDivergence compares the deterministic view against whichever
// candidate view this mode produced.
func (p *Pipeline) stepDivergence(st *State) (Node, error) {
	cmp := st.AgenticView
	if p.mode == fundamentals.ModeLLM {
		cmp = st.LLMView
	}
	st.Divergence = fundamentals.CompareViews(st.DetView, cmp)
	return NodeFanoutLLM, nil
}

// stepFanout evaluates both debate sides concurrently when the gate
// fires; otherwise the branch nodes pass through untouched.
func (p *Pipeline) stepFanout(ctx context.Context, st *State) (Node, error) {
	if debate.Enabled(p.cfg.Pipeline.ForceDebate, st.Divergence) {
		if st.Snapshot == nil {
			return nodeEnd, errNoSnapshot
		}
		st.BullCase, st.BearCase = debate.RunSides(ctx, p.client, st.Snapshot)
	}
	return NodeBull, nil
}

// stepDebate synthesizes the two arguments. Idempotent: an existing
// summary is never overwritten.
func (p *Pipeline) stepDebate(ctx context.Context, st *State) (Node, error) {
	if st.DebateSummary == nil && debate.Enabled(p.cfg.Pipeline.ForceDebate, st.Divergence) {
		st.DebateSummary = debate.Synthesize(ctx, p.client, st.Snapshot, st.BullCase, st.BearCase)
	}
	return NodeFundResolve, nil
}

// stepResolve applies the resolution policy once.
func (p *Pipeline) stepResolve(st *State) (Node, error) {
	if st.Final == nil {
		final, err := fundamentals.Resolve(fundamentals.ResolveInput{
			Mode:        p.mode,
			Det:         st.DetView,
			LLM:         st.LLMView,
			Agentic:     st.AgenticView,
			Divergence:  st.Divergence,
			ForceDebate: p.cfg.Pipeline.ForceDebate,
		})
		if err != nil {
			return nodeEnd, err
		}
		st.Final = final
		log.Printf("pipeline: %s resolved via %s (%s)", st.Ticker, final.Source, final.Rationale)
	}
	return NodeProposal, nil
}
