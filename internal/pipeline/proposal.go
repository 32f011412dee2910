package pipeline

import (
	"errors"

	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/pkg/models"
)

var errNoView = errors.New("no view available to build a report")

// stepProposal finalizes the report. An existing report (deterministic
// fast path) is only patched where fields are empty; otherwise a report
// is assembled from the resolved view with key-point backfill.
func (p *Pipeline) stepProposal(st *State) (Node, error) {
	if st.Report != nil {
		p.patchReport(st)
		return nodeEnd, nil
	}

	if st.Snapshot == nil {
		return nodeEnd, errNoSnapshot
	}
	view := st.sourceView()
	if view == nil {
		return nodeEnd, errNoView
	}

	stance, bias, conf := view.Stance, view.Bias, view.Confidence
	if st.Final != nil {
		stance, bias, conf = st.Final.Stance, st.Final.Bias, st.Final.Confidence
	}

	d := fundamentals.DecideTradeAction(stance, bias, conf, p.cfg.TradePolicy.MinConfidence)
	st.Report = &models.Report{
		Ticker:       st.Ticker,
		Stance:       stance,
		Bias:         bias,
		Confidence:   conf,
		KeyPoints:    st.backfillKeyPoints(view),
		Risks:        backfillRisks(view, st.DetRisks),
		Snapshot:     st.Snapshot,
		Action:       d.Action,
		ActionReason: d.Reason,
		Appendix:     buildAppendix(st),
	}
	return nodeEnd, nil
}

// patchReport fills only the report fields the earlier nodes left empty.
func (p *Pipeline) patchReport(st *State) {
	rep := st.Report
	if rep.Action == "" {
		d := fundamentals.DecideTradeAction(rep.Stance, rep.Bias, rep.Confidence, p.cfg.TradePolicy.MinConfidence)
		rep.Action = d.Action
		rep.ActionReason = d.Reason
	}
	if rep.Appendix == "" {
		rep.Appendix = buildAppendix(st)
	}
}

// sourceView maps the final decision back to the view that won, falling
// back through llm then deterministic.
func (s *State) sourceView() *models.View {
	if s.Final != nil {
		switch s.Final.Source {
		case models.SourceAgentic:
			if s.AgenticView != nil {
				return s.AgenticView
			}
		case models.SourceLLM:
			if s.LLMView != nil {
				return s.LLMView
			}
		}
	}
	if s.DetView != nil {
		return s.DetView
	}
	return s.LLMView
}

// backfillKeyPoints walks the fallback chain until it finds content:
// winning view, agentic bullets, deterministic key points, and finally
// lines synthesized from the snapshot itself.
func (s *State) backfillKeyPoints(view *models.View) []string {
	if len(view.KeyPoints) > 0 {
		return capList(view.KeyPoints, 4)
	}
	if s.AgenticResult != nil && len(s.AgenticResult.Bullets) > 0 {
		return capList([]string(s.AgenticResult.Bullets), 4)
	}
	if s.DetView != nil && len(s.DetView.KeyPoints) > 0 {
		return capList(s.DetView.KeyPoints, 4)
	}
	if len(s.DetKeyPoints) > 0 {
		return capList(s.DetKeyPoints, 4)
	}
	return capList(synthesizedKeyPoints(s.Snapshot), 4)
}

func backfillRisks(view *models.View, detRisks []string) []string {
	if len(view.Risks) > 0 {
		return capList(view.Risks, 4)
	}
	return capList(detRisks, 4)
}

// synthesizedKeyPoints is the last-resort report body when every view
// came back empty-handed.
func synthesizedKeyPoints(snap *models.Snapshot) []string {
	dash := func(v *float64, pct bool) string {
		if v == nil {
			return "—"
		}
		if pct {
			return trimFloat(*v, 1) + "%"
		}
		return trimFloat(*v, 2)
	}
	return []string{
		"Revenue growth YoY: " + dash(snap.RevenueGrowthYoYPct, true),
		"Operating margin: " + dash(snap.OperatingMarginPct, true),
		"Debt-to-equity: " + dash(snap.DebtToEquity, false),
		"Divergence detected: see appendix for LLM debate summary.",
	}
}
