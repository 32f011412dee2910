package debate

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// Enabled reports whether the debate stage should run. The band set is
// closed at CRITICAL, so the gate fires for MAJOR and above, or whenever
// the caller forces it.
func Enabled(forceDebate bool, rep *models.DivergenceReport) bool {
	if forceDebate {
		return true
	}
	if rep == nil {
		return false
	}
	return rep.Severity == models.SeverityMajor || rep.Severity == models.SeverityCritical
}

var argumentSchema = llm.ObjectSchema("AgentArgument", "one side of the bull/bear debate",
	map[string]*llm.Schema{
		"stance":            llm.EnumProp("directional stance", "BULLISH", "NEUTRAL", "BEARISH"),
		"covered_call_bias": llm.EnumProp("covered-call posture", "UPSIDE", "INCOME", "CAUTION"),
		"confidence":        llm.NumberProp("confidence in [0,1]"),
		"bullets":           llm.ArrayProp("supporting points", llm.StringProp("bullet")),
		"risks":             llm.ArrayProp("risks", llm.StringProp("risk")),
	},
	"stance", "covered_call_bias", "confidence")

var debateSchema = llm.ObjectSchema("DebateSummary", "synthesis of the bull and bear arguments",
	map[string]*llm.Schema{
		"bull":          argumentSchema,
		"bear":          argumentSchema,
		"synthesis":     llm.ArrayProp("synthesis bullets", llm.StringProp("bullet")),
		"disagreements": llm.ArrayProp("key disagreements", llm.StringProp("disagreement")),
	},
	"bull", "bear", "synthesis", "disagreements")

// BullCase asks the backend for the bullish argument. Backend failures
// degrade to a neutral placeholder argument, never an error.
func BullCase(ctx context.Context, client llm.Client, snap *models.Snapshot) *models.Argument {
	var arg models.Argument
	err := client.GenerateJSON(ctx, bullSystem, bullUser(snap), argumentSchema, &arg)
	if err != nil {
		log.Printf("debate: bull case failed; using fallback (%s)", errClass(err))
		return &models.Argument{
			Stance:     models.StanceNeutral,
			Bias:       models.BiasIncome,
			Confidence: 0.30,
			Bullets:    []string{"Bull case unavailable (LLM timeout); continuing without it."},
			Risks:      []string{"Debate may be incomplete due to bull-side timeout."},
		}
	}
	return &arg
}

// BearCase asks the backend for the bearish argument, with the same
// degradation contract as BullCase.
func BearCase(ctx context.Context, client llm.Client, snap *models.Snapshot) *models.Argument {
	var arg models.Argument
	err := client.GenerateJSON(ctx, bearSystem, bearUser(snap), argumentSchema, &arg)
	if err != nil {
		log.Printf("debate: bear case failed; using fallback (%s)", errClass(err))
		return &models.Argument{
			Stance:     models.StanceNeutral,
			Bias:       models.BiasCaution,
			Confidence: 0.30,
			Bullets:    []string{"Bear case unavailable (LLM timeout); continuing without it."},
			Risks:      []string{"Debate may be incomplete due to bear-side timeout."},
		}
	}
	return &arg
}

// RunSides evaluates the bull and bear cases concurrently and joins
// both before returning. Each side degrades locally, so the join never
// fails.
func RunSides(ctx context.Context, client llm.Client, snap *models.Snapshot) (bull, bear *models.Argument) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bull = BullCase(gctx, client, snap)
		return nil
	})
	g.Go(func() error {
		bear = BearCase(gctx, client, snap)
		return nil
	})
	_ = g.Wait()
	return bull, bear
}

// Synthesize merges the two arguments into a debate summary. A missing
// side short-circuits with substituted placeholders; backend failures
// keep the raw arguments and note the failure in the synthesis.
func Synthesize(ctx context.Context, client llm.Client, snap *models.Snapshot, bull, bear *models.Argument) *models.DebateSummary {
	if bull == nil || bear == nil {
		placeholder := models.Argument{
			Stance:     models.StanceNeutral,
			Bias:       models.BiasIncome,
			Confidence: 0.30,
			Bullets:    []string{},
			Risks:      []string{},
		}
		summary := &models.DebateSummary{
			Bull:          placeholder,
			Bear:          placeholder,
			Synthesis:     []string{"Debate skipped: missing bull_case and/or bear_case."},
			Disagreements: []string{},
		}
		if bull != nil {
			summary.Bull = *bull
		}
		if bear != nil {
			summary.Bear = *bear
		}
		return summary
	}

	var out models.DebateSummary
	err := client.GenerateJSON(ctx, debateSystem, debateUser(snap, bull, bear), debateSchema, &out)
	if err != nil {
		log.Printf("debate: synthesis failed; using fallback (%s)", errClass(err))
		return &models.DebateSummary{
			Bull:          *bull,
			Bear:          *bear,
			Synthesis:     []string{"Debate JSON parse failed; fallback used (" + errClass(err) + ")."},
			Disagreements: []string{},
		}
	}
	return &out
}

// errClass names the failure category for log lines and fallback notes.
func errClass(err error) string {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrMalformed):
		return "malformed output"
	case errors.Is(err, llm.ErrSchemaMismatch):
		return "schema mismatch"
	case errors.Is(err, llm.ErrBackendDown):
		return "backend unavailable"
	default:
		return "error"
	}
}
