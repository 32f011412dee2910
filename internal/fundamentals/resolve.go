package fundamentals

import (
	"errors"
	"fmt"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// ErrNoViews indicates the resolver found nothing to pick from. The
// deterministic evaluator always runs first, so hitting this is a wiring
// bug, not a data problem.
var ErrNoViews = errors.New("fundamentals: no views available to resolve")

// ResolveInput carries everything the resolution policy considers.
type ResolveInput struct {
	Mode        Mode
	Det         *models.View
	LLM         *models.View
	Agentic     *models.View
	Divergence  *models.DivergenceReport
	ForceDebate bool
}

// Resolve selects the final view with a conservative precedence policy:
//
//  1. Agentic mode with an agentic view present: agentic wins.
//  2. ALIGNED/MINOR divergence with det present: deterministic wins,
//     even under force_debate (the flag gates debate, not resolution).
//  3. force_debate with an llm view present: llm wins.
//  4. MAJOR/CRITICAL divergence + force_debate + llm: llm wins
//     (covered by rule 3; retained so the rationale names the severity).
//  5. Fallback order: deterministic, then llm, then agentic.
//
// Each branch records its own rationale for auditability.
func Resolve(in ResolveInput) (*models.FinalDecision, error) {
	severity := "UNKNOWN"
	if in.Divergence != nil && in.Divergence.Severity != "" {
		severity = string(in.Divergence.Severity)
	}

	mk := func(src models.FinalSource, v *models.View, why string) *models.FinalDecision {
		return &models.FinalDecision{
			Stance:     v.Stance,
			Bias:       v.Bias,
			Confidence: v.Confidence,
			Source:     src,
			Rationale:  why,
		}
	}

	if in.Mode == ModeAgentic && in.Agentic != nil {
		return mk(models.SourceAgentic, in.Agentic,
			fmt.Sprintf("mode=agentic; agentic present; severity=%s", severity)), nil
	}

	if (severity == string(models.SeverityAligned) || severity == string(models.SeverityMinor)) && in.Det != nil {
		return mk(models.SourceDeterministic, in.Det,
			fmt.Sprintf("severity=%s; prefer deterministic", severity)), nil
	}

	if in.ForceDebate && in.LLM != nil {
		return mk(models.SourceLLM, in.LLM,
			fmt.Sprintf("force_debate; using llm; severity=%s", severity)), nil
	}

	if (severity == string(models.SeverityMajor) || severity == string(models.SeverityCritical)) &&
		in.ForceDebate && in.LLM != nil {
		return mk(models.SourceLLM, in.LLM,
			fmt.Sprintf("severity=%s + force_debate; using llm", severity)), nil
	}

	if in.Det != nil {
		return mk(models.SourceDeterministic, in.Det,
			fmt.Sprintf("fallback deterministic; severity=%s", severity)), nil
	}
	if in.LLM != nil {
		return mk(models.SourceLLM, in.LLM,
			fmt.Sprintf("fallback llm; severity=%s", severity)), nil
	}
	if in.Agentic != nil {
		return mk(models.SourceAgentic, in.Agentic,
			fmt.Sprintf("fallback agentic; severity=%s", severity)), nil
	}

	return nil, ErrNoViews
}
