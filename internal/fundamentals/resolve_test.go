package fundamentals

import (
	"errors"
	"strings"
	"testing"

	"github.com/seenimoa/coveredcall/pkg/models"
)

func divReport(sev models.Severity) *models.DivergenceReport {
	return &models.DivergenceReport{Severity: sev}
}

func TestResolveAgenticModeWins(t *testing.T) {
	// Agentic mode beats even a confident deterministic view.
	dec, err := Resolve(ResolveInput{
		Mode:       ModeAgentic,
		Det:        view(models.StanceBullish, models.BiasUpside, 0.8),
		Agentic:    view(models.StanceBearish, models.BiasCaution, 0.7),
		Divergence: divReport(models.SeverityCritical),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceAgentic || dec.Stance != models.StanceBearish {
		t.Errorf("got %s/%s, want agentic/BEARISH", dec.Source, dec.Stance)
	}
	if !strings.Contains(dec.Rationale, "mode=agentic") {
		t.Errorf("rationale = %q", dec.Rationale)
	}
}

func TestResolveAlignedPrefersDeterministicDespiteForceDebate(t *testing.T) {
	dec, err := Resolve(ResolveInput{
		Mode:        ModeLLM,
		Det:         view(models.StanceBullish, models.BiasUpside, 0.8),
		LLM:         view(models.StanceNeutral, models.BiasIncome, 0.6),
		Divergence:  divReport(models.SeverityAligned),
		ForceDebate: true,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceDeterministic || dec.Stance != models.StanceBullish {
		t.Errorf("got %s/%s, want deterministic/BULLISH", dec.Source, dec.Stance)
	}
	if !strings.Contains(dec.Rationale, "prefer deterministic") {
		t.Errorf("rationale = %q", dec.Rationale)
	}
}

func TestResolveMajorWithForceDebatePrefersLLM(t *testing.T) {
	in := ResolveInput{
		Mode:        ModeLLM,
		Det:         view(models.StanceBullish, models.BiasUpside, 0.8),
		LLM:         view(models.StanceBearish, models.BiasCaution, 0.8),
		Divergence:  divReport(models.SeverityMajor),
		ForceDebate: true,
	}
	dec, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceLLM {
		t.Errorf("force_debate=true: source = %s, want llm", dec.Source)
	}

	in.ForceDebate = false
	dec, err = Resolve(in)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceDeterministic {
		t.Errorf("force_debate=false: source = %s, want deterministic", dec.Source)
	}
	if !strings.Contains(dec.Rationale, "fallback deterministic") {
		t.Errorf("rationale = %q", dec.Rationale)
	}
}

func TestResolveFallbackChain(t *testing.T) {
	llmView := view(models.StanceNeutral, models.BiasIncome, 0.6)
	agenticView := view(models.StanceBearish, models.BiasCaution, 0.4)

	dec, err := Resolve(ResolveInput{Mode: ModeLLM, LLM: llmView})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceLLM {
		t.Errorf("source = %s, want llm", dec.Source)
	}
	if !strings.Contains(dec.Rationale, "severity=UNKNOWN") {
		t.Errorf("no divergence report should yield UNKNOWN severity, got %q", dec.Rationale)
	}

	dec, err = Resolve(ResolveInput{Mode: ModeLLM, Agentic: agenticView})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if dec.Source != models.SourceAgentic {
		t.Errorf("source = %s, want agentic", dec.Source)
	}
}

func TestResolveNoViewsIsFatal(t *testing.T) {
	_, err := Resolve(ResolveInput{Mode: ModeDeterministic})
	if !errors.Is(err, ErrNoViews) {
		t.Errorf("error = %v, want ErrNoViews", err)
	}
}
