package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/coveredcall/internal/config"
	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/internal/provider"
)

var ErrEmptyTicker = errors.New("pipeline: ticker is required")

// Pipeline is a reusable, immutable run configuration. Construct one per
// effective configuration; Run may be called concurrently.
type Pipeline struct {
	cfg      *config.Config
	mode     fundamentals.Mode
	registry *provider.Registry
	client   llm.Client
	trace    func(node string)
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithClient injects a language-model client, bypassing the one built
// from config. Used by tests and by callers that share a client.
func WithClient(c llm.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithTraceFunc registers a callback invoked as each node starts, in
// order. Used to stream run progress over the websocket.
func WithTraceFunc(fn func(node string)) Option {
	return func(p *Pipeline) { p.trace = fn }
}

// New validates the configuration and builds a pipeline. Modes that need
// a language model fail here, not mid-run, when no backend is available.
func New(cfg *config.Config, registry *provider.Registry, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := fundamentals.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, mode: mode, registry: registry}
	for _, opt := range opts {
		opt(p)
	}

	if p.needsClient() && p.client == nil {
		timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
		client, err := llm.New(cfg.LLM.Provider, cfg.LLM.OllamaURL, cfg.LLM.Model, timeout)
		if err != nil {
			return nil, fmt.Errorf("pipeline: mode %q needs an LLM backend: %w", mode, err)
		}
		p.client = client
	}
	return p, nil
}

// needsClient reports whether the configured mode or debate flag can
// reach a language-model call.
func (p *Pipeline) needsClient() bool {
	return p.mode != fundamentals.ModeDeterministic || p.cfg.Pipeline.ForceDebate
}

// Mode returns the parsed pipeline mode.
func (p *Pipeline) Mode() fundamentals.Mode { return p.mode }

// Run executes one full analysis for the ticker and returns the final
// state, whose Report carries the explain payload and node trace.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*State, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	st := &State{
		Ticker: ticker,
		AsOf:   time.Now().UTC(),
		Mode:   p.mode,
	}

	node := NodeFundamental
	for node != nodeEnd {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: canceled at node %s: %w", node, err)
		}
		st.Trace = append(st.Trace, string(node))
		if p.trace != nil {
			p.trace(string(node))
		}
		next, err := p.step(ctx, st, node)
		if err != nil {
			return nil, fmt.Errorf("pipeline: node %s: %w", node, err)
		}
		node = next
	}

	if st.Report != nil {
		st.Report.Explain = st.Explain()
	}
	return st, nil
}

// step runs one node and returns the next. Transitions are static except
// for the mode fork after the fundamental node.
func (p *Pipeline) step(ctx context.Context, st *State, node Node) (Node, error) {
	switch node {
	case NodeFundamental:
		return p.stepFundamental(ctx, st)
	case NodeDet:
		return NodeFundResolve, nil
	case NodeLLM:
		return p.stepLLM(ctx, st)
	case NodeAgentic:
		return p.stepAgentic(ctx, st)
	case NodeDivergence:
		return p.stepDivergence(st)
	case NodeFanoutLLM:
		return p.stepFanout(ctx, st)
	case NodeBull, NodeBear:
		// Sides are evaluated concurrently at the fan-out node; these
		// nodes exist so the trace records both branches.
		if node == NodeBull {
			return NodeBear, nil
		}
		return NodeDebate, nil
	case NodeDebate:
		return p.stepDebate(ctx, st)
	case NodeFundResolve:
		return p.stepResolve(st)
	case NodeProposal:
		return p.stepProposal(st)
	}
	return nodeEnd, fmt.Errorf("unknown node %q", node)
}

func (p *Pipeline) thresholds() fundamentals.Thresholds {
	return fundamentals.Thresholds{
		StrongGrowthPct:     p.cfg.Thresholds.StrongGrowthPct,
		MinOperMarginPct:    p.cfg.Thresholds.MinOperMarginPct,
		StrongOperMarginPct: p.cfg.Thresholds.StrongOperMarginPct,
		MaxDebtToEquity:     p.cfg.Thresholds.MaxDebtToEquity,
	}
}
