package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bamford/weave-io/internal/queryir"
)

// Compiler sequences query graphs into executable steps.
//
// A Compiler holds configuration only and may be shared between goroutines;
// each Compile call works on its own graph.
type Compiler struct {
	logger   *slog.Logger
	maxSteps int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for debug tracing of the walk.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithMaxSteps sets the walk iteration budget.
//
// Default: DefaultMaxSteps. Use a small value in tests to exercise the
// budget error.
func WithMaxSteps(maxSteps int) Option {
	return func(c *Compiler) {
		c.maxSteps = maxSteps
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:   slog.Default(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile is shorthand for New().Compile(g, output).
func Compile(g *queryir.Graph, output queryir.NodeID) (*Plan, error) {
	return New().Compile(g, output)
}

// Compile sequences g into steps that compute output.
//
// CRITICAL: g is consumed. On success every edge that contributes to output
// has been emitted and removed; on failure g is left partially consumed and
// must be discarded.
//
// Errors:
//   - StructuralError{UNKNOWN_NODE} if output is not a live node
//   - StructuralError{INVALID_GRAPH} if g fails Validate
//   - any other StructuralError code if the graph cannot be sequenced
func (c *Compiler) Compile(g *queryir.Graph, output queryir.NodeID) (*Plan, error) {
	began := time.Now()
	plan, err := c.compile(g, output)
	CompileDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		CompileTotal.WithLabelValues("error").Inc()
		var se *StructuralError
		if errors.As(err, &se) {
			se.Graph = g.Dump()
			c.logger.Error("compile failed",
				"code", se.Code,
				"node", se.Node,
				"output", output,
				"error", se.Message)
			return nil, err
		}
		c.logger.Debug("compile failed", "output", output, "error", err)
		return nil, err
	}
	CompileTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("compile finished",
		"output", plan.OutputVar,
		"steps", len(plan.Steps),
		"checkpoints", plan.Checkpoints,
		"pruned", plan.Pruned)
	return plan, nil
}

func (c *Compiler) compile(g *queryir.Graph, output queryir.NodeID) (*Plan, error) {
	if !g.IsLive(output) {
		return nil, structural(ErrCodeUnknownNode, output, "output node does not exist")
	}
	if issues := g.Validate(); len(issues) > 0 {
		err := structural(ErrCodeInvalidGraph, issues[0].Node, "%s", issues[0])
		err.Details = map[string]string{"issues": fmt.Sprintf("%d", len(issues))}
		return nil, err
	}

	pruned, err := g.Restrict(output)
	if err != nil {
		return nil, fmt.Errorf("restrict to output: %w", err)
	}
	if len(pruned) > 0 {
		c.logger.Debug("pruned nodes that do not reach output", "count", len(pruned))
	}

	w := &walker{
		g:           g,
		logger:      c.logger,
		budget:      newStepBudget(c.maxSteps),
		established: map[queryir.NodeID]bool{g.Start(): true},
	}
	if err := w.walk(g.Start(), nil, output, 0); err != nil {
		return nil, err
	}

	// Anything still live was never emitted: a branch was dropped.
	for _, e := range g.Edges() {
		if e.Kind == queryir.EdgeDependency {
			continue
		}
		return nil, &StructuralError{
			Code:    ErrCodeUnconsumedEdges,
			Message: fmt.Sprintf("edge e%d %s n%d->n%d was never emitted", e.ID, e.Kind, e.From, e.To),
			Node:    e.From,
			Details: map[string]string{"remaining": fmt.Sprintf("%d", g.NumEdges())},
		}
	}

	return &Plan{
		Steps:       w.steps,
		StartVar:    g.Node(g.Start()).Var,
		OutputVar:   g.Node(output).Var,
		Checkpoints: w.checkpoints,
		Pruned:      len(pruned),
	}, nil
}
