package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/querycypher"
	"github.com/bamford/weave-io/internal/queryir"
	"github.com/bamford/weave-io/internal/store"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every assertion held and no unexpected error
	// occurred.
	Pass bool `json:"pass"`

	// Errors lists assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Statement is the rendered query, nil if compilation failed.
	Statement *querycypher.Statement `json:"statement,omitempty"`

	// Plan is the compiled plan, nil if compilation failed.
	Plan *compiler.Plan `json:"-"`

	// GraphFingerprint identifies the graph and output that were compiled.
	GraphFingerprint string `json:"graph_fingerprint,omitempty"`

	// Err is the build or compile error, if any.
	Err error `json:"-"`

	// Cached is true when the statement came from the store.
	Cached bool `json:"cached,omitempty"`

	// ops maps op ids to the nodes they created.
	ops map[string]queryir.NodeID
	g   *queryir.Graph
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness compiles scenarios.
type Harness struct {
	compiler *compiler.Compiler
	store    *store.Store
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithCompiler sets the compiler. Default: compiler.New with the harness
// logger.
func WithCompiler(c *compiler.Compiler) Option {
	return func(h *Harness) {
		h.compiler = c
	}
}

// WithStore records compiled statements in st and reuses statements already
// recorded for the same graph.
func WithStore(st *store.Store) Option {
	return func(h *Harness) {
		h.store = st
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.compiler == nil {
		h.compiler = compiler.New(compiler.WithLogger(h.logger))
	}
	return h
}

// Run is shorthand for New().Run(context.Background(), scenario).
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run builds, compiles and checks one scenario.
//
// Build and compile failures are part of the Result, since a scenario may
// expect them. The returned error is reserved for store failures.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := &Result{Pass: true}

	g, ops, err := Build(scenario)
	result.g, result.ops = g, ops
	if err != nil {
		result.Err = err
	} else if err := h.compile(ctx, scenario, result); err != nil {
		return nil, err
	}
	h.logger.Debug("scenario compiled",
		"scenario", scenario.Name,
		"cached", result.Cached,
		"error", result.Err)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) compile(ctx context.Context, scenario *Scenario, result *Result) error {
	output := result.ops[scenario.Output]
	fp, err := result.g.Fingerprint(output)
	if err != nil {
		result.Err = err
		return nil
	}
	result.GraphFingerprint = fp

	if h.store != nil {
		rec, ok, err := h.store.Lookup(ctx, fp)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", scenario.Name, err)
		}
		if ok {
			result.Statement = &querycypher.Statement{
				Fragments: rec.Fragments,
				Params:    rec.Params,
				Returns:   rec.Output,
			}
			result.Cached = true
		}
	}

	// The plan is needed for assertions even when the statement is cached.
	stmt, plan, err := querycypher.Compile(h.compiler, result.g, output)
	if err != nil {
		result.Err = err
		return nil
	}
	result.Plan = plan
	if result.Cached {
		return nil
	}
	result.Statement = stmt

	if h.store == nil {
		return nil
	}
	stmtFP, err := ir.StatementFingerprint(stmt.Fragments, stmt.Params, stmt.Returns)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", scenario.Name, err)
	}
	_, _, err = h.store.Put(ctx, store.Record{
		GraphFingerprint: fp,
		Fingerprint:      stmtFP,
		Source:           scenario.Name,
		Output:           stmt.Returns,
		Text:             stmt.Text(),
		Fragments:        stmt.Fragments,
		Params:           stmt.Params,
		Checkpoints:      plan.Checkpoints,
		CompilerVersion:  ir.CompilerVersion,
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", scenario.Name, err)
	}
	return nil
}

// Build applies the scenario's ops to a new graph. It returns the graph and
// the node each op created, keyed by op id.
func Build(scenario *Scenario) (*queryir.Graph, map[string]queryir.NodeID, error) {
	g := queryir.NewGraph(scenario.Start)
	ids := map[string]queryir.NodeID{StartRef: g.Start()}

	lookup := func(ref string) (queryir.NodeID, error) {
		if ref == "" {
			return g.Start(), nil
		}
		id, ok := ids[ref]
		if !ok {
			return queryir.NoNode, fmt.Errorf("unknown op %q", ref)
		}
		return id, nil
	}

	for i, op := range scenario.Ops {
		id, err := applyOp(g, op, lookup)
		if err != nil {
			return g, ids, fmt.Errorf("ops[%d] (%s): %w", i, op.ID, err)
		}
		ids[op.ID] = id
	}
	return g, ids, nil
}

func applyOp(g *queryir.Graph, op Op, lookup func(string) (queryir.NodeID, error)) (queryir.NodeID, error) {
	parent, err := lookup(op.Parent)
	if err != nil {
		return queryir.NoNode, err
	}
	deps := make([]queryir.NodeID, 0, len(op.Deps))
	for _, ref := range op.Deps {
		id, err := lookup(ref)
		if err != nil {
			return queryir.NoNode, err
		}
		deps = append(deps, id)
	}

	var opts []queryir.EdgeOption
	if op.Template != "" {
		opts = append(opts, queryir.WithTemplate(op.Template))
	}
	if op.Name != "" {
		opts = append(opts, queryir.WithName(op.Name))
	}
	if len(op.Params) > 0 {
		params := make(map[string]ir.IRValue, len(op.Params))
		for name, v := range op.Params {
			value, err := ir.FromGo(v)
			if err != nil {
				return queryir.NoNode, fmt.Errorf("param %q: %w", name, err)
			}
			params[name] = value
		}
		opts = append(opts, queryir.WithParams(params))
	}

	switch op.Op {
	case OpTraverse:
		return g.AddTraversal(parent, op.Path, opts...)
	case OpFilter:
		return g.AddFilter(parent, deps, op.Expression, opts...)
	case OpAggregate:
		anchor, err := lookup(op.Wrt)
		if err != nil {
			return queryir.NoNode, err
		}
		return g.AddAggregation(parent, anchor, op.Expression, opts...)
	case OpOperate:
		return g.AddOperation(parent, deps, op.Expression, opts...)
	default:
		return queryir.NoNode, fmt.Errorf("unknown op %q", op.Op)
	}
}

// ErrorCode extracts the code of a structural or build error.
func ErrorCode(err error) string {
	var se *compiler.StructuralError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	var be *queryir.BuildError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return ""
}
