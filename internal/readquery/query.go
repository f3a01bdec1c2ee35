package readquery

import (
	"fmt"
	"log/slog"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/querycypher"
	"github.com/bamford/weave-io/internal/queryir"
	"github.com/bamford/weave-io/internal/schema"
)

// StartName names the node standing for the whole data store.
const StartName = queryir.StoreStart

// Query owns the graph every derived query adds to.
// Not safe for concurrent use.
type Query struct {
	schema   *schema.Schema
	g        *queryir.Graph
	compiler *compiler.Compiler
	logger   *slog.Logger
	nparams  int
}

// Option configures a Query.
type Option func(*Query)

// WithCompiler sets the compiler used by Compile.
func WithCompiler(c *compiler.Compiler) Option {
	return func(q *Query) {
		q.compiler = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Query) {
		q.logger = logger
	}
}

// New creates an empty query over s.
func New(s *schema.Schema, opts ...Option) *Query {
	q := &Query{
		schema: s,
		g:      queryir.NewGraph(StartName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.compiler == nil {
		q.compiler = compiler.New(compiler.WithLogger(q.logger))
	}
	return q
}

// Graph returns the graph built so far.
func (q *Query) Graph() *queryir.Graph {
	return q.g
}

// Data returns the query standing for the whole data store. It is the
// default scope of an aggregation.
func (q *Query) Data() *ObjectQuery {
	return &ObjectQuery{q: q, node: q.g.Start(), name: StartName}
}

// Objects starts from every object of one kind: q.Objects("obs").
//
// The name must be plural; asking for one object out of the whole store is a
// CardinalityError.
func (q *Query) Objects(name string) *ObjectQuery {
	h, singular, err := q.schema.Resolve(name)
	if err != nil {
		return q.failed(err)
	}
	if singular {
		return q.failed(&schema.CardinalityError{From: StartName, To: h})
	}
	id, err := q.g.AddTraversal(q.g.Start(), []string{h})
	if err != nil {
		return q.failed(fmt.Errorf("objects %s: %w", name, err))
	}
	return &ObjectQuery{q: q, node: id, hierarchy: h, name: name}
}

func (q *Query) failed(err error) *ObjectQuery {
	return &ObjectQuery{q: q, node: queryir.NoNode, err: err}
}

// bind allocates the next parameter name for v.
func (q *Query) bind(v any) (string, ir.IRValue, error) {
	if v == nil {
		return "", nil, &UnsupportedError{Construct: "comparing with null"}
	}
	value, err := ir.FromGo(v)
	if err != nil {
		return "", nil, fmt.Errorf("bind parameter: %w", err)
	}
	name := fmt.Sprintf("p%d", q.nparams)
	q.nparams++
	return name, value, nil
}

// compile runs the pipeline on a copy of the graph. extend, if non-nil,
// adds the output node to the copy.
func (q *Query) compile(output queryir.NodeID, extend func(*queryir.Graph) (queryir.NodeID, error)) (*querycypher.Statement, error) {
	g := q.g
	if extend != nil {
		g = g.Clone()
		id, err := extend(g)
		if err != nil {
			return nil, err
		}
		output = id
	}
	stmt, _, err := querycypher.Compile(q.compiler, g, output)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("query compiled", "returns", stmt.Returns, "fragments", len(stmt.Fragments), "params", len(stmt.Params))
	return stmt, nil
}
