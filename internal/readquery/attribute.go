package readquery

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/querycypher"
	"github.com/bamford/weave-io/internal/queryir"
)

var comparisonOps = map[string]string{
	"=":           "=",
	"==":          "=",
	"!=":          "<>",
	"<>":          "<>",
	"<":           "<",
	"<=":          "<=",
	">":           ">",
	">=":          ">=",
	"in":          "IN",
	"starts with": "STARTS WITH",
	"ends with":   "ENDS WITH",
	"contains":    "CONTAINS",
}

var combineOps = map[string]string{
	"and": "AND",
	"or":  "OR",
	"xor": "XOR",
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "/",
	"%":   "%",
}

var aggregateFuncs = []string{"avg", "collect", "count", "max", "min", "stdev", "sum"}

// AttributeQuery is a scalar expression evaluated on the rows of one object
// query. It stays an expression until it is filtered on, aggregated or
// compiled.
type AttributeQuery struct {
	q *Query

	// base is the node whose rows the expression is evaluated on.
	base queryir.NodeID

	// expr reads base as {{parent}} and deps as {{dep0}}, {{dep1}}, ...
	expr   string
	deps   []queryir.NodeID
	params map[string]ir.IRValue
	name   string
	err    error
}

// Err returns the first error encountered building this query.
func (a *AttributeQuery) Err() error { return a.err }

// Expression returns the unrendered expression.
func (a *AttributeQuery) Expression() string { return a.expr }

// Compare compares the expression with a literal bound as a parameter:
// snr.Compare(">", 5.0) renders as `... > $p0`.
func (a *AttributeQuery) Compare(op string, value any) *AttributeQuery {
	if a.err != nil {
		return a
	}
	cypherOp, ok := comparisonOps[strings.ToLower(strings.TrimSpace(op))]
	if !ok {
		return a.fail(fmt.Errorf("unknown comparison %q", op))
	}
	name, v, err := a.q.bind(value)
	if err != nil {
		return a.fail(err)
	}
	params := maps.Clone(a.params)
	if params == nil {
		params = make(map[string]ir.IRValue, 1)
	}
	params[name] = v
	return &AttributeQuery{
		q:      a.q,
		base:   a.base,
		expr:   group(a.expr) + " " + cypherOp + " $" + name,
		deps:   slices.Clone(a.deps),
		params: params,
		name:   a.name,
	}
}

// Combine joins two expressions over the same rows with a boolean or
// arithmetic operator: mask.Combine("and", other).
func (a *AttributeQuery) Combine(op string, other *AttributeQuery) *AttributeQuery {
	if a.err != nil {
		return a
	}
	if other.err != nil {
		return a.fail(other.err)
	}
	cypherOp, ok := combineOps[strings.ToLower(strings.TrimSpace(op))]
	if !ok {
		return a.fail(fmt.Errorf("unknown operator %q", op))
	}
	if other.base != a.base {
		return a.fail(&MismatchError{Op: cypherOp, Left: a.label(), Right: other.label()})
	}

	deps := slices.Clone(a.deps)
	remap := make(map[int]int, len(other.deps))
	for i, d := range other.deps {
		j := slices.Index(deps, d)
		if j < 0 {
			j = len(deps)
			deps = append(deps, d)
		}
		remap[i] = j
	}
	params := maps.Clone(a.params)
	if params == nil {
		params = make(map[string]ir.IRValue, len(other.params))
	}
	maps.Copy(params, other.params)

	return &AttributeQuery{
		q:      a.q,
		base:   a.base,
		expr:   group(a.expr) + " " + cypherOp + " " + group(renumberDeps(other.expr, remap)),
		deps:   deps,
		params: params,
		name:   a.name,
	}
}

// Aggregate reduces the expression to one value per row of wrt:
// snr.Aggregate("sum", obs). A nil wrt aggregates over the whole store.
func (a *AttributeQuery) Aggregate(fn string, wrt *ObjectQuery) *AttributeQuery {
	if a.err != nil {
		return a
	}
	if wrt == nil {
		wrt = a.q.Data()
	}
	if wrt.err != nil {
		return a.fail(wrt.err)
	}
	fn = strings.ToLower(strings.TrimSpace(fn))
	if !slices.Contains(aggregateFuncs, fn) {
		return a.fail(fmt.Errorf("unknown aggregate function %q", fn))
	}
	if len(a.deps) > 0 {
		return a.fail(&UnsupportedError{Construct: "aggregating an expression over computed values"})
	}

	name := fn + "_" + a.name
	id, err := a.q.g.AddAggregation(a.base, wrt.node, fn+"("+a.expr+")",
		queryir.WithParams(a.params),
		queryir.WithName(name))
	if err != nil {
		return a.fail(fmt.Errorf("%s over %s: %w", fn, wrt.label(), err))
	}
	return &AttributeQuery{
		q:    a.q,
		base: wrt.node,
		expr: "{{" + queryir.DepRef(0) + "}}",
		deps: []queryir.NodeID{id},
		name: name,
	}
}

// Filter on a computed scalar is not implemented; filter the objects the
// scalar was read from instead.
func (a *AttributeQuery) Filter(*AttributeQuery) *AttributeQuery {
	if a.err != nil {
		return a
	}
	return a.fail(&UnsupportedError{Construct: "filtering a computed scalar"})
}

// Compile renders a statement returning the expression's value per row.
func (a *AttributeQuery) Compile() (*querycypher.Statement, error) {
	if a.err != nil {
		return nil, a.err
	}
	if len(a.deps) == 1 && a.expr == "{{"+queryir.DepRef(0)+"}}" {
		return a.q.compile(a.deps[0], nil)
	}
	return a.q.compile(queryir.NoNode, func(g *queryir.Graph) (queryir.NodeID, error) {
		id, err := g.AddOperation(a.base, a.deps, a.expr,
			queryir.WithParams(a.params),
			queryir.WithName(a.name))
		if err != nil {
			return queryir.NoNode, fmt.Errorf("return %s: %w", a.label(), err)
		}
		return id, nil
	})
}

func (a *AttributeQuery) fail(err error) *AttributeQuery {
	return &AttributeQuery{q: a.q, base: queryir.NoNode, err: err}
}

func (a *AttributeQuery) label() string {
	if a.name != "" {
		return a.name
	}
	return a.expr
}

// group parenthesises compound expressions so operators bind as written.
func group(expr string) string {
	if strings.ContainsRune(expr, ' ') {
		return "(" + expr + ")"
	}
	return expr
}

// renumberDeps rewrites {{depN}} placeholders through remap.
func renumberDeps(expr string, remap map[int]int) string {
	return queryir.PlaceholderPattern().ReplaceAllStringFunc(expr, func(m string) string {
		n, ok := strings.CutPrefix(m[2:len(m)-2], "dep")
		if !ok {
			return m
		}
		i, err := strconv.Atoi(n)
		if err != nil {
			return m
		}
		return "{{" + queryir.DepRef(remap[i]) + "}}"
	})
}
