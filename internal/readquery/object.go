package readquery

import (
	"fmt"
	"strings"

	"github.com/bamford/weave-io/internal/querycypher"
	"github.com/bamford/weave-io/internal/queryir"
)

// ObjectQuery is a set of rows each holding one object of a hierarchy.
type ObjectQuery struct {
	q         *Query
	node      queryir.NodeID
	hierarchy string
	name      string
	err       error
}

// Err returns the first error encountered building this query.
func (o *ObjectQuery) Err() error { return o.err }

// Node returns the graph node the query stands for.
func (o *ObjectQuery) Node() queryir.NodeID { return o.node }

// Hierarchy returns the hierarchy name, or "" for the whole store.
func (o *ObjectQuery) Hierarchy() string { return o.hierarchy }

// Traverse walks to related objects: obs.Traverse("runs").
//
// A singular name ("run") demands at most one related object per row and
// fails with a CardinalityError otherwise. Ambiguous routes fail with an
// AmbiguousPathError.
func (o *ObjectQuery) Traverse(name string) *ObjectQuery {
	if o.err != nil {
		return o
	}
	h, singular, err := o.q.schema.Resolve(name)
	if err != nil {
		return o.fail(err)
	}
	return o.traverseTo(h, singular, name)
}

func (o *ObjectQuery) traverseTo(h string, wantSingular bool, name string) *ObjectQuery {
	if o.hierarchy == "" {
		return o.q.Objects(name)
	}
	path, err := o.q.schema.PathBetween(o.hierarchy, h, wantSingular)
	if err != nil {
		return o.fail(err)
	}
	if len(path.Hops) == 0 {
		return o
	}
	id, err := o.q.g.AddTraversal(o.node, path.Hops)
	if err != nil {
		return o.fail(fmt.Errorf("traverse %s: %w", name, err))
	}
	return &ObjectQuery{q: o.q, node: id, hierarchy: h, name: name}
}

// Attribute reads a factor of these objects or of a related object:
// runs.Attribute("camera").
//
// A factor of a singular relation (each run has one ArmConfig) is read
// inline and stays on these rows. A factor of a plural relation walks to the
// related objects first, so the result must be aggregated before it can
// filter these objects.
func (o *ObjectQuery) Attribute(name string) *AttributeQuery {
	if o.err != nil {
		return &AttributeQuery{q: o.q, err: o.err}
	}
	owner, singular, err := o.q.schema.FactorOwner(name)
	if err != nil {
		return &AttributeQuery{q: o.q, err: err}
	}
	factor, err := o.q.schema.FactorName(name)
	if err != nil {
		return &AttributeQuery{q: o.q, err: err}
	}
	parent := "{{" + queryir.RefParent + "}}"
	if owner == o.hierarchy {
		return &AttributeQuery{q: o.q, base: o.node, expr: parent + "." + factor, name: factor}
	}

	path, err := o.q.schema.PathBetween(o.hierarchy, owner, singular)
	if err != nil {
		return &AttributeQuery{q: o.q, err: err}
	}
	if path.Singular {
		return &AttributeQuery{q: o.q, base: o.node, expr: inlineRead(path.Hops, factor), name: factor}
	}
	related := o.traverseTo(owner, false, owner)
	if related.err != nil {
		return &AttributeQuery{q: o.q, err: related.err}
	}
	return &AttributeQuery{q: o.q, base: related.node, expr: parent + "." + factor, name: factor}
}

// inlineRead renders a factor read through a singular relation as a pattern
// comprehension on the current row.
func inlineRead(hops []string, factor string) string {
	last := hops[len(hops)-1]
	v := "_" + strings.ToLower(last)
	var b strings.Builder
	b.WriteString("head([({{" + queryir.RefParent + "}})")
	for i, h := range hops {
		b.WriteString("-[*]-(")
		if i == len(hops)-1 {
			b.WriteString(v)
		}
		b.WriteString(":" + h + ")")
	}
	b.WriteString(" | " + v + "." + factor + "])")
	return b.String()
}

// Filter keeps the rows where mask holds. The mask must be built from these
// same objects: runs.Filter(runs.Attribute("camera").Compare("=", "red")).
func (o *ObjectQuery) Filter(mask *AttributeQuery) *ObjectQuery {
	if o.err != nil {
		return o
	}
	if mask.err != nil {
		return o.fail(mask.err)
	}
	if mask.base != o.node {
		return o.fail(&MismatchError{Op: "filter", Left: o.label(), Right: mask.label()})
	}
	id, err := o.q.g.AddFilter(o.node, mask.deps, mask.expr, queryir.WithParams(mask.params))
	if err != nil {
		return o.fail(fmt.Errorf("filter %s: %w", o.label(), err))
	}
	return &ObjectQuery{q: o.q, node: id, hierarchy: o.hierarchy, name: o.name}
}

// Count counts these objects per row of wrt. A nil wrt counts over the
// whole store.
func (o *ObjectQuery) Count(wrt *ObjectQuery) *AttributeQuery {
	return o.Aggregate("count", wrt)
}

// Aggregate applies an aggregate function to these objects per row of wrt.
func (o *ObjectQuery) Aggregate(fn string, wrt *ObjectQuery) *AttributeQuery {
	if o.err != nil {
		return &AttributeQuery{q: o.q, err: o.err}
	}
	self := &AttributeQuery{q: o.q, base: o.node, expr: "{{" + queryir.RefParent + "}}", name: o.name}
	return self.Aggregate(fn, wrt)
}

// Compile renders a statement returning these objects.
func (o *ObjectQuery) Compile() (*querycypher.Statement, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.q.compile(o.node, nil)
}

func (o *ObjectQuery) fail(err error) *ObjectQuery {
	return &ObjectQuery{q: o.q, node: queryir.NoNode, err: err}
}

func (o *ObjectQuery) label() string {
	if n := o.q.g.Node(o.node); n != nil {
		return n.Var
	}
	return o.name
}
