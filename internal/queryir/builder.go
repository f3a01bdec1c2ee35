package queryir

import (
	"maps"
	"slices"
	"strings"

	"github.com/bamford/weave-io/internal/ir"
)

// EdgeOption customises the edge created by an Add* call.
type EdgeOption func(*edgeConfig)

type edgeConfig struct {
	template string
	params   map[string]ir.IRValue
	name     string
}

// WithTemplate replaces the default backend template for the new edge.
// Every placeholder in the template must be bound by the operation.
func WithTemplate(template string) EdgeOption {
	return func(c *edgeConfig) { c.template = template }
}

// WithParams attaches named parameter values to the new edge.
func WithParams(params map[string]ir.IRValue) EdgeOption {
	return func(c *edgeConfig) { c.params = params }
}

// WithName overrides the name given to the new node.
func WithName(name string) EdgeOption {
	return func(c *edgeConfig) { c.name = name }
}

func applyOptions(opts []EdgeOption) edgeConfig {
	var c edgeConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// derivation describes one Add* call before anything is mutated.
type derivation struct {
	op     string
	parent NodeID
	node   Node
	kind   EdgeKind
	label  string
	tmpl   string
	refs   map[string]NodeID
	params map[string]ir.IRValue
	deps   []NodeID
	scope  NodeID
}

// commit validates the derivation and applies it. The graph is unchanged
// if an error is returned.
func (g *Graph) commit(d derivation) (NodeID, error) {
	for i, dep := range d.deps {
		if !g.IsLive(dep) {
			return NoNode, buildErr(d.op, ErrCodeUnknownNode, dep, "dependency %d does not exist", i)
		}
	}
	allowed := maps.Clone(d.refs)
	allowed[RefNode] = NoNode
	for _, name := range Placeholders(d.tmpl) {
		if _, ok := allowed[name]; ok {
			continue
		}
		if name == RefScope && d.scope != NoNode {
			continue
		}
		return NoNode, buildErr(d.op, ErrCodeInvalidArgument, d.parent, "template placeholder {{%s}} is not bound", name)
	}

	n := d.node
	n.State = NoNode
	id := g.addNode(&n)
	refs := maps.Clone(d.refs)
	refs[RefNode] = id

	// Endpoints are live and distinct, so Connect cannot fail below.
	if _, err := g.Connect(d.parent, id, d.kind, d.label, d.tmpl, refs, d.params); err != nil {
		return NoNode, err
	}
	for _, dep := range d.deps {
		if dep == d.parent {
			continue
		}
		if _, err := g.Connect(dep, id, EdgeDependency, "dep", "", nil, nil); err != nil {
			return NoNode, err
		}
	}
	if d.scope != NoNode {
		if _, err := g.Connect(id, d.scope, EdgeScope, "wrt", "", nil, nil); err != nil {
			return NoNode, err
		}
	}
	return id, nil
}

func (g *Graph) parentNode(op string, parent NodeID) (*Node, error) {
	if !g.IsLive(parent) {
		return nil, buildErr(op, ErrCodeUnknownNode, parent, "parent does not exist")
	}
	return g.nodes[parent], nil
}

func depRefs(parent NodeID, deps []NodeID) map[string]NodeID {
	refs := map[string]NodeID{RefParent: parent}
	for i, dep := range deps {
		refs[DepRef(i)] = dep
	}
	return refs
}

// AddTraversal records a walk from parent along a chain of hierarchy labels.
// The new node is named after the last label.
func (g *Graph) AddTraversal(parent NodeID, path []string, opts ...EdgeOption) (NodeID, error) {
	const op = "traversal"
	p, err := g.parentNode(op, parent)
	if err != nil {
		return NoNode, err
	}
	if len(path) == 0 {
		return NoNode, buildErr(op, ErrCodeEmptyPath, parent, "traversal path is empty")
	}
	for i, label := range path {
		if strings.TrimSpace(label) == "" {
			return NoNode, buildErr(op, ErrCodeInvalidArgument, parent, "path element %d is blank", i)
		}
	}
	cfg := applyOptions(opts)
	name := cfg.name
	if name == "" {
		name = path[len(path)-1]
	}
	tmpl := cfg.template
	if tmpl == "" {
		tmpl = traversalTemplate(p, path)
	}
	return g.commit(derivation{
		op:     op,
		parent: parent,
		node: Node{
			Name:  name,
			Kind:  NodeTraversal,
			Reach: append(slices.Clone(p.Reach), path...),
		},
		kind:   EdgeTraversal,
		label:  "traverse(" + strings.Join(path, "->") + ")",
		tmpl:   tmpl,
		refs:   map[string]NodeID{RefParent: parent},
		params: cfg.params,
		scope:  NoNode,
	})
}

// AddFilter records a predicate applied to parent's rows. Each dependency
// must be computed before the filter; the predicate may refer to them as
// {{dep0}}, {{dep1}}, and so on.
//
// Filtering the result of an operation is unsupported and rejected.
func (g *Graph) AddFilter(parent NodeID, deps []NodeID, predicate string, opts ...EdgeOption) (NodeID, error) {
	const op = "filter"
	p, err := g.parentNode(op, parent)
	if err != nil {
		return NoNode, err
	}
	if p.Kind == NodeOperation {
		return NoNode, buildErr(op, ErrCodeUnsupported, parent, "filtering a computed scalar is not implemented")
	}
	if strings.TrimSpace(predicate) == "" {
		return NoNode, buildErr(op, ErrCodeInvalidArgument, parent, "predicate is empty")
	}
	cfg := applyOptions(opts)
	name := cfg.name
	if name == "" {
		name = p.Name
	}
	tmpl := cfg.template
	if tmpl == "" {
		tmpl = filterTemplate + predicate
	}
	return g.commit(derivation{
		op:     op,
		parent: parent,
		node: Node{
			Name:    name,
			Kind:    NodeFilter,
			Reach:   slices.Clone(p.Reach),
			Scalars: slices.Clone(p.Scalars),
		},
		kind:   EdgeFilter,
		label:  "filter(" + predicate + ")",
		tmpl:   tmpl,
		refs:   depRefs(parent, deps),
		params: cfg.params,
		deps:   slices.Clone(deps),
		scope:  NoNode,
	})
}

// AddAggregation records an aggregate of parent's rows that collapses them
// back to the cardinality of anchor. Anchor must be a strict ancestor of the
// node that fixes parent's row cardinality (see rowLevel), so a value that
// was already collapsed cannot be aggregated back to a finer anchor. The
// expression is spliced verbatim after the anchor's scope.
func (g *Graph) AddAggregation(parent, anchor NodeID, expression string, opts ...EdgeOption) (NodeID, error) {
	const op = "aggregation"
	p, err := g.parentNode(op, parent)
	if err != nil {
		return NoNode, err
	}
	if !g.IsLive(anchor) {
		return NoNode, buildErr(op, ErrCodeUnknownNode, anchor, "scope anchor does not exist")
	}
	level := g.rowLevel(parent)
	if anchor == level || !g.Ancestors(level)[anchor] {
		return NoNode, buildErr(op, ErrCodeNotAncestor, anchor, "scope anchor is not an ancestor of node %d, whose rows are at node %d", parent, level)
	}
	if strings.TrimSpace(expression) == "" {
		return NoNode, buildErr(op, ErrCodeInvalidArgument, parent, "aggregation expression is empty")
	}
	cfg := applyOptions(opts)
	name := cfg.name
	if name == "" {
		name = expression
	}
	tmpl := cfg.template
	if tmpl == "" {
		tmpl = aggregateTemplate + expression + asNode
	}
	a := g.nodes[anchor]
	return g.commit(derivation{
		op:     op,
		parent: parent,
		node: Node{
			Name:    name,
			Kind:    NodeAggregation,
			Reach:   slices.Clone(a.Reach),
			Scalars: append(slices.Clone(p.Scalars), expression),
		},
		kind:   EdgeAggregation,
		label:  "aggr(" + expression + ")",
		tmpl:   tmpl,
		refs:   map[string]NodeID{RefParent: parent, RefAnchor: anchor},
		params: cfg.params,
		scope:  anchor,
	})
}

// rowLevel returns the node whose rows id carries. Filters and operations
// keep their parent's rows; an aggregation carries its anchor's rows.
func (g *Graph) rowLevel(id NodeID) NodeID {
	for {
		switch g.nodes[id].Kind {
		case NodeAggregation:
			if anchor := g.ScopeOf(id); anchor != NoNode {
				id = anchor
				continue
			}
		case NodeFilter, NodeOperation:
			if p := g.rowParent(id); p != NoNode {
				id = p
				continue
			}
		}
		return id
	}
}

// rowParent returns the source of id's row-carrying in-edge.
func (g *Graph) rowParent(id NodeID) NodeID {
	for _, e := range g.InEdges(id) {
		if e.Kind.CarriesRows() {
			return e.From
		}
	}
	return NoNode
}

// AddOperation records a scalar computed on parent's rows. Dependencies are
// available as {{dep0}}, {{dep1}}, and so on.
func (g *Graph) AddOperation(parent NodeID, deps []NodeID, expression string, opts ...EdgeOption) (NodeID, error) {
	const op = "operation"
	p, err := g.parentNode(op, parent)
	if err != nil {
		return NoNode, err
	}
	if strings.TrimSpace(expression) == "" {
		return NoNode, buildErr(op, ErrCodeInvalidArgument, parent, "operation expression is empty")
	}
	cfg := applyOptions(opts)
	name := cfg.name
	if name == "" {
		name = expression
	}
	tmpl := cfg.template
	if tmpl == "" {
		tmpl = operationTemplate + expression + asNode
	}
	return g.commit(derivation{
		op:     op,
		parent: parent,
		node: Node{
			Name:    name,
			Kind:    NodeOperation,
			Reach:   slices.Clone(p.Reach),
			Scalars: append(slices.Clone(p.Scalars), expression),
		},
		kind:   EdgeOperation,
		label:  "operate(" + expression + ")",
		tmpl:   tmpl,
		refs:   depRefs(parent, deps),
		params: cfg.params,
		deps:   slices.Clone(deps),
		scope:  NoNode,
	})
}
