package queryir

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/bamford/weave-io/internal/ir"
)

// Graph is the arena holding a query's nodes and edges.
//
// Node and edge records are never physically freed: removal marks them dead
// and unlinks them from the adjacency lists. Dead nodes keep their Var so
// steps emitted before the removal can still be rendered.
type Graph struct {
	nodes []*Node
	edges []*Edge
	out   [][]EdgeID
	in    [][]EdgeID
	start NodeID
}

// StoreStart names a start node that stands for the whole data store.
const StoreStart = "data"

// NewGraph creates a graph containing only the start node.
//
// A start named StoreStart represents the whole data store. Any other name
// is an object the caller binds before the statement runs, and traversals
// from it are joined to that object.
func NewGraph(startName string) *Graph {
	g := &Graph{start: NoNode}
	g.start = g.addNode(&Node{
		Name:  startName,
		Kind:  NodeStart,
		State: NoNode,
	})
	return g
}

// Start returns the unique start node.
func (g *Graph) Start() NodeID {
	return g.start
}

// Node returns the node record for id, live or dead, or nil if id was never
// allocated.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Edge returns the edge record for id, live or dead, or nil if id was never
// allocated.
func (g *Graph) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		return nil
	}
	return g.edges[id]
}

// IsLive reports whether id names a live node.
func (g *Graph) IsLive(id NodeID) bool {
	n := g.Node(id)
	return n != nil && n.live
}

// Nodes returns the live nodes in ID order.
func (g *Graph) Nodes() []*Node {
	var nodes []*Node
	for _, n := range g.nodes {
		if n.live {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Edges returns the live edges in ID order.
func (g *Graph) Edges() []*Edge {
	var edges []*Edge
	for _, e := range g.edges {
		if e.live {
			edges = append(edges, e)
		}
	}
	return edges
}

// NumNodes returns the number of live nodes.
func (g *Graph) NumNodes() int {
	return len(g.Nodes())
}

// NumEdges returns the number of live edges.
func (g *Graph) NumEdges() int {
	return len(g.Edges())
}

// OutEdges returns the live edges leaving id in attachment order.
func (g *Graph) OutEdges(id NodeID) []*Edge {
	if g.Node(id) == nil {
		return nil
	}
	edges := make([]*Edge, 0, len(g.out[id]))
	for _, eid := range g.out[id] {
		edges = append(edges, g.edges[eid])
	}
	return edges
}

// InEdges returns the live edges entering id in attachment order.
func (g *Graph) InEdges(id NodeID) []*Edge {
	if g.Node(id) == nil {
		return nil
	}
	edges := make([]*Edge, 0, len(g.in[id]))
	for _, eid := range g.in[id] {
		edges = append(edges, g.edges[eid])
	}
	return edges
}

// ScopeOf returns the node an aggregation node is scoped to via its wrt edge,
// or NoNode if id has no live wrt edge.
func (g *Graph) ScopeOf(id NodeID) NodeID {
	for _, e := range g.OutEdges(id) {
		if e.Kind == EdgeScope {
			return e.To
		}
	}
	return NoNode
}

// ScopedTo returns the live aggregation nodes whose wrt edge points at id,
// in ID order.
func (g *Graph) ScopedTo(id NodeID) []NodeID {
	var ids []NodeID
	for _, e := range g.InEdges(id) {
		if e.Kind == EdgeScope {
			ids = append(ids, e.From)
		}
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) addNode(n *Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	n.live = true
	if n.Var == "" {
		n.Var = varName(n.Name, n.ID)
	}
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return n.ID
}

// Connect adds an edge between two live nodes and returns its ID.
// Refs and params are copied.
func (g *Graph) Connect(from, to NodeID, kind EdgeKind, label, template string, refs map[string]NodeID, params map[string]ir.IRValue) (EdgeID, error) {
	if !g.IsLive(from) {
		return 0, fmt.Errorf("connect: source node %d is not live", from)
	}
	if !g.IsLive(to) {
		return 0, fmt.Errorf("connect: target node %d is not live", to)
	}
	if from == to {
		return 0, fmt.Errorf("connect: self-loop on node %d", from)
	}
	e := &Edge{
		ID:       EdgeID(len(g.edges)),
		From:     from,
		To:       to,
		Kind:     kind,
		Label:    label,
		Template: template,
		Refs:     maps.Clone(refs),
		Params:   maps.Clone(params),
		live:     true,
	}
	g.edges = append(g.edges, e)
	g.out[from] = append(g.out[from], e.ID)
	g.in[to] = append(g.in[to], e.ID)
	return e.ID, nil
}

// RemoveEdge unlinks a live edge.
func (g *Graph) RemoveEdge(id EdgeID) error {
	e := g.Edge(id)
	if e == nil || !e.live {
		return fmt.Errorf("remove edge: edge %d is not live", id)
	}
	e.live = false
	g.out[e.From] = deleteID(g.out[e.From], id)
	g.in[e.To] = deleteID(g.in[e.To], id)
	return nil
}

// RemoveNode marks a live node dead and unlinks every edge touching it.
// The start node cannot be removed.
func (g *Graph) RemoveNode(id NodeID) error {
	if !g.IsLive(id) {
		return fmt.Errorf("remove node: node %d is not live", id)
	}
	if id == g.start {
		return fmt.Errorf("remove node: cannot remove start node")
	}
	for _, eid := range slices.Clone(g.out[id]) {
		if err := g.RemoveEdge(eid); err != nil {
			return err
		}
	}
	for _, eid := range slices.Clone(g.in[id]) {
		if err := g.RemoveEdge(eid); err != nil {
			return err
		}
	}
	g.nodes[id].live = false
	return nil
}

// Reattach moves a live edge to new endpoints. Pass the current endpoint to
// leave a side unchanged. Refs are not rewritten: placeholders keep naming
// the nodes they named before the move.
func (g *Graph) Reattach(id EdgeID, from, to NodeID) error {
	e := g.Edge(id)
	if e == nil || !e.live {
		return fmt.Errorf("reattach: edge %d is not live", id)
	}
	if !g.IsLive(from) || !g.IsLive(to) {
		return fmt.Errorf("reattach: edge %d endpoints %d->%d are not live", id, from, to)
	}
	if from == to {
		return fmt.Errorf("reattach: edge %d would become a self-loop on node %d", id, from)
	}
	if from != e.From {
		g.out[e.From] = deleteID(g.out[e.From], id)
		g.out[from] = append(g.out[from], id)
		e.From = from
	}
	if to != e.To {
		g.in[e.To] = deleteID(g.in[e.To], id)
		g.in[to] = append(g.in[to], id)
		e.To = to
	}
	return nil
}

func deleteID(ids []EdgeID, id EdgeID) []EdgeID {
	return slices.DeleteFunc(ids, func(x EdgeID) bool { return x == id })
}

// Ancestors returns every live node with a dependency-graph path to id,
// excluding id itself.
func (g *Graph) Ancestors(id NodeID) map[NodeID]bool {
	seen := make(map[NodeID]bool)
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.InEdges(cur) {
			if !e.Kind.InDependencyGraph() || seen[e.From] {
				continue
			}
			seen[e.From] = true
			stack = append(stack, e.From)
		}
	}
	delete(seen, id)
	return seen
}

// Descendants returns every live node reachable from id along the
// dependency graph, excluding id itself.
func (g *Graph) Descendants(id NodeID) map[NodeID]bool {
	seen := make(map[NodeID]bool)
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.OutEdges(cur) {
			if !e.Kind.InDependencyGraph() || seen[e.To] {
				continue
			}
			seen[e.To] = true
			stack = append(stack, e.To)
		}
	}
	delete(seen, id)
	return seen
}

// HasPath reports whether a dependency-graph path leads from one node to
// another. A node always has a path to itself.
func (g *Graph) HasPath(from, to NodeID) bool {
	return from == to || g.Ancestors(to)[from]
}

// TopoOrder returns the given nodes in dependency order, considering only
// edges between members of the set. Ties are broken by node ID so the order
// is deterministic. Nodes that sit on a cycle are omitted.
func (g *Graph) TopoOrder(set map[NodeID]bool) []NodeID {
	indeg := make(map[NodeID]int, len(set))
	for id := range set {
		indeg[id] = 0
	}
	for id := range set {
		for _, e := range g.OutEdges(id) {
			if e.Kind.InDependencyGraph() && set[e.To] {
				indeg[e.To]++
			}
		}
	}
	var ready []NodeID
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	order := make([]NodeID, 0, len(set))
	for len(ready) > 0 {
		slices.Sort(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, e := range g.OutEdges(cur) {
			if !e.Kind.InDependencyGraph() || !set[e.To] {
				continue
			}
			indeg[e.To]--
			if indeg[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}
	return order
}

// Restrict removes every live node that has no dependency-graph path to
// output. It returns the removed node IDs in ascending order.
func (g *Graph) Restrict(output NodeID) ([]NodeID, error) {
	if !g.IsLive(output) {
		return nil, fmt.Errorf("restrict: output node %d is not live", output)
	}
	keep := g.Ancestors(output)
	keep[output] = true
	var removed []NodeID
	for _, n := range g.Nodes() {
		if keep[n.ID] || n.ID == g.start {
			continue
		}
		if err := g.RemoveNode(n.ID); err != nil {
			return removed, err
		}
		removed = append(removed, n.ID)
	}
	return removed, nil
}

// Clone returns a deep copy of the graph, dead records included, so IDs in
// the copy refer to the same nodes and edges.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make([]*Node, len(g.nodes)),
		edges: make([]*Edge, len(g.edges)),
		out:   make([][]EdgeID, len(g.out)),
		in:    make([][]EdgeID, len(g.in)),
		start: g.start,
	}
	for i, n := range g.nodes {
		cp := *n
		cp.Reach = slices.Clone(n.Reach)
		cp.Scalars = slices.Clone(n.Scalars)
		c.nodes[i] = &cp
	}
	for i, e := range g.edges {
		cp := *e
		cp.Refs = maps.Clone(e.Refs)
		cp.Params = maps.Clone(e.Params)
		c.edges[i] = &cp
	}
	for i := range g.out {
		c.out[i] = slices.Clone(g.out[i])
		c.in[i] = slices.Clone(g.in[i])
	}
	return c
}

// Dump renders the live graph in a stable, line-oriented text form for
// debugging and golden files.
func (g *Graph) Dump() string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		fmt.Fprintf(&b, "n%d %s %q var=%s", n.ID, n.Kind, n.Name, n.Var)
		if len(n.Reach) > 0 {
			fmt.Fprintf(&b, " reach=%s", strings.Join(n.Reach, "->"))
		}
		if n.State != NoNode {
			fmt.Fprintf(&b, " state=n%d", n.State)
		}
		if n.Checkpoint {
			b.WriteString(" checkpoint")
		}
		b.WriteByte('\n')
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "e%d n%d->n%d %s", e.ID, e.From, e.To, e.Kind)
		if e.Label != "" {
			fmt.Fprintf(&b, " %q", e.Label)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// varName derives a backend-safe variable name from a node name. Template
// placeholders in the name are dropped.
func varName(name string, id NodeID) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(placeholderRe.ReplaceAllString(name, "")) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	base := b.String()
	if len(base) > 24 {
		base = base[:24]
	}
	base = strings.TrimRight(base, "_")
	if base == "" || unicode.IsDigit(rune(base[0])) {
		base = "n" + base
	}
	return fmt.Sprintf("%s%d", base, id)
}
