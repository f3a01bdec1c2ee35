package queryir

import (
	"fmt"
	"strings"
)

// IssueCode classifies a graph invariant violation.
type IssueCode string

const (
	IssueCycle             IssueCode = "CYCLE"
	IssueStart             IssueCode = "START"
	IssueOrphan            IssueCode = "ORPHAN"
	IssueScopeCount        IssueCode = "SCOPE_COUNT"
	IssueScopeNotAncestor  IssueCode = "SCOPE_NOT_ANCESTOR"
	IssueFilteredOperation IssueCode = "FILTERED_OPERATION"
	IssueDanglingRef       IssueCode = "DANGLING_REF"
)

// Issue describes one invariant violation found by Validate.
type Issue struct {
	Code    IssueCode `json:"code"`
	Node    NodeID    `json:"node"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Validate checks the structural invariants of the live graph:
//
//   - exactly one start node, with no incoming dependency-graph edges
//     (wrt edges from aggregations scoped to it are allowed)
//   - every other node has at least one incoming dependency-graph edge
//   - the dependency graph is acyclic
//   - aggregation nodes have exactly one wrt edge, other nodes none
//   - a wrt target is a strict ancestor of its aggregation node
//   - no filter edge leaves an operation node
//   - every edge ref names a node that was allocated
//
// Issues are returned in a deterministic order. A nil result means the
// graph is valid.
func (g *Graph) Validate() []Issue {
	var issues []Issue
	add := func(code IssueCode, node NodeID, format string, args ...any) {
		issues = append(issues, Issue{Code: code, Node: node, Message: fmt.Sprintf(format, args...)})
	}

	starts := 0
	for _, n := range g.Nodes() {
		hasInput := false
		for _, e := range g.InEdges(n.ID) {
			if e.Kind.InDependencyGraph() {
				hasInput = true
				break
			}
		}
		if n.Kind == NodeStart {
			starts++
			if hasInput {
				add(IssueStart, n.ID, "start node n%d has incoming dependency edges", n.ID)
			}
			continue
		}
		if !hasInput {
			add(IssueOrphan, n.ID, "node n%d has no incoming dependency edge", n.ID)
		}
	}
	if starts != 1 {
		add(IssueStart, NoNode, "graph has %d start nodes, want 1", starts)
	}

	for _, cycle := range g.Cycles() {
		parts := make([]string, len(cycle))
		for i, id := range cycle {
			parts[i] = fmt.Sprintf("n%d", id)
		}
		add(IssueCycle, cycle[0], "dependency cycle: %s", strings.Join(parts, " → "))
	}

	for _, n := range g.Nodes() {
		var scopes []*Edge
		for _, e := range g.OutEdges(n.ID) {
			if e.Kind == EdgeScope {
				scopes = append(scopes, e)
			}
			if e.Kind == EdgeFilter && n.Kind == NodeOperation {
				add(IssueFilteredOperation, n.ID, "filter edge e%d leaves operation node n%d", e.ID, n.ID)
			}
		}
		switch {
		case n.Kind == NodeAggregation && len(scopes) != 1:
			add(IssueScopeCount, n.ID, "aggregation node n%d has %d wrt edges, want 1", n.ID, len(scopes))
		case n.Kind != NodeAggregation && len(scopes) != 0:
			add(IssueScopeCount, n.ID, "%s node n%d has %d wrt edges, want 0", n.Kind, n.ID, len(scopes))
		}
		for _, e := range scopes {
			if !g.Ancestors(n.ID)[e.To] {
				add(IssueScopeNotAncestor, n.ID, "wrt target n%d is not an ancestor of n%d", e.To, n.ID)
			}
		}
	}

	for _, e := range g.Edges() {
		for _, name := range Placeholders(e.Template) {
			if IsRendererRef(name) {
				continue
			}
			id, ok := e.Refs[name]
			if !ok || g.Node(id) == nil {
				add(IssueDanglingRef, e.To, "edge e%d placeholder {{%s}} is unbound", e.ID, name)
			}
		}
	}
	return issues
}
