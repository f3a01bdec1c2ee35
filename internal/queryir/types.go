package queryir

import (
	"fmt"

	"github.com/bamford/weave-io/internal/ir"
)

// NodeID identifies a node within one Graph. IDs are never reused.
type NodeID int

// EdgeID identifies an edge within one Graph. IDs are never reused.
type EdgeID int

// NoNode is the zero value for optional node references.
const NoNode NodeID = -1

// NodeKind classifies what a node represents.
type NodeKind int

const (
	NodeStart NodeKind = iota
	NodeTraversal
	NodeFilter
	NodeAggregation
	NodeOperation
	NodeUnwind
	NodeLoadState
)

var nodeKindNames = [...]string{
	NodeStart:       "start",
	NodeTraversal:   "traversal",
	NodeFilter:      "filter",
	NodeAggregation: "aggregation",
	NodeOperation:   "operation",
	NodeUnwind:      "unwind",
	NodeLoadState:   "load-state",
}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(nodeKindNames) {
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
	return nodeKindNames[k]
}

// Restores reports whether nodes of this kind re-expand a checkpoint.
func (k NodeKind) Restores() bool {
	return k == NodeUnwind || k == NodeLoadState
}

// Expands reports whether reaching a node of this kind can multiply rows.
func (k NodeKind) Expands() bool {
	return k == NodeTraversal || k.Restores()
}

// EdgeKind classifies the operational semantics of an edge.
type EdgeKind int

const (
	EdgeTraversal EdgeKind = iota
	EdgeFilter
	EdgeAggregation
	EdgeScope
	EdgeOperation
	EdgeDependency
	EdgeUnwind
	EdgeLoadState
)

var edgeKindNames = [...]string{
	EdgeTraversal:   "traversal",
	EdgeFilter:      "filter",
	EdgeAggregation: "aggr",
	EdgeScope:       "wrt",
	EdgeOperation:   "operation",
	EdgeDependency:  "dep",
	EdgeUnwind:      "unwind",
	EdgeLoadState:   "load-state",
}

func (k EdgeKind) String() string {
	if k < 0 || int(k) >= len(edgeKindNames) {
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
	return edgeKindNames[k]
}

// MarshalText implements encoding.TextMarshaler so kinds appear by name in JSON.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseEdgeKind is the inverse of EdgeKind.String.
func ParseEdgeKind(s string) (EdgeKind, error) {
	for i, name := range edgeKindNames {
		if name == s {
			return EdgeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown edge kind %q", s)
}

// InDependencyGraph reports whether edges of this kind take part in the
// dependency DAG. Only scope edges are excluded.
func (k EdgeKind) InDependencyGraph() bool {
	return k != EdgeScope
}

// CarriesRows reports whether following an edge of this kind moves the
// row pipeline forward. Scope and dependency edges only express ordering.
func (k EdgeKind) CarriesRows() bool {
	return k != EdgeScope && k != EdgeDependency
}

// Expands reports whether an edge of this kind can raise cardinality.
func (k EdgeKind) Expands() bool {
	return k == EdgeTraversal || k == EdgeUnwind || k == EdgeLoadState
}

// Node is one point in the computation.
type Node struct {
	ID   NodeID
	Name string
	Kind NodeKind

	// Var is the backend variable bound to this node's value. It survives
	// consumption of the node so already-emitted steps stay renderable.
	Var string

	// Reach is the chain of hierarchy traversals that led to this node.
	Reach []string

	// Scalars accumulates the scalar expressions chained onto this node.
	Scalars []string

	// State is the checkpoint node an unwind or load-state node restores.
	State NodeID

	// Checkpoint marks aggregation nodes inserted to preserve row state.
	Checkpoint bool

	live bool
}

// Live reports whether the node is still part of the live graph.
func (n *Node) Live() bool { return n.live }

// Edge is a directed relation between two nodes.
type Edge struct {
	ID       EdgeID
	From     NodeID
	To       NodeID
	Kind     EdgeKind
	Label    string
	Template string

	// Refs binds template placeholders to nodes.
	Refs map[string]NodeID

	// Params holds values bound by name in the template ($name).
	Params map[string]ir.IRValue

	live bool
}

// Live reports whether the edge is still part of the live graph.
func (e *Edge) Live() bool { return e.live }
