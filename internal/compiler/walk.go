package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bamford/weave-io/internal/queryir"
)

// walker holds the mutable state of one compilation.
type walker struct {
	g           *queryir.Graph
	logger      *slog.Logger
	budget      *stepBudget
	steps       []Step
	established map[queryir.NodeID]bool
	checkpoints int
}

// walk emits edges from x until output is reached or x has no successor.
//
// scope restricts the walk to a branch; nil means the whole graph. depth is
// the branch nesting level and is zero on the trunk. Branches anchored at
// the root of a nested walk have already been ordered by the caller, so
// resolution is skipped there.
func (w *walker) walk(x queryir.NodeID, scope map[queryir.NodeID]bool, output queryir.NodeID, depth int) error {
	root := x
	for {
		if err := w.budget.check(); err != nil {
			return err
		}
		if x == output {
			return nil
		}
		if depth == 0 || x != root {
			if err := w.resolveBranches(x, scope, depth); err != nil {
				return err
			}
		}

		next, err := w.successor(x, scope, depth)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if err := w.emit(next, depth); err != nil {
			return err
		}
		prev := x
		x = next.To
		if err := w.prune(prev); err != nil {
			return err
		}
	}
}

// rowEdges returns x's live row-carrying out-edges inside scope.
func (w *walker) rowEdges(x queryir.NodeID, scope map[queryir.NodeID]bool) []*queryir.Edge {
	var edges []*queryir.Edge
	for _, e := range w.g.OutEdges(x) {
		if !e.Kind.CarriesRows() {
			continue
		}
		if scope != nil && !scope[e.To] {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}

// successor picks the single edge the walk continues along.
//
// Scalar side chains (operation edges whose results are only consumed as
// dependencies) do not advance the row pipeline. They are emitted first and
// the walk stays at x. More than one remaining candidate is an error.
func (w *walker) successor(x queryir.NodeID, scope map[queryir.NodeID]bool, depth int) (*queryir.Edge, error) {
	candidates := w.rowEdges(x, scope)
	if len(candidates) <= 1 {
		if len(candidates) == 0 {
			return nil, nil
		}
		return candidates[0], nil
	}

	var main []*queryir.Edge
	for _, e := range candidates {
		if !w.isSideChain(e, scope) {
			main = append(main, e)
			continue
		}
		if err := w.emitSideChain(e, scope, depth); err != nil {
			return nil, err
		}
	}
	switch len(main) {
	case 0:
		return nil, nil
	case 1:
		return main[0], nil
	}

	labels := make([]string, len(main))
	for i, e := range main {
		labels[i] = e.Label
	}
	return nil, &StructuralError{
		Code:    ErrCodeMultipleSuccessors,
		Message: fmt.Sprintf("node has %d unaggregated successors: %s", len(main), strings.Join(labels, ", ")),
		Node:    x,
		Details: map[string]string{"successors": strings.Join(labels, ", ")},
	}
}

// isSideChain reports whether e starts a chain of operation edges that ends
// without any row successor and reads only established values.
func (w *walker) isSideChain(e *queryir.Edge, scope map[queryir.NodeID]bool) bool {
	for {
		if e.Kind != queryir.EdgeOperation || !w.refsEstablished(e, e.From) {
			return false
		}
		next := w.rowEdges(e.To, scope)
		switch len(next) {
		case 0:
			return true
		case 1:
			e = next[0]
		default:
			return false
		}
	}
}

// refsEstablished reports whether every node e reads has been computed.
// chain is treated as established since it precedes e in the same chain.
func (w *walker) refsEstablished(e *queryir.Edge, chain queryir.NodeID) bool {
	for name, id := range e.Refs {
		if name == queryir.RefNode || id == chain {
			continue
		}
		if !w.established[id] {
			return false
		}
	}
	return true
}

func (w *walker) emitSideChain(e *queryir.Edge, scope map[queryir.NodeID]bool, depth int) error {
	for e != nil {
		if err := w.emit(e, depth); err != nil {
			return err
		}
		next := w.rowEdges(e.To, scope)
		to := e.To
		e = nil
		if len(next) == 1 {
			e = next[0]
		}
		if err := w.prune(to); err != nil {
			return err
		}
	}
	return nil
}

// emit records e as the next step and removes it from the live graph.
// Dependency edges into e's target are consumed with it.
func (w *walker) emit(e *queryir.Edge, depth int) error {
	for name, id := range e.Refs {
		if name == queryir.RefNode {
			continue
		}
		if !w.established[id] {
			return &StructuralError{
				Code:    ErrCodeDependencyNotEstablished,
				Message: fmt.Sprintf("edge e%d reads {{%s}} = n%d before it is computed", e.ID, name, id),
				Node:    e.To,
				Details: map[string]string{"placeholder": name},
			}
		}
	}
	for _, dep := range w.g.InEdges(e.To) {
		if dep.Kind == queryir.EdgeDependency && !w.established[dep.From] {
			return structural(ErrCodeDependencyNotEstablished, e.To, "dependency n%d is not computed before n%d", dep.From, e.To)
		}
	}

	vars := make(map[string]string, len(e.Refs))
	for name, id := range e.Refs {
		vars[name] = w.g.Node(id).Var
	}
	step := Step{
		Index:      len(w.steps),
		Edge:       e.ID,
		Kind:       e.Kind,
		Label:      e.Label,
		Template:   e.Template,
		Checkpoint: w.g.Node(e.To).Checkpoint,
		Vars:       vars,
		Params:     e.Params,
		Branch:     depth,
	}
	w.steps = append(w.steps, step)
	w.established[e.To] = true
	StepsEmittedTotal.WithLabelValues(e.Kind.String()).Inc()
	w.logger.Debug("emit step",
		"index", step.Index,
		"kind", e.Kind.String(),
		"label", e.Label,
		"branch", depth)

	if err := w.g.RemoveEdge(e.ID); err != nil {
		return err
	}
	for _, dep := range w.g.InEdges(e.To) {
		if dep.Kind != queryir.EdgeDependency {
			continue
		}
		if err := w.g.RemoveEdge(dep.ID); err != nil {
			return err
		}
	}
	return nil
}

// prune removes n once nothing more can be read from it: no live out-edges
// and no aggregation still scoped to it.
func (w *walker) prune(n queryir.NodeID) error {
	if n == w.g.Start() || !w.g.IsLive(n) {
		return nil
	}
	if len(w.g.OutEdges(n)) > 0 || len(w.g.ScopedTo(n)) > 0 {
		return nil
	}
	return w.g.RemoveNode(n)
}
