package compiler

import (
	"github.com/bamford/weave-io/internal/queryir"
)

// branch is the part of the graph an aggregation collapses: everything
// between its scope anchor and the aggregation node itself.
type branch struct {
	agg    queryir.NodeID
	anchor queryir.NodeID

	// interior holds the branch's nodes strictly between anchor and agg,
	// in dependency order.
	interior []queryir.NodeID
}

// nodes returns the set of nodes a walk of this branch may visit.
func (b branch) nodes() map[queryir.NodeID]bool {
	set := make(map[queryir.NodeID]bool, len(b.interior)+2)
	set[b.anchor] = true
	set[b.agg] = true
	for _, id := range b.interior {
		set[id] = true
	}
	return set
}

func (b branch) contains(id queryir.NodeID) bool {
	for _, n := range b.interior {
		if n == id {
			return true
		}
	}
	return false
}

// branchesAt finds the branches anchored at x that lie inside scope.
//
// A branch for aggregation A is ancestors(A) − ancestors(x), restricted to
// descendants of x so values computed elsewhere are not mistaken for part of
// the branch.
func (w *walker) branchesAt(x queryir.NodeID, scope map[queryir.NodeID]bool) []branch {
	var branches []branch
	below := w.g.Descendants(x)
	above := w.g.Ancestors(x)
	for _, agg := range w.g.ScopedTo(x) {
		if scope != nil && !scope[agg] {
			continue
		}
		set := make(map[queryir.NodeID]bool)
		for id := range w.g.Ancestors(agg) {
			if id != x && below[id] && !above[id] {
				set[id] = true
			}
		}
		branches = append(branches, branch{
			agg:      agg,
			anchor:   x,
			interior: w.g.TopoOrder(set),
		})
	}
	return branches
}

// pickBranch returns the branch to compile next.
//
// A branch is ready when it does not contain another pending aggregation;
// such a nested aggregation must be collapsed first. Among ready branches the
// smallest wins, then the lowest aggregation ID.
func pickBranch(branches []branch) branch {
	var best *branch
	for i := range branches {
		b := &branches[i]
		ready := true
		for j := range branches {
			if i != j && b.contains(branches[j].agg) {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if best == nil ||
			len(b.interior) < len(best.interior) ||
			(len(b.interior) == len(best.interior) && b.agg < best.agg) {
			best = b
		}
	}
	if best == nil {
		// Containment between branches follows the dependency DAG, so some
		// branch is always ready on a valid graph.
		return branches[0]
	}
	return *best
}

// expands reports whether the branch contains anything that raises
// cardinality. Aggregating without one has nothing to collapse.
func (w *walker) expands(b branch) bool {
	for _, id := range b.interior {
		if w.g.Node(id).Kind.Expands() {
			return true
		}
	}
	return false
}

// fork returns the earliest interior node whose value is also needed outside
// the branch, or NoNode. Restore nodes are skipped: their rows can be loaded
// again from the checkpoint without another one.
func (w *walker) fork(b branch) queryir.NodeID {
	inside := b.nodes()
	for _, id := range b.interior {
		if w.g.Node(id).Kind.Restores() {
			continue
		}
		for _, e := range w.g.OutEdges(id) {
			if e.Kind != queryir.EdgeScope && !inside[e.To] {
				return id
			}
		}
	}
	return queryir.NoNode
}

// resolveBranches compiles every branch anchored at x, in order, until none
// remain.
func (w *walker) resolveBranches(x queryir.NodeID, scope map[queryir.NodeID]bool, depth int) error {
	for {
		if err := w.budget.check(); err != nil {
			return err
		}
		branches := w.branchesAt(x, scope)
		if len(branches) == 0 {
			return nil
		}
		b := pickBranch(branches)
		if !w.expands(b) {
			return structural(ErrCodeBranchWithoutTraversal, b.agg,
				"aggregation n%d over n%d has no traversal to collapse", b.agg, x)
		}
		if f := w.fork(b); f != queryir.NoNode {
			if err := w.preserve(f, x); err != nil {
				return err
			}
			continue
		}

		BranchesTotal.Inc()
		w.logger.Debug("compile branch",
			"anchor", x,
			"aggregation", b.agg,
			"size", len(b.interior),
			"depth", depth+1)
		if err := w.walk(x, b.nodes(), b.agg, depth+1); err != nil {
			return err
		}
		if !w.established[b.agg] {
			return structural(ErrCodeUnconsumedEdges, b.agg,
				"branch walk from n%d stopped before reaching aggregation n%d", x, b.agg)
		}
		if err := w.collapse(b); err != nil {
			return err
		}
	}
}
