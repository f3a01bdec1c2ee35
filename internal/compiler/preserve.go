package compiler

import (
	"github.com/bamford/weave-io/internal/queryir"
)

// preserve checkpoints fork so a branch anchored at x can collapse without
// losing rows that other consumers of fork still need.
//
// Before:
//
//	x ─► … ─► fork ─► (branch) ─► A ┄wrt┄► x
//	              └─► (other consumers)
//
// After:
//
//	x ─► … ─► fork ─aggr─► C ┄wrt┄► x
//	                       └─unwind─► U ─► (branch) ─► A
//	                                  └─► (other consumers)
//
// U binds the same variable as fork, so templates that named fork keep
// resolving. wrt edges that pointed at fork move to U.
func (w *walker) preserve(fork, x queryir.NodeID) error {
	c, err := w.g.AddCheckpoint(fork, x)
	if err != nil {
		return err
	}
	u, err := w.g.AddUnwind(c, fork)
	if err != nil {
		return err
	}
	for _, e := range w.g.OutEdges(fork) {
		if e.To == c {
			continue
		}
		if err := w.g.Reattach(e.ID, u, e.To); err != nil {
			return err
		}
	}
	for _, e := range w.g.InEdges(fork) {
		if e.Kind != queryir.EdgeScope {
			continue
		}
		if err := w.g.Reattach(e.ID, e.From, u); err != nil {
			return err
		}
	}

	w.checkpoints++
	CheckpointsTotal.Inc()
	w.logger.Debug("checkpoint inserted",
		"fork", fork,
		"anchor", x,
		"checkpoint", c,
		"unwind", u)
	return nil
}

// collapse removes a compiled branch from the live graph.
//
// The aggregation node is folded into its anchor: its remaining row edges
// now leave the anchor, since its value lives on the anchor's rows. Interior
// nodes with nothing left to give are removed. Restore nodes still feeding
// later consumers are replaced by a load-state node hanging off the anchor,
// so those consumers re-enter the checkpoint after the collapse.
func (w *walker) collapse(b branch) error {
	x := b.anchor
	for _, e := range w.g.OutEdges(b.agg) {
		switch e.Kind {
		case queryir.EdgeScope, queryir.EdgeDependency:
			if err := w.g.RemoveEdge(e.ID); err != nil {
				return err
			}
		default:
			if err := w.g.Reattach(e.ID, x, e.To); err != nil {
				return err
			}
		}
	}
	if err := w.g.RemoveNode(b.agg); err != nil {
		return err
	}

	for i := len(b.interior) - 1; i >= 0; i-- {
		id := b.interior[i]
		if !w.g.IsLive(id) {
			continue
		}
		if len(w.g.OutEdges(id)) == 0 {
			if err := w.prune(id); err != nil {
				return err
			}
			continue
		}
		if w.g.Node(id).Kind.Restores() {
			if err := w.reload(id, x); err != nil {
				return err
			}
		}
	}
	return nil
}

// reload replaces restore node r with a load-state node reached from x.
func (w *walker) reload(r, x queryir.NodeID) error {
	l, err := w.g.AddLoadState(x, r)
	if err != nil {
		return err
	}
	for _, e := range w.g.OutEdges(r) {
		if err := w.g.Reattach(e.ID, l, e.To); err != nil {
			return err
		}
	}
	for _, e := range w.g.InEdges(r) {
		if e.Kind != queryir.EdgeScope {
			continue
		}
		if err := w.g.Reattach(e.ID, e.From, l); err != nil {
			return err
		}
	}
	w.logger.Debug("load-state inserted", "restores", r, "anchor", x, "load", l)
	return w.g.RemoveNode(r)
}
