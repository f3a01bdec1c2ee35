package queryir

import (
	"fmt"
	"slices"
)

// The methods in this file insert the synthetic nodes used to preserve row
// state across a collapsing branch. They are called by the compiler, never
// by front-ends.

// AddCheckpoint collects fork's rows into a list scoped to anchor:
//
//	fork --aggr--> C --wrt--> anchor
//
// Anchor must be a strict ancestor of fork.
func (g *Graph) AddCheckpoint(fork, anchor NodeID) (NodeID, error) {
	const op = "checkpoint"
	f, err := g.parentNode(op, fork)
	if err != nil {
		return NoNode, err
	}
	if !g.IsLive(anchor) || !g.Ancestors(fork)[anchor] {
		return NoNode, buildErr(op, ErrCodeNotAncestor, anchor, "checkpoint anchor is not an ancestor of node %d", fork)
	}
	id := g.addNode(&Node{
		Name:       "save-state",
		Kind:       NodeAggregation,
		Var:        fmt.Sprintf("state%d", len(g.nodes)),
		Reach:      slices.Clone(g.nodes[anchor].Reach),
		Scalars:    slices.Clone(f.Scalars),
		State:      NoNode,
		Checkpoint: true,
	})
	refs := map[string]NodeID{RefParent: fork, RefNode: id, RefAnchor: anchor}
	if _, err := g.Connect(fork, id, EdgeAggregation, "aggr(save-state)", checkpointTemplate, refs, nil); err != nil {
		return NoNode, err
	}
	if _, err := g.Connect(id, anchor, EdgeScope, "wrt", "", nil, nil); err != nil {
		return NoNode, err
	}
	return id, nil
}

// AddUnwind re-expands a checkpoint into one row per collected value of
// restores. The new node reuses restores' variable so downstream templates
// keep resolving to the same name.
//
//	checkpoint --unwind--> U
func (g *Graph) AddUnwind(checkpoint, restores NodeID) (NodeID, error) {
	const op = "unwind"
	c, err := g.parentNode(op, checkpoint)
	if err != nil {
		return NoNode, err
	}
	if !c.Checkpoint {
		return NoNode, buildErr(op, ErrCodeInvalidArgument, checkpoint, "node is not a checkpoint")
	}
	r := g.Node(restores)
	if r == nil {
		return NoNode, buildErr(op, ErrCodeUnknownNode, restores, "restored node does not exist")
	}
	id := g.addNode(&Node{
		Name:    r.Name,
		Kind:    NodeUnwind,
		Var:     r.Var,
		Reach:   slices.Clone(r.Reach),
		Scalars: slices.Clone(r.Scalars),
	})
	g.nodes[id].State = checkpoint
	refs := map[string]NodeID{RefState: checkpoint, RefNode: id}
	if _, err := g.Connect(checkpoint, id, EdgeUnwind, "unwind(save-state)", restoreTemplate, refs, nil); err != nil {
		return NoNode, err
	}
	return id, nil
}

// AddLoadState re-enters the checkpoint behind restore from anchor once the
// branch that consumed the checkpoint has collapsed back onto anchor.
//
//	anchor --load-state--> L
func (g *Graph) AddLoadState(anchor, restore NodeID) (NodeID, error) {
	const op = "load-state"
	if !g.IsLive(anchor) {
		return NoNode, buildErr(op, ErrCodeUnknownNode, anchor, "anchor does not exist")
	}
	r := g.Node(restore)
	if r == nil || !r.Kind.Restores() {
		return NoNode, buildErr(op, ErrCodeInvalidArgument, restore, "node does not restore a checkpoint")
	}
	id := g.addNode(&Node{
		Name:    r.Name,
		Kind:    NodeLoadState,
		Var:     r.Var,
		Reach:   slices.Clone(r.Reach),
		Scalars: slices.Clone(r.Scalars),
	})
	g.nodes[id].State = r.State
	refs := map[string]NodeID{RefState: r.State, RefNode: id}
	if _, err := g.Connect(anchor, id, EdgeLoadState, "load-state(save-state)", restoreTemplate, refs, nil); err != nil {
		return NoNode, err
	}
	return id, nil
}
