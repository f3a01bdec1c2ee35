// Package compiler turns a query graph into an ordered sequence of steps,
// one per consumed edge, that a backend renderer can execute in order.
//
// The compiler walks the graph from the start node toward the requested
// output. At every node it first resolves the aggregation branches anchored
// there: each branch is compiled recursively as an isolated sub-walk, then
// collapsed back onto its anchor. When a branch would collapse rows that
// some other consumer still needs, the fork is checkpointed (its rows are
// collected into a list scoped to the anchor) and later restored by an
// unwind or load-state step.
//
// CRITICAL: Compile consumes the graph. Every emitted edge is removed from
// the live graph and exhausted nodes are pruned, which is what prevents
// double emission and unbounded recursion. Compile a queryir.Graph.Clone
// when the original is still needed.
//
// Compilation is deterministic: the same graph built by the same sequence
// of calls always yields the same steps.
package compiler
