// Package queryir provides the query graph intermediate representation for
// weave-io read queries.
//
// A query is recorded as a mutable directed graph rather than a tree. Every
// call a front-end makes (traverse to a related hierarchy, filter, aggregate
// back to an ancestor, compute a scalar) appends one node plus the edges that
// connect it to the nodes it was derived from.
//
// ARCHITECTURE:
//
//	[attribute front-end] → [queryir.Graph] → [compiler] → [querycypher] → transport
//
// The graph is an arena: nodes and edges are referenced by integer IDs that
// are assigned monotonically and never reused. Adjacency is stored as ID
// lists. All structural mutation goes through a small set of methods on
// Graph (Connect, RemoveEdge, RemoveNode, Reattach) so invariants can be
// checked in one place.
//
// EDGE SEMANTICS:
//
//	traversal   increases (or keeps) cardinality
//	filter      keeps cardinality, may reduce rows
//	aggr        collapses rows back to the cardinality of the scope anchor
//	wrt         points from an aggregation node to its scope anchor
//	operation   computes a scalar on the current row
//	dep         "must exist before"; carries no rows
//	unwind      expands a checkpoint back to one row per collected input
//	load-state  re-enters a checkpoint from its scope anchor
//
// The subgraph of all edges except wrt is the dependency graph and must stay
// acyclic. Validate reports violations of this and the other invariants.
//
// TEMPLATES:
//
// Each edge carries an opaque backend template with {{placeholder}} slots.
// The placeholders are bound to nodes through Edge.Refs and resolved to
// variable names only when the compiled steps are rendered. This package
// never parses the backend text beyond locating placeholders.
//
// OWNERSHIP:
//
// A Graph is not safe for concurrent use. Compilation consumes the graph it
// is given; callers that need the original afterwards compile a Clone.
package queryir
