// Package harness runs query scenarios: graphs described in YAML, compiled
// and rendered, then checked against assertions and golden statement text.
//
// # Scenario Format
//
//	name: checkpoint
//	description: "A traversal consumed by an aggregation and a later filter"
//	start: data
//	ops:
//	  - id: ob
//	    op: traverse
//	    path: [OB]
//	  - id: runs
//	    op: traverse
//	    parent: ob
//	    path: [Run]
//	  - id: n
//	    op: aggregate
//	    parent: runs
//	    wrt: ob
//	    expression: "count({{parent}})"
//	  - id: result
//	    op: filter
//	    parent: ob
//	    deps: [n]
//	    expression: "{{dep0}} > $min"
//	    params: {min: 3}
//	output: result
//	assertions:
//	  - type: fragment_count
//	    count: 4
//	  - type: no_checkpoint
//
// Ops are applied in order. parent defaults to the start node, which is
// also addressable as "start".
//
// # Assertion Types
//
//   - fragment_count: the statement has exactly count fragments
//   - kinds_order: step kinds match kinds exactly
//   - before: the step producing each op in ops precedes the next one's
//   - has_checkpoint / no_checkpoint: whether state had to be preserved
//   - error: compilation fails with code (a structural or build error code)
//
// # Golden Files
//
// The rendered statement text of a scenario is its golden snapshot. Tests
// compare with goldie under testdata/golden; the CLI reads and writes the
// same files next to the scenario.
package harness
