// Package readquery is the attribute-style front-end to the query graph.
//
// A Query starts from the whole data store. Objects, traversals, attribute
// reads, comparisons and aggregations each add to one shared queryir.Graph;
// nothing touches the database. Compile sequences and renders the graph for
// a single output.
//
//	q := readquery.New(s)
//	obs := q.Objects("obs")
//	runs := obs.Traverse("runs")
//	red := runs.Filter(runs.Attribute("camera").Compare("=", "red"))
//	n := red.Count(obs)
//	stmt, err := obs.Filter(n.Compare(">", 3)).Compile()
//
// Errors are sticky: once a call fails, every query derived from it carries
// the same error and Compile returns it.
package readquery
