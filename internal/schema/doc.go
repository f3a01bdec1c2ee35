// Package schema describes the WEAVE object hierarchy that queries walk.
//
// A schema is a set of hierarchies (OB, Run, Exposure, ...) authored in CUE.
// Each hierarchy names its identifying attribute, its factors (plain
// attributes), and its parents. A parent link carries the cardinality of the
// relation from the child's side: how many parents of that kind one child
// has.
//
//	hierarchies: {
//		OB:  {idname: "obid", factors: ["mjd"]}
//		Run: {idname: "runid", parents: ["OB", {name: "ArmConfig", max: 2}]}
//	}
//
// Path resolution (PathBetween) is the collaborator the query front-end uses
// to turn "runs of this OB" into a traversal path:
//
//   - child→parent paths are tried first; they are singular when every hop
//     has max 1
//   - parent→child paths are tried next; they are plural unless every hop is
//     one2one
//   - only shortest paths count; two shortest paths is an ambiguity
//
// Names are matched case-insensitively using Unicode case folding.
package schema
