// Package querycypher renders compiled plans as Cypher statement text.
//
// Each compiler.Step becomes one fragment. The renderer fills each step's
// template placeholders with variable names and tracks which variables are
// in scope as the fragments accumulate, so aggregations can project exactly
// the variables their anchor carries and checkpoints can capture whole rows.
//
// CRITICAL: Values are never interpolated into fragment text. They travel as
// named parameters alongside the fragments and are bound by the transport.
package querycypher
