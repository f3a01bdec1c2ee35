// Package store provides a SQLite-backed log of compiled Cypher statements.
//
// Every statement the CLI compiles is recorded with:
//   - the fingerprint of the query graph it came from (the cache key)
//   - the fingerprint of the rendered statement (fragments, params, return)
//   - the fragments, parameters and full text
//
// # Critical Patterns
//
// Graph-level idempotency
//   - UNIQUE(graph_fingerprint): compiling the same graph twice records once
//   - Put returns the existing record and inserted=false on a repeat
//
// Logical ordering
//   - seq INTEGER is assigned inside the insert transaction, never from wall time
//   - List orders by seq ASC, id ASC COLLATE BINARY
//
// Canonical storage
//   - fragments and params are stored as RFC 8785 canonical JSON so identical
//     statements are byte-identical on disk
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
