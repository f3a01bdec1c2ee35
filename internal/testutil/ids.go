package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out UUID-shaped identifiers from a counter.
//
// Stores and CLI commands take an ID function so tests can replace
// uuid.NewString with this and compare output byte for byte.
//
// Thread-safety: Next and Reset are safe for concurrent use.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first ID ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Next returns the next identifier:
//
//	00000000-0000-0000-0000-000000000001
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.seq)
}

// Issued returns how many identifiers have been handed out.
func (g *SequentialIDs) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence so a scenario can be replayed with the same IDs.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
