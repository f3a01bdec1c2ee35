package querycypher

import (
	"fmt"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/queryir"
)

// Compile runs the full pipeline on a copy of g: sequence, verify, render.
// g itself is left untouched so callers may keep extending it.
func Compile(c *compiler.Compiler, g *queryir.Graph, output queryir.NodeID) (*Statement, *compiler.Plan, error) {
	if c == nil {
		c = compiler.New()
	}
	plan, err := c.Compile(g.Clone(), output)
	if err != nil {
		return nil, nil, err
	}
	if err := Verify(plan); err != nil {
		return nil, nil, fmt.Errorf("verify plan: %w", err)
	}
	stmt, err := NewRenderer().Render(plan)
	if err != nil {
		return nil, nil, fmt.Errorf("render plan: %w", err)
	}
	return stmt, plan, nil
}
