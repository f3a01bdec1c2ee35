package compiler

import (
	"fmt"

	"github.com/bamford/weave-io/internal/queryir"
)

// DefaultMaxSteps bounds the number of walk iterations per compilation.
// Each iteration either emits an edge or rewrites the graph, so a correct
// compilation of any realistic query stays far below this.
const DefaultMaxSteps = 10000

// stepBudget counts walk iterations and enforces a ceiling.
//
// The walk removes one edge or collapses one branch per iteration, so on a
// finite graph it always terminates. The budget turns a bug that breaks that
// property into an error instead of a hang.
type stepBudget struct {
	maxSteps int
	current  int
}

func newStepBudget(maxSteps int) *stepBudget {
	return &stepBudget{maxSteps: maxSteps}
}

// check increments the counter and fails once the limit is passed.
func (b *stepBudget) check() error {
	b.current++
	if b.current > b.maxSteps {
		return &StructuralError{
			Code:    ErrCodeStepBudgetExceeded,
			Message: fmt.Sprintf("compilation exceeded step budget: %d steps > %d limit", b.current, b.maxSteps),
			Node:    queryir.NoNode,
			Details: map[string]string{
				"steps":     fmt.Sprintf("%d", b.current),
				"max_steps": fmt.Sprintf("%d", b.maxSteps),
			},
		}
	}
	return nil
}
