package querycypher

import (
	"fmt"
	"slices"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/queryir"
)

// scopeTracker replays steps and records which variables each fragment may
// read.
//
// Variables belong to a level: the variable of the row-defining node
// (traversal or restore) whose cardinality they share. snapshot[level] is
// the projection that survives an aggregation back to that level.
type scopeTracker struct {
	current  []string
	level    map[string]string
	snapshot map[string][]string
	captured map[string][]string
	start    string
}

func newScopeTracker(plan *compiler.Plan) *scopeTracker {
	t := &scopeTracker{
		level:    map[string]string{plan.StartVar: plan.StartVar},
		snapshot: map[string][]string{plan.StartVar: nil},
		captured: make(map[string][]string),
		start:    plan.StartVar,
	}
	if startIsRead(plan) {
		t.current = []string{plan.StartVar}
		t.snapshot[plan.StartVar] = []string{plan.StartVar}
	}
	return t
}

// startIsRead reports whether any step reads the start variable. Only then
// is it treated as bound by the caller.
func startIsRead(plan *compiler.Plan) bool {
	for _, s := range plan.Steps {
		if slices.Contains(s.Uses(), plan.StartVar) {
			return true
		}
	}
	return false
}

func (t *scopeTracker) inScope(v string) bool {
	return slices.Contains(t.current, v)
}

// levelOf returns the level of v, defaulting to the start level.
func (t *scopeTracker) levelOf(v string) string {
	if l, ok := t.level[v]; ok {
		return l
	}
	return t.start
}

// anchorScope returns the projection kept by an aggregation anchored at v.
func (t *scopeTracker) anchorScope(anchor string) []string {
	return slices.Clone(t.snapshot[t.levelOf(anchor)])
}

// check reports the first variable s reads that is not in scope.
func (t *scopeTracker) check(s compiler.Step) error {
	for _, v := range s.Uses() {
		if !t.inScope(v) {
			return &ScopeError{Step: s.Index, Label: s.Label, Var: v}
		}
	}
	if isAggregation(s) {
		for _, v := range t.anchorScope(s.Vars[queryir.RefAnchor]) {
			if !t.inScope(v) {
				return &ScopeError{Step: s.Index, Label: s.Label, Var: v}
			}
		}
	}
	return nil
}

// apply advances the tracker past s.
func (t *scopeTracker) apply(s compiler.Step) error {
	node := s.NodeVar()
	switch s.Kind {
	case queryir.EdgeTraversal:
		t.add(node)
		t.level[node] = node
		t.snapshot[node] = slices.Clone(t.current)

	case queryir.EdgeFilter, queryir.EdgeOperation:
		l := t.levelOf(s.Vars[queryir.RefParent])
		t.add(node)
		t.level[node] = l
		t.snapshot[l] = appendUnique(t.snapshot[l], node)

	case queryir.EdgeAggregation:
		l := t.levelOf(s.Vars[queryir.RefAnchor])
		base := t.snapshot[l]
		if s.Checkpoint {
			var row []string
			for _, v := range t.current {
				if !slices.Contains(base, v) {
					row = append(row, v)
				}
			}
			t.captured[node] = row
		}
		t.current = append(slices.Clone(base), node)
		t.level[node] = l
		t.snapshot[l] = slices.Clone(t.current)

	case queryir.EdgeUnwind, queryir.EdgeLoadState:
		row, ok := t.captured[s.Vars[queryir.RefState]]
		if !ok {
			return fmt.Errorf("step %d (%s): state %s was never checkpointed", s.Index, s.Label, s.Vars[queryir.RefState])
		}
		for _, v := range row {
			t.add(v)
		}
		for _, v := range row {
			if t.levelOf(v) == v {
				t.snapshot[v] = slices.Clone(t.current)
			}
		}

	default:
		return fmt.Errorf("step %d (%s): cannot render %s edge", s.Index, s.Label, s.Kind)
	}
	return nil
}

func (t *scopeTracker) add(v string) {
	t.current = appendUnique(t.current, v)
}

func appendUnique(vars []string, v string) []string {
	if slices.Contains(vars, v) {
		return vars
	}
	return append(vars, v)
}

func isAggregation(s compiler.Step) bool {
	return s.Kind == queryir.EdgeAggregation
}

// ScopeError reports a fragment that reads a variable no earlier fragment
// introduced.
type ScopeError struct {
	Step  int
	Label string
	Var   string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("step %d (%s) reads %s before it is in scope", e.Step, e.Label, e.Var)
}

// Verify replays plan and checks that every fragment reads only variables
// introduced by strictly earlier fragments, or the start variable.
func Verify(plan *compiler.Plan) error {
	t := newScopeTracker(plan)
	for _, s := range plan.Steps {
		if err := t.check(s); err != nil {
			return err
		}
		if err := t.apply(s); err != nil {
			return err
		}
	}
	if plan.OutputVar != plan.StartVar && !t.inScope(plan.OutputVar) {
		return &ScopeError{Step: len(plan.Steps), Label: "return", Var: plan.OutputVar}
	}
	return nil
}
