package harness

import (
	"fmt"
	"strings"

	"github.com/bamford/weave-io/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string

	// Steps lists the compiled step labels, if compilation succeeded.
	Steps []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for i, s := range e.Steps {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, s)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
//
// An error assertion consumes the compile error. Any other error that is
// not expected is itself a failure, and the remaining assertions are skipped
// since there is nothing to inspect.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	expectsError := false
	for _, a := range assertions {
		if a.Type == AssertError {
			expectsError = true
			if err := assertError(result, a); err != nil {
				msgs = append(msgs, err.Error())
			}
		}
	}
	if result.Err != nil {
		if !expectsError {
			msgs = append(msgs, fmt.Sprintf("unexpected error: %v", result.Err))
		}
		return msgs
	}

	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertFragmentCount:
			err = assertFragmentCount(result, a)
		case AssertKindsOrder:
			err = assertKindsOrder(result, a)
		case AssertBefore:
			err = assertBefore(result, a)
		case AssertHasCheckpoint:
			err = assertCheckpoint(result, true)
		case AssertNoCheckpoint:
			err = assertCheckpoint(result, false)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func assertError(result *Result, a Assertion) error {
	if result.Err == nil {
		return &AssertionError{
			Type:     AssertError,
			Expected: a.Code,
			Actual:   "compiled without error",
			Steps:    stepLabels(result),
		}
	}
	code := ErrorCode(result.Err)
	if code == a.Code || (code == "" && strings.Contains(result.Err.Error(), a.Code)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: a.Code,
		Actual:   result.Err.Error(),
	}
}

func assertFragmentCount(result *Result, a Assertion) error {
	if got := len(result.Statement.Fragments); got != a.Count {
		return &AssertionError{
			Type:     AssertFragmentCount,
			Expected: fmt.Sprintf("%d fragments", a.Count),
			Actual:   fmt.Sprintf("%d fragments", got),
			Steps:    stepLabels(result),
		}
	}
	return nil
}

func assertKindsOrder(result *Result, a Assertion) error {
	got := make([]string, len(result.Plan.Steps))
	for i, s := range result.Plan.Steps {
		got[i] = s.Kind.String()
	}
	if strings.Join(got, ",") != strings.Join(a.Kinds, ",") {
		return &AssertionError{
			Type:     AssertKindsOrder,
			Expected: strings.Join(a.Kinds, ", "),
			Actual:   strings.Join(got, ", "),
			Steps:    stepLabels(result),
		}
	}
	return nil
}

// assertBefore checks that the steps introducing each op's node appear in
// the listed order. Steps match by the variable they introduce.
func assertBefore(result *Result, a Assertion) error {
	prev := -1
	for _, id := range a.Ops {
		idx := stepIndex(result, id)
		if idx < 0 {
			return &AssertionError{
				Type:     AssertBefore,
				Expected: fmt.Sprintf("a step producing %s", id),
				Actual:   "not emitted",
				Steps:    stepLabels(result),
			}
		}
		if idx <= prev {
			return &AssertionError{
				Type:     AssertBefore,
				Expected: "order " + strings.Join(a.Ops, " < "),
				Actual:   fmt.Sprintf("%s emitted at step %d, not after step %d", id, idx, prev),
				Steps:    stepLabels(result),
			}
		}
		prev = idx
	}
	return nil
}

func assertCheckpoint(result *Result, want bool) error {
	got := result.Plan.Checkpoints > 0
	if got == want {
		return nil
	}
	typ, expected := AssertNoCheckpoint, "no checkpoint"
	if want {
		typ, expected = AssertHasCheckpoint, "at least one checkpoint"
	}
	return &AssertionError{
		Type:     typ,
		Expected: expected,
		Actual:   fmt.Sprintf("%d checkpoints", result.Plan.Checkpoints),
		Steps:    stepLabels(result),
	}
}

func stepIndex(result *Result, opID string) int {
	id, ok := result.ops[opID]
	if !ok {
		return -1
	}
	if id == result.g.Start() {
		return -1
	}
	v := result.g.Node(id).Var
	for i, s := range result.Plan.Steps {
		if s.Kind != queryir.EdgeDependency && s.NodeVar() == v {
			return i
		}
	}
	return -1
}

func stepLabels(result *Result) []string {
	if result.Plan == nil {
		return nil
	}
	labels := make([]string, len(result.Plan.Steps))
	for i, s := range result.Plan.Steps {
		labels[i] = s.Kind.String() + " " + s.Label
	}
	return labels
}
