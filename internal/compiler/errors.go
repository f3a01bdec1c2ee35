package compiler

import (
	"errors"
	"fmt"

	"github.com/bamford/weave-io/internal/queryir"
)

// StructuralError reports a graph shape the compiler cannot sequence.
//
// These are internal errors: a well-behaved front-end never produces them.
// They are surfaced rather than papered over so that bugs in graph
// construction show up immediately instead of as silently wrong queries.
type StructuralError struct {
	// Code identifies the error category.
	Code StructuralErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the node where the problem was detected, or queryir.NoNode.
	Node queryir.NodeID

	// Details contains additional context.
	Details map[string]string

	// Graph is a Dump of the live graph at the point of failure.
	Graph string
}

// StructuralErrorCode categorizes structural errors.
type StructuralErrorCode string

const (
	// ErrCodeMultipleSuccessors indicates a node has more than one row
	// successor outside the branch mechanism.
	ErrCodeMultipleSuccessors StructuralErrorCode = "MULTIPLE_SUCCESSORS"

	// ErrCodeBranchWithoutTraversal indicates an aggregation branch contains
	// nothing that raises cardinality, so there is nothing to aggregate.
	ErrCodeBranchWithoutTraversal StructuralErrorCode = "BRANCH_WITHOUT_TRAVERSAL"

	// ErrCodeDependencyNotEstablished indicates a step would read a value that
	// no earlier step produced.
	ErrCodeDependencyNotEstablished StructuralErrorCode = "DEPENDENCY_NOT_ESTABLISHED"

	// ErrCodeUnconsumedEdges indicates the walk ended with live edges left,
	// meaning part of the graph was never emitted.
	ErrCodeUnconsumedEdges StructuralErrorCode = "UNCONSUMED_EDGES"

	// ErrCodeStepBudgetExceeded indicates compilation ran past its step budget.
	ErrCodeStepBudgetExceeded StructuralErrorCode = "STEP_BUDGET_EXCEEDED"

	// ErrCodeUnknownNode indicates the requested output is not a live node.
	ErrCodeUnknownNode StructuralErrorCode = "UNKNOWN_NODE"

	// ErrCodeInvalidGraph indicates the graph failed validation before the walk.
	ErrCodeInvalidGraph StructuralErrorCode = "INVALID_GRAPH"
)

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Node != queryir.NoNode {
		return fmt.Sprintf("%s: %s (node %d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructuralError reports whether err is a StructuralError with the given
// code. Uses errors.As to handle wrapped errors.
func IsStructuralError(err error, code StructuralErrorCode) bool {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func structural(code StructuralErrorCode, node queryir.NodeID, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}
