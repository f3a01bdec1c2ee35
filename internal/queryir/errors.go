package queryir

import (
	"errors"
	"fmt"
)

// BuildErrorCode classifies why a graph construction call was rejected.
type BuildErrorCode string

const (
	// ErrCodeUnknownNode means a referenced node does not exist or was removed.
	ErrCodeUnknownNode BuildErrorCode = "UNKNOWN_NODE"

	// ErrCodeEmptyPath means a traversal was requested with no hierarchy steps.
	ErrCodeEmptyPath BuildErrorCode = "EMPTY_PATH"

	// ErrCodeNotAncestor means an aggregation anchor is not a strict ancestor
	// of the aggregated node.
	ErrCodeNotAncestor BuildErrorCode = "NOT_ANCESTOR"

	// ErrCodeUnsupported means the construct is recognised but deliberately
	// unimplemented, such as filtering a computed scalar.
	ErrCodeUnsupported BuildErrorCode = "UNSUPPORTED"

	// ErrCodeInvalidArgument covers malformed expressions and templates.
	ErrCodeInvalidArgument BuildErrorCode = "INVALID_ARGUMENT"
)

// BuildError is returned by the Add* methods when a precondition fails.
// The graph is left unchanged when a BuildError is returned.
type BuildError struct {
	Op      string
	Code    BuildErrorCode
	Node    NodeID
	Message string
}

func (e *BuildError) Error() string {
	if e.Node != NoNode {
		return fmt.Sprintf("%s: %s (node %d): %s", e.Op, e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// IsBuildError reports whether err is a BuildError with the given code.
func IsBuildError(err error, code BuildErrorCode) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func buildErr(op string, code BuildErrorCode, node NodeID, format string, args ...any) *BuildError {
	return &BuildError{
		Op:      op,
		Code:    code,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
	}
}
