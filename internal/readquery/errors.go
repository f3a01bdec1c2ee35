package readquery

import "fmt"

// UnsupportedError reports a construct the front-end recognises but does not
// implement.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Construct)
}

// MismatchError reports two expressions that are not defined over the same
// rows, such as a mask built from other objects than the ones it filters.
type MismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s and %s do not share the same parentage", e.Op, e.Left, e.Right)
}
