package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadError reports an invalid schema definition.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// UnknownNameError reports a name that matches no object or attribute.
type UnknownNameError struct {
	Name string
	Kind string // "object" or "attribute"
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// AmbiguousPathError reports more than one shortest route between two
// hierarchies.
type AmbiguousPathError struct {
	From  string
	To    string
	Paths [][]string
}

func (e *AmbiguousPathError) Error() string {
	routes := make([]string, len(e.Paths))
	for i, p := range e.Paths {
		routes[i] = e.From + "->" + strings.Join(p, "->")
	}
	return fmt.Sprintf("there are %d equally short paths from %s to %s: %s. Traverse explicitly to choose one",
		len(e.Paths), e.From, e.To, strings.Join(routes, ", "))
}

// NoPathError reports two hierarchies with no route between them.
type NoPathError struct {
	From string
	To   string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path from %s to %s", e.From, e.To)
}

// CardinalityError reports a request for one object where the path yields
// several.
type CardinalityError struct {
	From string
	To   string
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("requested one %s from %s when %s has several", e.To, e.From, e.From)
}

// AmbiguousAttributeError reports an attribute owned by several hierarchies.
type AmbiguousAttributeError struct {
	Attribute string
	Owners    []string
}

func (e *AmbiguousAttributeError) Error() string {
	return fmt.Sprintf("there are multiple attributes called %s with the following parent objects: %s. Please be specific e.g. `%s.%s`",
		e.Attribute, strings.Join(e.Owners, ", "), e.Owners[0], e.Attribute)
}
