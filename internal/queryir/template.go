package queryir

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Placeholder names bound through Edge.Refs.
const (
	RefParent = "parent"
	RefNode   = "node"
	RefState  = "state"
	RefAnchor = "anchor"
)

// Placeholders filled by the renderer from its own scope tracking. They are
// never bound in Edge.Refs.
const (
	// RefScope lists the variables in scope at an aggregation's anchor.
	RefScope = "scope"

	// RefCapture is the map literal of the row a checkpoint collects.
	RefCapture = "capture"

	// RefRow names the per-element variable when a checkpoint is unwound.
	RefRow = "row"

	// RefUnpack is the projection that rebinds a restored row's variables.
	RefUnpack = "unpack"
)

// IsRendererRef reports whether name is filled by the renderer rather than
// bound through Edge.Refs.
func IsRendererRef(name string) bool {
	switch name {
	case RefScope, RefCapture, RefRow, RefUnpack:
		return true
	}
	return false
}

var placeholderRe = regexp.MustCompile(`\{\{([a-z_][a-z0-9_]*)\}\}`)

// PlaceholderPattern exposes the placeholder syntax for renderers.
func PlaceholderPattern() *regexp.Regexp {
	return placeholderRe
}

// DepRef returns the placeholder name bound to the i-th dependency node.
func DepRef(i int) string {
	return "dep" + strconv.Itoa(i)
}

// Placeholders returns the distinct placeholder names in a template in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Default templates. Expressions are spliced in verbatim.
const (
	filterTemplate     = "WITH *, {{parent}} AS {{node}} WHERE "
	aggregateTemplate  = "WITH {{scope}}, "
	operationTemplate  = "WITH *, "
	checkpointTemplate = "WITH {{scope}}, collect({{capture}}) AS {{node}}"
	restoreTemplate    = "UNWIND {{state}} AS {{row}} WITH {{unpack}}"
	asNode             = " AS {{node}}"
)

// traversalTemplate builds the default pattern for walking a hierarchy path.
// From a store start the first hierarchy is matched directly; from a bound
// start the match is joined to it.
func traversalTemplate(from *Node, path []string) string {
	var b strings.Builder
	last := len(path) - 1
	switch {
	case from.Kind == NodeStart && from.Name == StoreStart:
		b.WriteString("MATCH ")
	case from.Kind == NodeStart:
		b.WriteString("MATCH ({{parent}})-[*]-")
	default:
		b.WriteString("OPTIONAL MATCH ({{parent}})-[*]-")
	}
	for i, label := range path {
		if i > 0 {
			b.WriteString("-[*]-")
		}
		if i == last {
			b.WriteString("({{node}}:" + label + ")")
		} else {
			b.WriteString("(:" + label + ")")
		}
	}
	return b.String()
}
