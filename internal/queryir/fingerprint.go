package queryir

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bamford/weave-io/internal/ir"
)

// Fingerprint returns the content address of the part of g that output
// depends on. Templates, refs and parameter values all contribute; nodes
// that do not reach output do not.
func (g *Graph) Fingerprint(output NodeID) (string, error) {
	c := g.Clone()
	if _, err := c.Restrict(output); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "output n%d\n", output)
	b.WriteString(c.Dump())
	for _, e := range c.Edges() {
		fmt.Fprintf(&b, "e%d template=%q", e.ID, e.Template)
		for _, name := range slices.Sorted(maps.Keys(e.Refs)) {
			fmt.Fprintf(&b, " %s=n%d", name, e.Refs[name])
		}
		if len(e.Params) > 0 {
			data, err := ir.MarshalCanonical(ir.IRObject(e.Params))
			if err != nil {
				return "", fmt.Errorf("edge e%d params: %w", e.ID, err)
			}
			fmt.Fprintf(&b, " params=%s", data)
		}
		b.WriteByte('\n')
	}
	return ir.GraphFingerprint(b.String()), nil
}
