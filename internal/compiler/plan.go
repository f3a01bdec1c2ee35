package compiler

import (
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/queryir"
)

// Step is one compiled fragment: the edge that was consumed and everything a
// renderer needs to fill in its template.
type Step struct {
	Index      int                   `json:"index"`
	Edge       queryir.EdgeID        `json:"edge"`
	Kind       queryir.EdgeKind      `json:"kind"`
	Label      string                `json:"label"`
	Template   string                `json:"template"`
	Checkpoint bool                  `json:"checkpoint,omitempty"`
	Vars       map[string]string     `json:"vars"`
	Params     map[string]ir.IRValue `json:"params,omitempty"`

	// Branch is the nesting depth of the aggregation branch the step was
	// emitted in. Zero is the trunk.
	Branch int `json:"branch"`
}

// NodeVar returns the variable the step introduces.
func (s Step) NodeVar() string {
	return s.Vars[queryir.RefNode]
}

// Uses returns the variables the step reads, in placeholder order.
// The introduced variable is excluded.
func (s Step) Uses() []string {
	var uses []string
	for _, name := range queryir.Placeholders(s.Template) {
		if name == queryir.RefNode {
			continue
		}
		if v, ok := s.Vars[name]; ok {
			uses = append(uses, v)
		}
	}
	return uses
}

// Plan is the result of compiling a graph.
type Plan struct {
	Steps []Step `json:"steps"`

	// StartVar is the start node's variable. It is bound before any step.
	StartVar string `json:"start_var"`

	// OutputVar is the variable holding the requested output.
	OutputVar string `json:"output_var"`

	// Checkpoints counts the checkpoints inserted during compilation.
	Checkpoints int `json:"checkpoints"`

	// Pruned counts nodes removed because they do not reach the output.
	Pruned int `json:"pruned"`
}

// Kinds returns the kind of each step in order.
func (p *Plan) Kinds() []queryir.EdgeKind {
	kinds := make([]queryir.EdgeKind, len(p.Steps))
	for i, s := range p.Steps {
		kinds[i] = s.Kind
	}
	return kinds
}

// IndexOf returns the index of the first step whose label is label, or -1.
func (p *Plan) IndexOf(label string) int {
	for i, s := range p.Steps {
		if s.Label == label {
			return i
		}
	}
	return -1
}
