package schema

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Unbounded is the Max of a parent link with no upper limit.
const Unbounded = 0

// Parent is a link from a child hierarchy to one of its parents.
type Parent struct {
	Name string `json:"name"`

	// Min and Max bound how many parents of this kind one child has.
	// Max == Unbounded means no upper limit.
	Min int `json:"min"`
	Max int `json:"max"`

	// One2One marks a link that is also singular from the parent's side.
	One2One bool `json:"one2one,omitempty"`
}

// Singular reports whether a child reaches at most one parent through p.
func (p Parent) Singular() bool {
	return p.Max == 1
}

// Hierarchy is one object type in the schema.
type Hierarchy struct {
	Name     string   `json:"name"`
	IDName   string   `json:"idname,omitempty"`
	Factors  []string `json:"factors,omitempty"`
	Parents  []Parent `json:"parents,omitempty"`
	Singular string   `json:"singular"`
	Plural   string   `json:"plural"`
}

// Schema is an immutable, validated set of hierarchies.
// Safe for concurrent use.
type Schema struct {
	hierarchies map[string]*Hierarchy

	// byName maps folded singular and plural names to hierarchy names.
	byName   map[string]nameRef
	children map[string][]string
	owners   map[string][]string
}

type nameRef struct {
	hierarchy string
	singular  bool
}

// fold normalises a user-supplied name for lookup.
// A Caser is stateful, so each call gets its own.
func fold(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Names returns every hierarchy name in sorted order.
func (s *Schema) Names() []string {
	return slices.Sorted(maps.Keys(s.hierarchies))
}

// Hierarchy returns the hierarchy with the given canonical name.
func (s *Schema) Hierarchy(name string) (*Hierarchy, bool) {
	h, ok := s.hierarchies[name]
	return h, ok
}

// Resolve maps a singular or plural object name ("run", "Runs") to its
// hierarchy name and whether the name was singular.
func (s *Schema) Resolve(name string) (string, bool, error) {
	ref, ok := s.byName[fold(name)]
	if !ok {
		return "", false, &UnknownNameError{Name: name, Kind: "object"}
	}
	return ref.hierarchy, ref.singular, nil
}

// IsFactor reports whether name (singular or plural) is an attribute of some
// hierarchy.
func (s *Schema) IsFactor(name string) bool {
	_, _, ok := s.factorKey(name)
	return ok
}

// FactorOwner returns the hierarchy that owns an attribute and whether the
// attribute name was singular. "cameras" resolves like "camera" but reports
// plural.
func (s *Schema) FactorOwner(name string) (string, bool, error) {
	key, singular, ok := s.factorKey(name)
	if !ok {
		return "", false, &UnknownNameError{Name: name, Kind: "attribute"}
	}
	owners := s.owners[key]
	if len(owners) > 1 {
		return "", false, &AmbiguousAttributeError{Attribute: name, Owners: slices.Clone(owners)}
	}
	return owners[0], singular, nil
}

// FactorName returns the canonical spelling of an attribute name.
func (s *Schema) FactorName(name string) (string, error) {
	key, _, ok := s.factorKey(name)
	if !ok {
		return "", &UnknownNameError{Name: name, Kind: "attribute"}
	}
	return key, nil
}

func (s *Schema) factorKey(name string) (string, bool, bool) {
	f := fold(name)
	if _, ok := s.owners[f]; ok {
		return f, true, true
	}
	if trimmed, ok := strings.CutSuffix(f, "s"); ok {
		if _, ok := s.owners[trimmed]; ok {
			return trimmed, false, true
		}
	}
	return "", false, false
}
