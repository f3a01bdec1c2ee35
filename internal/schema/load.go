package schema

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads every CUE file in dir as one schema.
func Load(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	return FromValue(ctx.BuildInstance(inst))
}

// LoadString parses a schema from CUE source.
func LoadString(src string) (*Schema, error) {
	ctx := cuecontext.New()
	return FromValue(ctx.CompileString(src, cue.Filename("schema.cue")))
}

// FromValue builds a schema from the top-level `hierarchies` struct of v.
func FromValue(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	hv := v.LookupPath(cue.ParsePath("hierarchies"))
	if !hv.Exists() {
		return nil, &LoadError{Field: "hierarchies", Message: "hierarchies is required", Pos: v.Pos()}
	}
	iter, err := hv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var hs []Hierarchy
	for iter.Next() {
		h, err := parseHierarchy(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return New(hs...)
}

func parseHierarchy(name string, v cue.Value) (Hierarchy, error) {
	h := Hierarchy{Name: name}
	field := "hierarchies." + name

	var err error
	if h.IDName, err = optionalString(v, "idname"); err != nil {
		return h, err
	}
	if h.Singular, err = optionalString(v, "singular"); err != nil {
		return h, err
	}
	if h.Plural, err = optionalString(v, "plural"); err != nil {
		return h, err
	}

	if fv := v.LookupPath(cue.ParsePath("factors")); fv.Exists() {
		it, err := fv.List()
		if err != nil {
			return h, formatCUEError(err)
		}
		for it.Next() {
			f, err := it.Value().String()
			if err != nil {
				return h, &LoadError{Field: field + ".factors", Message: "factor names must be strings", Pos: it.Value().Pos()}
			}
			h.Factors = append(h.Factors, f)
		}
	}

	if pv := v.LookupPath(cue.ParsePath("parents")); pv.Exists() {
		it, err := pv.List()
		if err != nil {
			return h, formatCUEError(err)
		}
		for it.Next() {
			p, err := parseParent(field+".parents", it.Value())
			if err != nil {
				return h, err
			}
			h.Parents = append(h.Parents, p)
		}
	}
	return h, nil
}

// parseParent accepts either a bare hierarchy name or a struct with
// name/min/max/one2one. Bare names mean exactly one parent.
func parseParent(field string, v cue.Value) (Parent, error) {
	p := Parent{Min: 1, Max: 1}
	if name, err := v.String(); err == nil {
		p.Name = name
		return p, nil
	}

	nv := v.LookupPath(cue.ParsePath("name"))
	if !nv.Exists() {
		return p, &LoadError{Field: field, Message: "parent must be a name or have a name field", Pos: v.Pos()}
	}
	name, err := nv.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	p.Name = name

	for _, f := range []struct {
		label string
		dst   *int
	}{{"min", &p.Min}, {"max", &p.Max}} {
		fv := v.LookupPath(cue.ParsePath(f.label))
		if !fv.Exists() {
			continue
		}
		n, err := fv.Int64()
		if err != nil {
			return p, formatCUEError(err)
		}
		if n < 0 {
			return p, &LoadError{Field: field + "." + f.label, Message: "must not be negative", Pos: fv.Pos()}
		}
		*f.dst = int(n)
	}

	if ov := v.LookupPath(cue.ParsePath("one2one")); ov.Exists() {
		b, err := ov.Bool()
		if err != nil {
			return p, formatCUEError(err)
		}
		p.One2One = b
	}
	return p, nil
}

func optionalString(v cue.Value, label string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(label))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// New validates hierarchies and indexes them.
//
// Errors:
//   - a parent naming an unknown hierarchy
//   - a hierarchy listed as its own parent
//   - Min greater than a bounded Max
//   - two hierarchies sharing a singular or plural name
func New(hierarchies ...Hierarchy) (*Schema, error) {
	s := &Schema{
		hierarchies: make(map[string]*Hierarchy, len(hierarchies)),
		byName:      make(map[string]nameRef),
		children:    make(map[string][]string),
		owners:      make(map[string][]string),
	}

	for i := range hierarchies {
		h := hierarchies[i]
		h.Factors = slices.Clone(h.Factors)
		h.Parents = slices.Clone(h.Parents)
		if h.Singular == "" {
			h.Singular = strings.ToLower(h.Name)
		}
		if h.Plural == "" {
			h.Plural = h.Singular + "s"
		}
		if _, dup := s.hierarchies[h.Name]; dup {
			return nil, &LoadError{Field: "hierarchies." + h.Name, Message: "defined twice"}
		}
		s.hierarchies[h.Name] = &h

		for _, n := range []nameRef{{h.Name, true}, {h.Singular, true}, {h.Plural, false}} {
			key := fold(n.hierarchy)
			if prev, ok := s.byName[key]; ok && prev.hierarchy != h.Name {
				return nil, &LoadError{
					Field:   "hierarchies." + h.Name,
					Message: fmt.Sprintf("name %q is already used by %s", n.hierarchy, prev.hierarchy),
				}
			}
			if _, ok := s.byName[key]; !ok {
				s.byName[key] = nameRef{hierarchy: h.Name, singular: n.singular}
			}
		}

		for _, f := range h.Factors {
			key := fold(f)
			if !slices.Contains(s.owners[key], h.Name) {
				s.owners[key] = append(s.owners[key], h.Name)
			}
		}
		if h.IDName != "" {
			key := fold(h.IDName)
			if !slices.Contains(s.owners[key], h.Name) {
				s.owners[key] = append(s.owners[key], h.Name)
			}
		}
	}

	for _, name := range s.Names() {
		h := s.hierarchies[name]
		for _, p := range h.Parents {
			field := "hierarchies." + name + ".parents"
			if p.Name == name {
				return nil, &LoadError{Field: field, Message: fmt.Sprintf("%s cannot be its own parent", name)}
			}
			if _, ok := s.hierarchies[p.Name]; !ok {
				return nil, &LoadError{Field: field, Message: fmt.Sprintf("unknown parent %q", p.Name)}
			}
			if p.Max != Unbounded && p.Min > p.Max {
				return nil, &LoadError{Field: field, Message: fmt.Sprintf("parent %s has min %d > max %d", p.Name, p.Min, p.Max)}
			}
			s.children[p.Name] = append(s.children[p.Name], name)
		}
	}
	for _, owners := range s.owners {
		slices.Sort(owners)
	}
	return s, nil
}
