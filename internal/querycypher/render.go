package querycypher

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/queryir"
)

// Statement is a rendered query: ordered fragments plus the parameters they
// reference. Fragments must be executed in order as one query body.
type Statement struct {
	Fragments []string              `json:"fragments"`
	Params    map[string]ir.IRValue `json:"params"`
	Returns   string                `json:"returns"`
}

// Text joins the fragments and appends the RETURN clause.
// The RETURN clause is not a fragment of its own.
func (s *Statement) Text() string {
	var b strings.Builder
	for _, f := range s.Fragments {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("RETURN ")
	b.WriteString(s.Returns)
	return b.String()
}

// DriverParams converts Params to native Go values for a database driver.
func (s *Statement) DriverParams() (map[string]any, error) {
	out := make(map[string]any, len(s.Params))
	for _, name := range slices.Sorted(maps.Keys(s.Params)) {
		v, err := irValueToParam(s.Params[name])
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Renderer renders compiled plans as Cypher.
type Renderer struct{}

// NewRenderer creates a new Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render converts a plan into a Statement.
//
// Errors:
//   - ScopeError if a fragment reads a variable that is not in scope
//   - an error if a template uses a placeholder with no binding
//   - an error if two steps bind the same parameter to different values
func (r *Renderer) Render(plan *compiler.Plan) (*Statement, error) {
	if plan == nil {
		return nil, fmt.Errorf("cannot render nil plan")
	}
	t := newScopeTracker(plan)
	stmt := &Statement{
		Params:  make(map[string]ir.IRValue),
		Returns: plan.OutputVar,
	}
	for _, s := range plan.Steps {
		if err := t.check(s); err != nil {
			return nil, err
		}
		text, err := r.renderStep(t, s)
		if err != nil {
			return nil, err
		}
		if err := mergeParams(stmt.Params, s); err != nil {
			return nil, err
		}
		if err := t.apply(s); err != nil {
			return nil, err
		}
		stmt.Fragments = append(stmt.Fragments, text)
	}
	return stmt, nil
}

// renderStep fills s's template. It must run before t.apply(s) so
// renderer-provided placeholders see the scope the fragment executes in.
func (r *Renderer) renderStep(t *scopeTracker, s compiler.Step) (string, error) {
	tmpl := s.Template
	fill := make(map[string]string, len(s.Vars)+4)
	maps.Copy(fill, s.Vars)

	switch s.Kind {
	case queryir.EdgeAggregation:
		scope := t.anchorScope(s.Vars[queryir.RefAnchor])
		if len(scope) == 0 {
			tmpl = strings.ReplaceAll(tmpl, "{{"+queryir.RefScope+"}}, ", "")
		}
		fill[queryir.RefScope] = strings.Join(scope, ", ")
		if s.Checkpoint {
			fill[queryir.RefCapture] = captureLiteral(t.pendingCapture(s))
		}
	case queryir.EdgeUnwind, queryir.EdgeLoadState:
		state := s.Vars[queryir.RefState]
		row := state + "_row"
		fill[queryir.RefRow] = row
		fill[queryir.RefUnpack] = unpackList(row, t.captured[state])
	}

	var missing []string
	text := queryir.PlaceholderPattern().ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-2]
		v, ok := fill[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("step %d (%s): unbound placeholders %s", s.Index, s.Label, strings.Join(missing, ", "))
	}
	return text, nil
}

// pendingCapture returns the row a checkpoint step is about to collect.
func (t *scopeTracker) pendingCapture(s compiler.Step) []string {
	base := t.snapshot[t.levelOf(s.Vars[queryir.RefAnchor])]
	var row []string
	for _, v := range t.current {
		if !slices.Contains(base, v) {
			row = append(row, v)
		}
	}
	return row
}

// captureLiteral renders a row as a Cypher map literal: {a: a, b: b}.
func captureLiteral(row []string) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = v + ": " + v
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// unpackList renders the projection that rebinds a restored row.
func unpackList(row string, vars []string) string {
	parts := []string{"*"}
	for _, v := range vars {
		parts = append(parts, row+"."+v+" AS "+v)
	}
	return strings.Join(parts, ", ")
}

func mergeParams(dst map[string]ir.IRValue, s compiler.Step) error {
	for name, v := range s.Params {
		if prev, ok := dst[name]; ok {
			a, _ := ir.MarshalCanonical(prev)
			b, _ := ir.MarshalCanonical(v)
			if string(a) != string(b) {
				return fmt.Errorf("step %d (%s): parameter $%s bound to conflicting values", s.Index, s.Label, name)
			}
			continue
		}
		dst[name] = v
	}
	return nil
}

// irValueToParam converts an ir.IRValue to a Go native type for a driver.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			p, err := irValueToParam(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = p
		}
		return out, nil
	case ir.IRObject:
		out := make(map[string]any, len(val))
		for _, k := range val.SortedKeys() {
			p, err := irValueToParam(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			out[k] = p
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type for parameter: %T", v)
	}
}
