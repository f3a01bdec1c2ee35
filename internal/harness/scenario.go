package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bamford/weave-io/internal/queryir"
)

// StartRef names the start node in parent, deps, wrt and output.
const StartRef = "start"

// Scenario describes one query graph and what compiling it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start names the start node. Defaults to queryir.StoreStart, the whole
	// store; any other name is an object bound before the statement.
	Start string `yaml:"start,omitempty"`

	// Ops build the graph, in order.
	Ops []Op `yaml:"ops"`

	// Output is the op id to compile.
	Output string `yaml:"output"`

	// Assertions validate the compiled plan and statement.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Op is one builder call.
type Op struct {
	ID         string         `yaml:"id"`
	Op         string         `yaml:"op"`
	Parent     string         `yaml:"parent,omitempty"`
	Deps       []string       `yaml:"deps,omitempty"`
	Wrt        string         `yaml:"wrt,omitempty"`
	Path       []string       `yaml:"path,omitempty"`
	Expression string         `yaml:"expression,omitempty"`
	Template   string         `yaml:"template,omitempty"`
	Name       string         `yaml:"name,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`
}

// Op kinds.
const (
	OpTraverse  = "traverse"
	OpFilter    = "filter"
	OpAggregate = "aggregate"
	OpOperate   = "operate"
)

// Assertion validates a compile result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected fragment count (fragment_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected step kind sequence (kinds_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Ops lists op ids whose steps must appear in this order (before).
	Ops []string `yaml:"ops,omitempty"`

	// Code is the expected error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFragmentCount = "fragment_count"
	AssertKindsOrder    = "kinds_order"
	AssertBefore        = "before"
	AssertHasCheckpoint = "has_checkpoint"
	AssertNoCheckpoint  = "no_checkpoint"
	AssertError         = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Start == "" {
		scenario.Start = queryir.StoreStart
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir in lexical order.
// A non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	slices.Sort(files)
	return files, err
}

// validateScenario checks required fields and references.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Ops) == 0 {
		return fmt.Errorf("at least one op is required")
	}

	known := map[string]bool{StartRef: true}
	for i, op := range s.Ops {
		if err := validateOp(i, op, known); err != nil {
			return err
		}
		known[op.ID] = true
	}

	if s.Output == "" {
		return fmt.Errorf("output is required")
	}
	if !known[s.Output] {
		return fmt.Errorf("output %q is not an op id", s.Output)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, known); err != nil {
			return err
		}
	}
	return nil
}

func validateOp(index int, op Op, known map[string]bool) error {
	if op.ID == "" {
		return fmt.Errorf("ops[%d]: id is required", index)
	}
	if known[op.ID] {
		return fmt.Errorf("ops[%d]: duplicate id %q", index, op.ID)
	}
	refs := append([]string{op.Parent, op.Wrt}, op.Deps...)
	for _, ref := range refs {
		if ref != "" && !known[ref] {
			return fmt.Errorf("ops[%d] (%s): %q is not defined by an earlier op", index, op.ID, ref)
		}
	}

	switch op.Op {
	case OpTraverse:
		if len(op.Path) == 0 {
			return fmt.Errorf("ops[%d] (%s): path is required for traverse", index, op.ID)
		}
	case OpFilter, OpOperate:
		if op.Expression == "" {
			return fmt.Errorf("ops[%d] (%s): expression is required for %s", index, op.ID, op.Op)
		}
	case OpAggregate:
		if op.Expression == "" {
			return fmt.Errorf("ops[%d] (%s): expression is required for aggregate", index, op.ID)
		}
		if op.Wrt == "" {
			return fmt.Errorf("ops[%d] (%s): wrt is required for aggregate", index, op.ID)
		}
	case "":
		return fmt.Errorf("ops[%d] (%s): op is required", index, op.ID)
	default:
		return fmt.Errorf("ops[%d] (%s): unknown op %q", index, op.ID, op.Op)
	}
	return nil
}

func validateAssertion(index int, a Assertion, known map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFragmentCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fragment_count", index)
		}
	case AssertKindsOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for kinds_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := queryir.ParseEdgeKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertBefore:
		if len(a.Ops) < 2 {
			return fmt.Errorf("assertions[%d]: at least two ops are required for before", index)
		}
		for _, id := range a.Ops {
			if !known[id] {
				return fmt.Errorf("assertions[%d]: %q is not an op id", index, id)
			}
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case AssertHasCheckpoint, AssertNoCheckpoint:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
