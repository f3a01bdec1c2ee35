package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/bamford/weave-io/internal/ir"
)

// Snapshot renders the golden form of a result: the statement text, then
// the parameters as canonical JSON when there are any. A failed compile
// snapshots its error code.
func Snapshot(result *Result) ([]byte, error) {
	if result.Err != nil {
		code := ErrorCode(result.Err)
		if code == "" {
			code = result.Err.Error()
		}
		return []byte("error: " + code + "\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString(result.Statement.Text())
	buf.WriteByte('\n')
	if len(result.Statement.Params) > 0 {
		params, err := ir.MarshalCanonical(ir.IRObject(result.Statement.Params))
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		buf.WriteString("-- params --\n")
		buf.Write(params)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}

// GoldenPath returns the golden file of a scenario file outside tests:
// golden/<name>.golden beside the scenario.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// UpdateGolden writes result's snapshot to path.
func UpdateGolden(path string, result *Result) error {
	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether result's snapshot matches the file at path.
func CompareGolden(path string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}
