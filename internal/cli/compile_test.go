package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamford/weave-io/internal/testutil"
)

func TestCompileCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, compileCmd.Flags().Lookup("db"))
}

func TestCompileCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestCompileCommand_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chain.yaml", chainScenario)

	out, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"}, path)

	require.NoError(t, err)
	assert.Equal(t, chainStatement+"\n", out)
}

func TestCompileCommand_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "red_runs.yaml", redRunsScenario)

	out, err := execute(t, NewCompileCommand, &RootOptions{Format: "json"}, path)
	require.NoError(t, err)

	var resp struct {
		Status string
		Data   struct {
			Scenario         string         `json:"scenario"`
			GraphFingerprint string         `json:"graph_fingerprint"`
			Cached           bool           `json:"cached"`
			Fragments        []string       `json:"fragments"`
			Params           map[string]any `json:"params"`
			Returns          string         `json:"returns"`
			Checkpoints      int            `json:"checkpoints"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "red_runs", resp.Data.Scenario)
	assert.Len(t, resp.Data.GraphFingerprint, 64)
	assert.False(t, resp.Data.Cached)
	assert.Equal(t, []string{
		"MATCH (run1:Run)",
		"WITH *, run1 AS run2 WHERE run1.camera = $camera",
	}, resp.Data.Fragments)
	assert.Equal(t, map[string]any{"camera": "red"}, resp.Data.Params)
	assert.Equal(t, "run2", resp.Data.Returns)
	assert.Zero(t, resp.Data.Checkpoints)
}

func TestCompileCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.yaml", chainScenario)
	target := filepath.Join(dir, "chain.cypher")

	_, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"}, path, "-o", target)

	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, chainStatement+"\n", string(data))
}

func TestCompileCommand_StoreCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "red_runs.yaml", redRunsScenario)
	db := filepath.Join(dir, "weaveio.db")
	opts := &RootOptions{Format: "json", NewID: testutil.NewSequentialIDs().Next}

	first, err := execute(t, NewCompileCommand, opts, path, "--db", db)
	require.NoError(t, err)
	second, err := execute(t, NewCompileCommand, opts, path, "--db", db)
	require.NoError(t, err)

	assert.Contains(t, first, `"cached": false`)
	assert.Contains(t, second, `"cached": true`)

	out, err := execute(t, NewHistoryCommand, &RootOptions{Format: "json"}, "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data HistoryResult
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", resp.Data.Entries[0].ID)
	assert.Equal(t, "red_runs", resp.Data.Entries[0].Source)
	assert.Equal(t, 2, resp.Data.Entries[0].Fragments)
}

func TestCompileCommand_StructuralError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", multipleSuccessorsScenario)

	out, err := execute(t, NewCompileCommand, &RootOptions{Format: "json"}, path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "details: %v", resp.Error.Details)
	assert.Equal(t, "MULTIPLE_SUCCESSORS", details["code"])
	assert.NotEmpty(t, details["graph"])
}

func TestCompileCommand_BuildError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", notAncestorScenario)

	out, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"}, path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_BUILD]")
	assert.Contains(t, out, "NOT_ANCESTOR")
}

func TestCompileCommand_BadScenario(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "name: x\nbogus: 1\n", "bogus"},
		{"missing output", "name: x\nops:\n  - id: a\n    op: traverse\n    path: [OB]\n", "output"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "s.yaml", tc.content)

			out, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"}, path)

			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E_SCENARIO]")
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestCompileCommand_MissingFile(t *testing.T) {
	_, err := execute(t, NewCompileCommand, &RootOptions{Format: "text"}, "/nonexistent/scenario.yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileCommand_MaxStepsFromConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chain.yaml", chainScenario)
	opts := &RootOptions{Format: "text"}
	opts.Config = mustParseConfig(t, "[compiler]\nmax_steps = 1\n")

	out, err := execute(t, NewCompileCommand, opts, path)

	require.Error(t, err)
	assert.Contains(t, out, "STEP_BUDGET_EXCEEDED")
}
