package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCommand_List(t *testing.T) {
	out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, "--dir", weaveSchemaDir)

	require.NoError(t, err)
	assert.Contains(t, out, "ArmConfig (armconfig/armconfigs) id=armcode factors=camera,resolution\n")
	assert.Contains(t, out, "Run (run/runs) id=runid\n  <- Exposure [1..1]\n  <- ArmConfig [1..1]\n  <- Survey [0..*]\n")
	assert.Contains(t, out, "  <- Spectrum [1..1] one2one")
}

func TestSchemaCommand_ListJSON(t *testing.T) {
	out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "json"}, "--dir", weaveSchemaDir)

	require.NoError(t, err)
	var resp struct {
		Data struct {
			Hierarchies []struct {
				Name string `json:"name"`
			} `json:"hierarchies"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	names := make([]string, len(resp.Data.Hierarchies))
	for i, h := range resp.Data.Hierarchies {
		names[i] = h.Name
	}
	assert.Equal(t, []string{"ArmConfig", "Exposure", "OB", "OBSpec", "Redshift", "Run", "Spectrum", "Survey", "Target"}, names)
}

func TestSchemaCommand_Path(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"upward", []string{"run", "ob"}, "Run->Exposure->OB (one, up)\n"},
		{"downward", []string{"obs", "runs"}, "OB->Exposure->Run (many, down)\n"},
		{"singular", []string{"spectrum", "target", "--singular"}, "Spectrum->Target (one, up)\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--dir", weaveSchemaDir}, tc.args...)

			out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, args...)

			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestSchemaCommand_PathErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"cardinality", []string{"ob", "run", "--singular"}, "requested one Run from OB when OB has several"},
		{"ambiguous", []string{"spectra", "surveys"}, "equally short paths"},
		{"no path", []string{"armconfig", "target"}, "no path from ArmConfig to Target"},
		{"unknown", []string{"galaxy", "run"}, `unknown object "galaxy"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--dir", weaveSchemaDir}, tc.args...)

			out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, args...)

			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "Error [E_SCHEMA]")
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestSchemaCommand_AmbiguousPathDetails(t *testing.T) {
	out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "json"}, "--dir", weaveSchemaDir, "spectra", "surveys")

	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, map[string]any{
		"paths": []any{[]any{"Run", "Survey"}, []any{"Target", "Survey"}},
	}, resp.Error.Details)
}

func TestSchemaCommand_Factor(t *testing.T) {
	out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, "--dir", weaveSchemaDir, "--factor", "Cameras")
	require.NoError(t, err)
	assert.Equal(t, "ArmConfig.camera\n", out)

	out, err = execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, "--dir", weaveSchemaDir, "--factor", "mjd")
	require.Error(t, err)
	assert.Contains(t, out, "`Exposure.mjd`")
}

func TestSchemaCommand_Args(t *testing.T) {
	_, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, "--dir", weaveSchemaDir, "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 0 or 2 arg(s), received 1")
}

func TestSchemaCommand_MissingDir(t *testing.T) {
	out, err := execute(t, NewSchemaCommand, &RootOptions{Format: "text"}, "--dir", "/nonexistent/schema")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "schema directory")
}
