package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamford/weave-io/internal/compiler"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, compiler.DefaultMaxSteps, cfg.Compiler.MaxSteps)
	assert.Equal(t, "schema", cfg.Schema.Dir)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
[compiler]
max_steps = 50

[store]
path = "weaveio.db"

[schema]
dir = "defs"

[output]
format = "json"
`), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, &Config{
		Compiler: Compiler{MaxSteps: 50},
		Store:    Store{Path: "weaveio.db"},
		Schema:   Schema{Dir: "defs"},
		Output:   Output{Format: "json"},
	}, cfg)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "[compiler\n", "decode config"},
		{"unknown key", "[compiler]\nmax_step = 3\n", "unknown keys compiler.max_step"},
		{"negative steps", "[compiler]\nmax_steps = -1\n", "must not be negative"},
		{"bad format", "[output]\nformat = \"xml\"\n", `output.format "xml"`},
		{"wrong type", "[store]\npath = 3\n", "decode config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_Unreadable(t *testing.T) {
	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
