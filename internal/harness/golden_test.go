package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)

			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_OmitsEmptyParams(t *testing.T) {
	result, err := Run(loadScenario(t, "chain"))
	require.NoError(t, err)

	snapshot, err := Snapshot(result)

	require.NoError(t, err)
	assert.NotContains(t, string(snapshot), "-- params --")
	assert.True(t, strings.HasSuffix(string(snapshot), "RETURN exposure2\n"))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "chain.golden"),
		GoldenPath(filepath.Join("scenarios", "chain.yaml")))
}

func TestUpdateAndCompareGolden(t *testing.T) {
	result, err := Run(loadScenario(t, "checkpoint"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "golden", "checkpoint.golden")

	_, err = CompareGolden(path, result)
	assert.Error(t, err, "missing golden file")

	require.NoError(t, UpdateGolden(path, result))
	match, err := CompareGolden(path, result)
	require.NoError(t, err)
	assert.True(t, match)

	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	match, err = CompareGolden(path, result)
	require.NoError(t, err)
	assert.False(t, match)
}
