package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/store"
	"github.com/bamford/weave-io/internal/testutil"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_Chain(t *testing.T) {
	result, err := Run(loadScenario(t, "chain"))

	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "exposure2", result.Statement.Returns)
	assert.Len(t, result.GraphFingerprint, 64)
	assert.False(t, result.Cached)
}

func TestRun_ExpectedErrorPasses(t *testing.T) {
	result, err := Run(loadScenario(t, "multiple_successors"))

	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, compiler.IsStructuralError(result.Err, compiler.ErrCodeMultipleSuccessors))
	assert.Nil(t, result.Statement)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	scenario := loadScenario(t, "multiple_successors")
	scenario.Assertions = nil

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error: MULTIPLE_SUCCESSORS")
}

func TestRun_BuildError(t *testing.T) {
	result, err := Run(loadScenario(t, "not_ancestor"))

	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Err.Error(), "ops[3] (count)")
}

func TestRun_FailingAssertions(t *testing.T) {
	scenario := loadScenario(t, "chain")
	scenario.Assertions = []Assertion{
		{Type: AssertFragmentCount, Count: 3},
		{Type: AssertHasCheckpoint},
		{Type: AssertBefore, Ops: []string{"exps", "ob"}},
		{Type: AssertKindsOrder, Kinds: []string{"traversal"}},
		{Type: AssertError, Code: "MULTIPLE_SUCCESSORS"},
	}

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Assertion failed: error")
	assert.Contains(t, result.Errors[1], "Expected: 3 fragments")
	assert.Contains(t, result.Errors[2], "Actual: 0 checkpoints")
	assert.Contains(t, result.Errors[3], "ob emitted at step 0, not after step 1")
	assert.Contains(t, result.Errors[4], "Actual: traversal, traversal")
}

func TestRun_StoreCachesByGraph(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "weaveio.db"),
		store.WithIDFunc(testutil.NewSequentialIDs().Next))
	require.NoError(t, err)
	defer st.Close()
	h := New(WithStore(st))
	scenario := loadScenario(t, "checkpoint")

	first, err := h.Run(ctx, scenario)
	require.NoError(t, err)
	require.True(t, first.Pass, "errors: %v", first.Errors)
	assert.False(t, first.Cached)

	second, err := h.Run(ctx, scenario)
	require.NoError(t, err)
	assert.True(t, second.Pass, "errors: %v", second.Errors)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Statement.Text(), second.Statement.Text())
	assert.Equal(t, first.Statement.Params, second.Statement.Params)

	records, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", rec.ID)
	assert.Equal(t, "checkpoint", rec.Source)
	assert.Equal(t, first.GraphFingerprint, rec.GraphFingerprint)
	assert.Equal(t, 1, rec.Checkpoints)
	assert.Equal(t, 9, rec.FragmentCount())
	assert.Equal(t, ir.IRObject{"camera": ir.IRString("red")}, rec.Params)
	assert.Equal(t, ir.MustStatementFingerprint(first.Statement.Fragments, first.Statement.Params, "exposure6"), rec.Fingerprint)
}

func TestBuild_DefaultsParentToStart(t *testing.T) {
	scenario := loadScenario(t, "aggregate_over_start")

	g, ids, err := Build(scenario)

	require.NoError(t, err)
	assert.Equal(t, g.Start(), ids[StartRef])
	assert.Equal(t, "OB", g.Node(g.Start()).Name)
	assert.Equal(t, g.Start(), g.ScopeOf(ids["count"]))
	assert.Equal(t, ir.IRInt(3), g.InEdges(ids["result"])[0].Params["min"])
}

func TestBuild_NonFiniteParam(t *testing.T) {
	scenario := &Scenario{
		Name:   "nan",
		Start:  "data",
		Output: "a",
		Ops: []Op{{
			ID: "a", Op: OpTraverse, Path: []string{"OB"},
			Params: map[string]any{"x": []any{1, map[string]any{"y": struct{}{}}}},
		}},
	}

	_, _, err := Build(scenario)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `param "x"`)
}
