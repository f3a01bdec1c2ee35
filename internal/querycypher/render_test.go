package querycypher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/ir"
	"github.com/bamford/weave-io/internal/queryir"
)

var quietCompiler = compiler.New(compiler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

func must(t *testing.T) func(queryir.NodeID, error) queryir.NodeID {
	t.Helper()
	return func(id queryir.NodeID, err error) queryir.NodeID {
		t.Helper()
		require.NoError(t, err)
		return id
	}
}

func render(t *testing.T, g *queryir.Graph, output queryir.NodeID) *Statement {
	t.Helper()
	plan, err := quietCompiler.Compile(g, output)
	require.NoError(t, err)
	require.NoError(t, Verify(plan))
	stmt, err := NewRenderer().Render(plan)
	require.NoError(t, err)
	require.Len(t, stmt.Fragments, len(plan.Steps))
	return stmt
}

func assertGolden(t *testing.T, name string, stmt *Statement) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(stmt.Text()))
}

func TestRender_Chain(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	ob := m(g.AddTraversal(g.Start(), []string{"OB"}))
	exps := m(g.AddTraversal(ob, []string{"Run", "Exposure"}))

	stmt := render(t, g, exps)

	assert.Equal(t, []string{
		"MATCH (ob1:OB)",
		"OPTIONAL MATCH (ob1)-[*]-(:Run)-[*]-(exposure2:Exposure)",
	}, stmt.Fragments)
	assert.Equal(t, "exposure2", stmt.Returns)
	assert.Empty(t, stmt.Params)
	assert.Equal(t, "MATCH (ob1:OB)\nOPTIONAL MATCH (ob1)-[*]-(:Run)-[*]-(exposure2:Exposure)\nRETURN exposure2", stmt.Text())
}

func TestRender_AggregateOverStart(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("OB")
	runs := m(g.AddTraversal(g.Start(), []string{"Run"}))
	red := m(g.AddFilter(runs, nil, "{{parent}}.camera = 'red'"))
	count := m(g.AddAggregation(red, g.Start(), "count({{parent}})"))
	result := m(g.AddFilter(g.Start(), []queryir.NodeID{count}, "{{dep0}} > 3"))

	stmt := render(t, g, result)

	assert.Equal(t, []string{
		"MATCH (ob0)-[*]-(run1:Run)",
		"WITH *, run1 AS run2 WHERE run1.camera = 'red'",
		"WITH ob0, count(run2) AS count3",
		"WITH *, ob0 AS ob4 WHERE count3 > 3",
	}, stmt.Fragments)
	assert.Equal(t, "ob4", stmt.Returns)
}

func TestRender_EmptyScopeDropsSeparator(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	runs := m(g.AddTraversal(g.Start(), []string{"Run"}))
	count := m(g.AddAggregation(runs, g.Start(), "count({{parent}})"))

	stmt := render(t, g, count)

	assert.Equal(t, []string{
		"MATCH (run1:Run)",
		"WITH count(run1) AS count2",
	}, stmt.Fragments)
}

func TestRender_CheckpointGolden(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	ob := m(g.AddTraversal(g.Start(), []string{"OB"}))
	runs := m(g.AddTraversal(ob, []string{"Run"}))
	red := m(g.AddFilter(runs, nil, "{{parent}}.camera = 'red'"))
	count := m(g.AddAggregation(red, ob, "count({{parent}})"))
	exps := m(g.AddTraversal(runs, []string{"Exposure"}))
	result := m(g.AddFilter(exps, []queryir.NodeID{count}, "{{dep0}} > {{parent}}.snr"))

	stmt := render(t, g, result)

	assertGolden(t, "checkpoint", stmt)
}

func TestRender_SharedTraversalGolden(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	ob := m(g.AddTraversal(g.Start(), []string{"OB"}))
	runs := m(g.AddTraversal(ob, []string{"Run"}))
	n := m(g.AddAggregation(runs, ob, "count({{parent}})"))
	snr := m(g.AddAggregation(runs, ob, "sum({{parent}}.snr)"))
	result := m(g.AddFilter(ob, []queryir.NodeID{n, snr}, "{{dep1}} / {{dep0}} > 5"))

	stmt := render(t, g, result)

	assertGolden(t, "shared_traversal", stmt)
}

func TestRender_Params(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	runs := m(g.AddTraversal(g.Start(), []string{"Run"}))
	bright := m(g.AddFilter(runs, nil, "{{parent}}.snr > $p0",
		queryir.WithParams(map[string]ir.IRValue{"p0": ir.IRFloat(1.5)})))
	red := m(g.AddFilter(bright, nil, "{{parent}}.camera IN $p1 AND {{parent}}.snr > $p0",
		queryir.WithParams(map[string]ir.IRValue{
			"p0": ir.IRFloat(1.5),
			"p1": ir.IRArray{ir.IRString("red"), ir.IRString("blue")},
		})))

	stmt := render(t, g, red)

	assert.Equal(t, map[string]ir.IRValue{
		"p0": ir.IRFloat(1.5),
		"p1": ir.IRArray{ir.IRString("red"), ir.IRString("blue")},
	}, stmt.Params)

	params, err := stmt.DriverParams()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"p0": 1.5,
		"p1": []any{"red", "blue"},
	}, params)
}

func TestRender_ConflictingParams(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	runs := m(g.AddTraversal(g.Start(), []string{"Run"}))
	a := m(g.AddFilter(runs, nil, "{{parent}}.snr > $p0",
		queryir.WithParams(map[string]ir.IRValue{"p0": ir.IRInt(1)})))
	b := m(g.AddFilter(a, nil, "{{parent}}.snr < $p0",
		queryir.WithParams(map[string]ir.IRValue{"p0": ir.IRInt(2)})))
	plan, err := quietCompiler.Compile(g, b)
	require.NoError(t, err)

	_, err = NewRenderer().Render(plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "$p0")
	assert.Contains(t, err.Error(), "conflicting")
}

func TestRender_NilPlan(t *testing.T) {
	_, err := NewRenderer().Render(nil)

	assert.Error(t, err)
}

func TestRender_UnboundPlaceholder(t *testing.T) {
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "x1",
		Steps: []compiler.Step{{
			Kind:     queryir.EdgeOperation,
			Label:    "operate(?)",
			Template: "WITH *, {{mystery}} AS {{node}}",
			Vars:     map[string]string{queryir.RefNode: "x1"},
		}},
	}

	_, err := NewRenderer().Render(plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound placeholders mystery")
}

func TestRender_RejectsScopeEdgeStep(t *testing.T) {
	plan := &compiler.Plan{
		StartVar: "data0",
		Steps: []compiler.Step{{
			Kind:  queryir.EdgeScope,
			Label: "wrt",
			Vars:  map[string]string{queryir.RefNode: "x1"},
		}},
	}

	_, err := NewRenderer().Render(plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot render wrt edge")
}

func TestDriverParams_Nested(t *testing.T) {
	stmt := &Statement{Params: map[string]ir.IRValue{
		"obj":  ir.IRObject{"n": ir.IRInt(2), "ok": ir.IRBool(true)},
		"none": ir.IRNull{},
	}}

	params, err := stmt.DriverParams()

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"obj":  map[string]any{"n": int64(2), "ok": true},
		"none": nil,
	}, params)
}

func TestCompile_LeavesGraphIntact(t *testing.T) {
	m := must(t)
	g := queryir.NewGraph("data")
	ob := m(g.AddTraversal(g.Start(), []string{"OB"}))
	runs := m(g.AddTraversal(ob, []string{"Run"}))
	before := g.Dump()

	stmt, plan, err := Compile(nil, g, runs)

	require.NoError(t, err)
	assert.Equal(t, before, g.Dump())
	assert.Len(t, plan.Steps, 2)
	assert.Equal(t, "run2", stmt.Returns)

	// The same graph compiles again to the same text.
	again, _, err := Compile(compiler.New(), g, runs)
	require.NoError(t, err)
	assert.Equal(t, stmt.Text(), again.Text())
}

func TestCompile_StructuralErrorPassesThrough(t *testing.T) {
	g := queryir.NewGraph("data")

	_, _, err := Compile(quietCompiler, g, queryir.NodeID(42))

	assert.True(t, compiler.IsStructuralError(err, compiler.ErrCodeUnknownNode), "got %v", err)
}
