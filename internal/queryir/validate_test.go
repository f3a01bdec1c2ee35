package queryir

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidGraph(t *testing.T) {
	g, ob, _, red := chain(t)
	_, err := g.AddAggregation(red, ob, "count({{parent}})")
	require.NoError(t, err)

	assert.Empty(t, g.Validate())
}

func TestValidate_AggregationScopedToStart(t *testing.T) {
	g := NewGraph("OB")
	runs, err := g.AddTraversal(g.Start(), []string{"Run"})
	require.NoError(t, err)
	red, err := g.AddFilter(runs, nil, "{{parent}}.camera = 'red'")
	require.NoError(t, err)
	count, err := g.AddAggregation(red, g.Start(), "count({{parent}})")
	require.NoError(t, err)
	_, err = g.AddFilter(g.Start(), []NodeID{count}, "{{dep0}} > 0")
	require.NoError(t, err)

	assert.Empty(t, g.Validate(), "a wrt edge into the start node is not an input")
}

func TestValidate_DetectsCycle(t *testing.T) {
	g, ob, runs, red := chain(t)
	// red -> ob closes a loop ob -> runs -> red -> ob
	_, err := g.Connect(red, ob, EdgeDependency, "dep", "", nil, nil)
	require.NoError(t, err)

	issues := g.Validate()

	require.NotEmpty(t, issues)
	assert.Equal(t, IssueCycle, issues[0].Code)
	assert.Equal(t, [][]NodeID{{ob, runs, red, ob}}, g.Cycles())
	assert.Contains(t, issues[0].Message, "n1 → n2 → n3 → n1")
}

func TestValidate_Issues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(t *testing.T, g *Graph, ob, runs, red NodeID)
		want   IssueCode
	}{
		{
			name: "start with an input",
			mutate: func(t *testing.T, g *Graph, ob, _, _ NodeID) {
				_, err := g.Connect(ob, g.Start(), EdgeDependency, "dep", "", nil, nil)
				require.NoError(t, err)
			},
			want: IssueStart,
		},
		{
			name: "orphan",
			mutate: func(t *testing.T, g *Graph, _, _, red NodeID) {
				require.NoError(t, g.RemoveEdge(g.InEdges(red)[0].ID))
			},
			want: IssueOrphan,
		},
		{
			name: "scope on non-aggregation",
			mutate: func(t *testing.T, g *Graph, ob, _, red NodeID) {
				_, err := g.Connect(red, ob, EdgeScope, "wrt", "", nil, nil)
				require.NoError(t, err)
			},
			want: IssueScopeCount,
		},
		{
			name: "aggregation missing scope",
			mutate: func(t *testing.T, g *Graph, ob, _, red NodeID) {
				count, err := g.AddAggregation(red, ob, "count({{parent}})")
				require.NoError(t, err)
				require.NoError(t, g.RemoveEdge(g.OutEdges(count)[0].ID))
			},
			want: IssueScopeCount,
		},
		{
			name: "scope not ancestor",
			mutate: func(t *testing.T, g *Graph, ob, runs, red NodeID) {
				count, err := g.AddAggregation(red, ob, "count({{parent}})")
				require.NoError(t, err)
				exp, err := g.AddTraversal(ob, []string{"Exposure"})
				require.NoError(t, err)
				require.NoError(t, g.Reattach(g.OutEdges(count)[0].ID, count, exp))
			},
			want: IssueScopeNotAncestor,
		},
		{
			name: "filter on operation",
			mutate: func(t *testing.T, g *Graph, ob, _, _ NodeID) {
				op, err := g.AddOperation(ob, nil, "{{parent}}.mjd")
				require.NoError(t, err)
				f, err := g.AddFilter(ob, nil, "{{parent}}.mjd > 1")
				require.NoError(t, err)
				require.NoError(t, g.Reattach(g.InEdges(f)[0].ID, op, f))
			},
			want: IssueFilteredOperation,
		},
		{
			name: "dangling ref",
			mutate: func(_ *testing.T, g *Graph, _, _, red NodeID) {
				delete(g.InEdges(red)[0].Refs, RefParent)
			},
			want: IssueDanglingRef,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, ob, runs, red := chain(t)
			tc.mutate(t, g, ob, runs, red)

			issues := g.Validate()

			codes := make([]IssueCode, len(issues))
			for i, is := range issues {
				codes[i] = is.Code
			}
			assert.Contains(t, codes, tc.want)
		})
	}
}

// randomGraph drives the builder with a seeded sequence of operations.
func randomGraph(r *rand.Rand, steps int) *Graph {
	labels := []string{"OB", "Run", "Exposure", "Spectrum", "Target"}
	g := NewGraph("data")
	nodes := []NodeID{g.Start()}
	for i := 0; i < steps; i++ {
		parent := nodes[r.Intn(len(nodes))]
		var (
			id  NodeID
			err error
		)
		switch r.Intn(4) {
		case 0:
			id, err = g.AddTraversal(parent, []string{labels[r.Intn(len(labels))]})
		case 1:
			dep := nodes[r.Intn(len(nodes))]
			id, err = g.AddFilter(parent, []NodeID{dep}, "{{dep0}} IS NOT NULL")
		case 2:
			anc := g.Ancestors(parent)
			var anchors []NodeID
			for _, n := range nodes {
				if anc[n] {
					anchors = append(anchors, n)
				}
			}
			if len(anchors) == 0 {
				continue
			}
			id, err = g.AddAggregation(parent, anchors[r.Intn(len(anchors))], "count({{parent}})")
		case 3:
			id, err = g.AddOperation(parent, nil, fmt.Sprintf("{{parent}}.x%d", i))
		}
		if err != nil {
			continue
		}
		nodes = append(nodes, id)
	}
	return g
}

func TestValidate_RandomBuilderGraphsStayAcyclic(t *testing.T) {
	r := rand.New(rand.NewSource(20240601))

	for i := 0; i < 200; i++ {
		g := randomGraph(r, 30)

		assert.Empty(t, g.Cycles(), "seeded graph %d", i)
		assert.Empty(t, g.Validate(), "seeded graph %d:\n%s", i, g.Dump())
		assert.Len(t, g.TopoOrder(liveSet(g)), g.NumNodes())
	}
}

func liveSet(g *Graph) map[NodeID]bool {
	set := make(map[NodeID]bool)
	for _, n := range g.Nodes() {
		set[n.ID] = true
	}
	return set
}
