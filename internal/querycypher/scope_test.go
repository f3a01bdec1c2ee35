package querycypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamford/weave-io/internal/compiler"
	"github.com/bamford/weave-io/internal/queryir"
)

func traversalStep(i int, parent, node string) compiler.Step {
	return compiler.Step{
		Index:    i,
		Kind:     queryir.EdgeTraversal,
		Label:    "traverse(" + node + ")",
		Template: "OPTIONAL MATCH ({{parent}})-[*]-({{node}}:X)",
		Vars:     map[string]string{queryir.RefParent: parent, queryir.RefNode: node},
	}
}

func TestVerify_AcceptsOrderedSteps(t *testing.T) {
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "c2",
		Steps: []compiler.Step{
			traversalStep(0, "data0", "a1"),
			traversalStep(1, "a1", "c2"),
		},
	}

	assert.NoError(t, Verify(plan))
}

func TestVerify_RejectsReadBeforeIntroduce(t *testing.T) {
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "c2",
		Steps: []compiler.Step{
			traversalStep(0, "b1", "c2"),
			traversalStep(1, "data0", "b1"),
		},
	}

	err := Verify(plan)

	require.Error(t, err)
	var se *ScopeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Step)
	assert.Equal(t, "b1", se.Var)
	assert.Equal(t, "step 0 (traverse(c2)) reads b1 before it is in scope", se.Error())
}

func TestVerify_AggregationDropsBranchVariables(t *testing.T) {
	// After run2 is aggregated back onto ob1, run2 is out of scope.
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "exposure4",
		Steps: []compiler.Step{
			{
				Index: 0, Kind: queryir.EdgeTraversal, Label: "traverse(OB)",
				Template: "MATCH ({{node}}:OB)",
				Vars:     map[string]string{queryir.RefParent: "data0", queryir.RefNode: "ob1"},
			},
			traversalStep(1, "ob1", "run2"),
			{
				Index: 2, Kind: queryir.EdgeAggregation, Label: "aggr(count)",
				Template: "WITH {{scope}}, count({{parent}}) AS {{node}}",
				Vars: map[string]string{
					queryir.RefParent: "run2",
					queryir.RefAnchor: "ob1",
					queryir.RefNode:   "count3",
				},
			},
			traversalStep(3, "run2", "exposure4"),
		},
	}

	err := Verify(plan)

	var se *ScopeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Step)
	assert.Equal(t, "run2", se.Var)
}

func TestVerify_OutputMustBeInScope(t *testing.T) {
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "gone9",
		Steps:     []compiler.Step{traversalStep(0, "data0", "a1")},
	}

	err := Verify(plan)

	var se *ScopeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "return", se.Label)
}

func TestVerify_RestoreWithoutCheckpoint(t *testing.T) {
	plan := &compiler.Plan{
		StartVar:  "data0",
		OutputVar: "run2",
		Steps: []compiler.Step{
			traversalStep(0, "data0", "ob1"),
			{
				Index: 1, Kind: queryir.EdgeUnwind, Label: "unwind(save-state)",
				Template: "UNWIND {{state}} AS {{row}} WITH {{unpack}}",
				Vars:     map[string]string{queryir.RefState: "ob1", queryir.RefNode: "run2"},
			},
		},
	}

	err := Verify(plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "never checkpointed")
}

func TestStartIsRead(t *testing.T) {
	read := &compiler.Plan{StartVar: "ob0", Steps: []compiler.Step{traversalStep(0, "ob0", "run1")}}
	unread := &compiler.Plan{StartVar: "ob0", Steps: []compiler.Step{{
		Kind: queryir.EdgeTraversal, Template: "MATCH ({{node}}:Run)",
		Vars: map[string]string{queryir.RefParent: "ob0", queryir.RefNode: "run1"},
	}}}

	assert.True(t, startIsRead(read))
	assert.False(t, startIsRead(unread))
}
