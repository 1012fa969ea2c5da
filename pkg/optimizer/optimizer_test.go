package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

func scanNode(dist distro.Distribution, width float64) *plan.Node {
	return &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, dist, array.Boundary{}, width)}
}

// TestPushUpJoinSGsOffsetsSurvivingSG is the regression test for the
// sufficiency bug: when the cheaper choice pushes up and drops one side's
// SG, the other side's SG must be retargeted onto the now-stationary
// side's actual distribution, not left pointing at the old shared target.
func TestPushUpJoinSGsOffsetsSurvivingSG(t *testing.T) {
	target := distro.Distribution{Kind: distro.RoundRobin}
	left := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 1000) // expensive to keep moving
	right := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 2}, 4)   // cheap, stays the surviving move

	root := &plan.Node{
		Op: ops.NewJoin(1000, 4),
		Children: []*plan.Node{
			{Op: ops.NewSG(target, left.Width(), false), Children: []*plan.Node{left}, Movable: true},
			{Op: ops.NewSG(target, right.Width(), false), Children: []*plan.Node{right}, Movable: true},
		},
	}

	out := pushUpJoinSGs(root)

	require.Len(t, out.Children, 2)
	leftDist := out.Children[0].Distribution()
	rightDist := out.Children[1].Distribution()
	require.True(t, leftDist.Equal(rightDist), "join children must remain collocated after push-up: left=%v right=%v", leftDist, rightDist)
}

// TestPushUpJoinSGsKeepsBothWhenCheapest exercises the choice-0 path: when
// both sides already sit at zero transfer cost, dropping either SG saves
// nothing, so both stay in place and the join's children keep the shared
// target distribution.
func TestPushUpJoinSGsKeepsBothWhenCheapest(t *testing.T) {
	target := distro.Distribution{Kind: distro.RoundRobin}
	left := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 0)
	right := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 2}, 0)

	leftSG := &plan.Node{Op: ops.NewSG(target, left.Width(), false), Children: []*plan.Node{left}, Movable: true}
	rightSG := &plan.Node{Op: ops.NewSG(target, right.Width(), false), Children: []*plan.Node{right}, Movable: true}
	root := &plan.Node{Op: ops.NewJoin(0, 0), Children: []*plan.Node{leftSG, rightSG}}

	out := pushUpJoinSGs(root)

	require.Same(t, leftSG, out.Children[0])
	require.Same(t, rightSG, out.Children[1])
	require.True(t, out.Children[0].Distribution().Equal(target))
	require.True(t, out.Children[1].Distribution().Equal(target))
}

// TestPushUpJoinSGsPushesBothAboveJoinWhenCheapest exercises choice 3: two
// wide inputs that already collocate with each other (so neither needs to
// move to satisfy the join on its own) feed a narrow, selective join, so
// merging both SGs into one above the join beats moving either input.
func TestPushUpJoinSGsPushesBothAboveJoinWhenCheapest(t *testing.T) {
	target := distro.Distribution{Kind: distro.RoundRobin}
	sharedBelow := distro.Distribution{Kind: distro.Local, InstanceID: 1}
	left := scanNode(sharedBelow, 100)
	right := scanNode(sharedBelow, 100)

	root := &plan.Node{
		Op: ops.NewJoin(1, 1), // the join output is narrow even though its inputs are wide
		Children: []*plan.Node{
			{Op: ops.NewSG(target, left.Width(), false), Children: []*plan.Node{left}, Movable: true},
			{Op: ops.NewSG(target, right.Width(), false), Children: []*plan.Node{right}, Movable: true},
		},
	}

	out := pushUpJoinSGs(root)

	sg, ok := out.Op.(*ops.SG)
	require.True(t, ok, "expected the join to be wrapped by a merged SG")
	require.True(t, sg.Target.Equal(target))
	join, ok := out.Children[0].Op.(*ops.Join)
	require.True(t, ok)
	_ = join
	require.Same(t, left, out.Children[0].Children[0])
	require.Same(t, right, out.Children[0].Children[1])
}

// TestInsertScatterGathersCollocatesJoinInputs is the SG sufficiency
// property (#7) for insertScatterGathers alone: a join whose inputs start
// at different distributions ends up with SGs inserted so both inputs
// agree on a common distribution.
func TestInsertScatterGathersCollocatesJoinInputs(t *testing.T) {
	left := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 8)
	right := scanNode(distro.Distribution{Kind: distro.ByRow, PartitionKey: "x"}, 8)
	root := &plan.Node{Op: ops.NewJoin(8, 8), Children: []*plan.Node{left, right}}

	out := insertScatterGathers(root, &Context{ClusterSize: 2})

	require.True(t, out.Children[0].Distribution().Equal(out.Children[1].Distribution()))
}

// TestInsertScatterGathersLeavesAlreadyCollocatedInputsAlone is the SG
// minimality property (#8): a join whose inputs already agree gets no SG
// inserted at all.
func TestInsertScatterGathersLeavesAlreadyCollocatedInputsAlone(t *testing.T) {
	dist := distro.Distribution{Kind: distro.RoundRobin}
	left := scanNode(dist, 8)
	right := scanNode(dist, 8)
	root := &plan.Node{Op: ops.NewJoin(8, 8), Children: []*plan.Node{left, right}}

	out := insertScatterGathers(root, &Context{ClusterSize: 2})

	require.Same(t, left, out.Children[0])
	require.Same(t, right, out.Children[1])
}

func TestCollapseSGsMergesConsecutiveMovableSGs(t *testing.T) {
	inner := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 8)
	a := distro.Distribution{Kind: distro.RoundRobin}
	b := distro.Distribution{Kind: distro.ByRow, PartitionKey: "x"}
	innerSG := &plan.Node{Op: ops.NewSG(a, 8, false), Children: []*plan.Node{inner}, Movable: true}
	outerSG := &plan.Node{Op: ops.NewSG(b, 8, false), Children: []*plan.Node{innerSG}, Movable: true}

	out := collapseSGs(outerSG)

	require.Same(t, out, outerSG)
	require.Same(t, out.Children[0], inner)
	require.True(t, out.Distribution().Equal(b))
}

func TestCollapseSGsLeavesFrozenSGAlone(t *testing.T) {
	inner := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 8)
	a := distro.Distribution{Kind: distro.RoundRobin}
	b := distro.Distribution{Kind: distro.ByRow, PartitionKey: "x"}
	innerSG := &plan.Node{Op: ops.NewSG(a, 8, true), Children: []*plan.Node{inner}, Movable: false} // user-inserted
	outerSG := &plan.Node{Op: ops.NewSG(b, 8, false), Children: []*plan.Node{innerSG}, Movable: true}

	out := collapseSGs(outerSG)

	require.Same(t, out.Children[0], innerSG)
}

// specificParent is a single-input pass-through whose distribution
// requirement is a specific distribution.
type specificParent struct {
	*ops.PassThrough
	target distro.Distribution
}

func (p specificParent) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireSpecific, Specific: p.target}
}

func TestCollapseSGsPromotesSGToParentsSpecificRequirement(t *testing.T) {
	inner := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 8)
	sgTarget := distro.Distribution{Kind: distro.RoundRobin}
	sgNode := &plan.Node{Op: ops.NewSG(sgTarget, 8, false), Children: []*plan.Node{inner}, Movable: true}
	parentTarget := distro.Distribution{Kind: distro.Local, InstanceID: 2}
	root := &plan.Node{
		Op:       specificParent{PassThrough: ops.NewPassThrough(&plan.LogicalOperator{OpName: "parent"}, 8), target: parentTarget},
		Children: []*plan.Node{sgNode},
	}

	out := collapseSGs(root)

	sg := out.Children[0].Op.(*ops.SG)
	require.True(t, sg.Target.Equal(parentTarget))
}

// TestInsertAggregateReducersCoversReplicatedInput is scenario S3: an
// aggregate whose input arrives replicated gets a reduce_distro(roundRobin)
// node spliced in first.
func TestInsertAggregateReducersCoversReplicatedInput(t *testing.T) {
	child := scanNode(distro.Distribution{Kind: distro.Replicated}, 8)
	root := &plan.Node{Op: ops.NewAggregate(plan.AggregateCall{Name: "sum", Target: "x"}, 8), Children: []*plan.Node{child}}

	out := insertAggregateReducers(root)

	reducer, ok := out.Children[0].Op.(*ops.ReduceDistro)
	require.True(t, ok, "expected a reduce_distro node above the replicated aggregate input")
	require.True(t, reducer.Target.Equal(distro.Distribution{Kind: distro.RoundRobin}))
	require.Same(t, child, out.Children[0].Children[0])
}

func TestInsertAggregateReducersLeavesNonReplicatedInputAlone(t *testing.T) {
	child := scanNode(distro.Distribution{Kind: distro.RoundRobin}, 8)
	root := &plan.Node{Op: ops.NewAggregate(plan.AggregateCall{Name: "sum", Target: "x"}, 8), Children: []*plan.Node{child}}

	out := insertAggregateReducers(root)

	require.Same(t, child, out.Children[0])
}

func TestInsertRepartitionsAddsRepartWhenChunkingDiffers(t *testing.T) {
	leftSchema := &array.Descriptor{Dimensions: []array.Dimension{{Name: "x", ChunkInterval: 100}}}
	rightSchema := &array.Descriptor{Dimensions: []array.Dimension{{Name: "x", ChunkInterval: 50}}}
	left := &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, distro.Distribution{}, array.Boundary{}, 8), Schema: leftSchema}
	right := &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, distro.Distribution{}, array.Boundary{}, 8), Schema: rightSchema}
	root := &plan.Node{Op: ops.NewJoin(8, 8), Children: []*plan.Node{left, right}}

	out := insertRepartitions(root)

	_, ok := out.Children[1].Op.(*ops.Repart)
	require.True(t, ok, "expected a repart node above the input whose chunking disagreed with the first input's")
	require.Same(t, right, out.Children[1].Children[0])
	require.Same(t, left, out.Children[0]) // first input is never repartitioned
}

func TestInsertRepartitionsLeavesMatchingChunkingAlone(t *testing.T) {
	schema := &array.Descriptor{Dimensions: []array.Dimension{{Name: "x", ChunkInterval: 100}}}
	left := &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, distro.Distribution{}, array.Boundary{}, 8), Schema: schema}
	right := &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, distro.Distribution{}, array.Boundary{}, 8), Schema: schema}
	root := &plan.Node{Op: ops.NewJoin(8, 8), Children: []*plan.Node{left, right}}

	out := insertRepartitions(root)

	require.Same(t, right, out.Children[1])
}

func TestInsertMaterializersWrapsTileModeBoundaryCrossing(t *testing.T) {
	child := &plan.Node{Op: ops.NewPassThrough(&plan.LogicalOperator{OpName: "apply"}, 8), TileMode: true}
	root := &plan.Node{Op: ops.NewPassThrough(&plan.LogicalOperator{OpName: "store"}, 8), Children: []*plan.Node{child}, TileMode: false}

	out := insertMaterializers(root, &Context{})

	_, ok := out.Children[0].Op.(*ops.Materialize)
	require.True(t, ok, "expected a materializer between differing tile-mode boundaries")
	require.Same(t, child, out.Children[0].Children[0])
}

func TestInsertMaterializersLeavesMatchingTileModeAlone(t *testing.T) {
	child := &plan.Node{Op: ops.NewPassThrough(&plan.LogicalOperator{OpName: "apply"}, 8), TileMode: true}
	root := &plan.Node{Op: ops.NewPassThrough(&plan.LogicalOperator{OpName: "apply2"}, 8), Children: []*plan.Node{child}, TileMode: true}

	out := insertMaterializers(root, &Context{})

	require.Same(t, child, out.Children[0])
}

func TestRewriteStoringSGFusesStoreOverRoundRobinSGOfChunkPreservingInput(t *testing.T) {
	input := &plan.Node{Op: ops.NewPassThrough(&plan.LogicalOperator{OpName: "scan"}, 8)} // PassThrough.IsChunkPreserving needs an input slot
	chunkChild := &plan.Node{Op: ops.NewScan(&plan.LogicalOperator{}, distro.Distribution{}, array.Boundary{}, 8)}
	_ = input
	sgNode := &plan.Node{
		Op:       ops.NewSG(distro.Distribution{Kind: distro.RoundRobin}, 8, false),
		Children: []*plan.Node{chunkChild},
		Movable:  true,
	}
	root := &plan.Node{Op: ops.NewStore(&plan.LogicalOperator{Params: []plan.Param{{Kind: plan.ParamArrayName, ArrayName: "a"}}}), Children: []*plan.Node{sgNode}}

	out := rewriteStoringSG(root)

	storingSG, ok := out.Op.(*ops.StoringSG)
	require.True(t, ok)
	require.Equal(t, "a", storingSG.ArrayName)
	require.Same(t, chunkChild, out.Children[0])
}

// TestOptimizePipelineProducesCollocatedJoinInputs runs the SG-insertion,
// SG-collapse and join push-up stages of the pipeline in order over a
// join of two differently distributed scans, and checks
// the post-optimization invariant the pushup bug broke: the join's two
// children end up with equal distributions.
func TestOptimizePipelineProducesCollocatedJoinInputs(t *testing.T) {
	left := scanNode(distro.Distribution{Kind: distro.Local, InstanceID: 1}, 500)
	right := scanNode(distro.Distribution{Kind: distro.ByColumn, PartitionKey: "y"}, 4)
	root := &plan.Node{Op: ops.NewJoin(500, 4), Children: []*plan.Node{left, right}}

	root = insertScatterGathers(root, &Context{ClusterSize: 2})
	root = collapseSGs(root)
	root = pushUpJoinSGs(root)

	var join *plan.Node
	root.Walk(func(n *plan.Node) {
		if _, ok := n.Op.(*ops.Join); ok {
			join = n
		}
	})
	require.NotNil(t, join)
	require.True(t, join.Children[0].Distribution().Equal(join.Children[1].Distribution()),
		"join children must satisfy the collocation requirement after optimization")
}
