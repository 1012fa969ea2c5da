package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// pushUpJoinSGs implements spec.md §4.5 step 6: when a Collocated binary
// operator has a movable SG directly atop both inputs, compare three
// placements by transferred volume (keep both below the join; drop one
// side's SG and retarget the other onto that side's distribution; push
// both up and merge into one SG above the join) and keep the cheapest.
func pushUpJoinSGs(root *plan.Node) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = pushUpJoinSGs(c)
	}

	if root.Op.GetDistributionRequirement().Kind != distro.RequireCollocated || len(root.Children) != 2 {
		return root
	}
	leftSG, leftOK := sgAtop(root.Children[0])
	rightSG, rightOK := sgAtop(root.Children[1])
	if !leftOK || !rightOK || !leftSG.Target.Equal(rightSG.Target) {
		return root
	}

	leftBelow := root.Children[0].Children[0]
	rightBelow := root.Children[1].Children[0]
	target := leftSG.Target

	costKeepBoth := transferCost(leftBelow) + transferCost(rightBelow)
	// Pushing one side up drops that side's move entirely; the other side
	// still pays to land on the now-stationary side's distribution, which
	// costs the same as landing on the old shared target did.
	costPushLeft := transferCost(rightBelow)
	costPushRight := transferCost(leftBelow)

	best := costKeepBoth
	choice := 0 // 0=keep, 1=pushLeft, 2=pushRight, 3=pushBoth
	if costPushLeft < best {
		best, choice = costPushLeft, 1
	}
	if costPushRight < best {
		best, choice = costPushRight, 2
	}
	// Pushing both up only makes sense when the inputs already collocate
	// with each other: the shared-target SGs then exist only to satisfy a
	// requirement above the join, so one merged SG on the join's output
	// supersedes both and the join itself pays no pre-join transfer cost.
	if leftBelow.Distribution().Equal(rightBelow.Distribution()) {
		costPushBoth := root.Op.GetDataWidth()
		if costPushBoth < best {
			best, choice = costPushBoth, 3
		}
	}

	switch choice {
	case 1:
		// Left stops moving; offset the right SG to land on left's
		// now-stationary distribution instead of the old shared target.
		root.Children[0] = leftBelow
		rightSG.Target = leftBelow.Distribution()
		root.Children[1].InvalidateCache()
	case 2:
		root.Children[1] = rightBelow
		leftSG.Target = rightBelow.Distribution()
		root.Children[0].InvalidateCache()
	case 3:
		root.Children[0] = leftBelow
		root.Children[1] = rightBelow
		return &plan.Node{
			Op:       ops.NewSG(target, root.Op.GetDataWidth(), false),
			Children: []*plan.Node{root},
			Schema:   root.Schema,
			Movable:  true,
		}
	}
	root.InvalidateCache()
	return root
}

// sgAtop reports whether n's operator is a movable SG, returning it.
func sgAtop(n *plan.Node) (*ops.SG, bool) {
	if !isMovableSG(n) {
		return nil, false
	}
	return n.Op.(*ops.SG), true
}
