package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// insertAggregateReducers implements spec.md §4.5 step 7: an aggregate
// whose input arrives replicated would otherwise see every group's
// partial state once per replica; inserting a reduce_distro(roundRobin)
// node first ensures each chunk of partial states is seen exactly once
// before the two-phase aggregate's merge runs.
func insertAggregateReducers(root *plan.Node) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = insertAggregateReducers(c)
	}
	if _, ok := root.Op.(*ops.Aggregate); !ok || len(root.Children) != 1 {
		return root
	}
	child := root.Children[0]
	if child.Distribution().Kind != distro.Replicated {
		return root
	}
	root.Children[0] = &plan.Node{
		Op:       ops.NewReduceDistro(distro.Distribution{Kind: distro.RoundRobin}, child.Width()),
		Children: []*plan.Node{child},
		Schema:   child.Schema,
		Movable:  true,
	}
	root.InvalidateCache()
	return root
}
