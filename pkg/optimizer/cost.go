package optimizer

import "github.com/arraydb/arraydb/pkg/plan"

// transferCost estimates the bytes moved by inserting a data-movement
// node (SG or reduce_distro) between parent and child, the only two
// terms spec.md §4.5's cost model weighs: the child's data width and
// whether its current distribution already violates what's needed.
func transferCost(child *plan.Node) float64 {
	cost := child.Width()
	if child.Distribution().IsViolated() {
		cost *= 2 // an unknown/undefined distribution forces a full reshuffle
	}
	return cost
}
