package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// insertScatterGathers implements spec.md §4.5 step 4. A node "needs SG"
// if its child is chunk-non-preserving at a replicated/local
// distribution when a cluster one is needed, or the parent requires a
// specific distribution the child cannot supply. Collocated binary/
// n-ary nodes need matching distributions on all inputs; the SG for each
// mismatched input is inserted at the thinnest point along that input's
// single-input sub-chain.
func insertScatterGathers(root *plan.Node, ctx *Context) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = insertScatterGathers(c, ctx)
	}

	req := root.Op.GetDistributionRequirement()
	switch req.Kind {
	case distro.RequireCollocated:
		insertCollocatingSGs(root)
	default:
		for i, c := range root.Children {
			if target, needs := needsSG(root.Op, c, ctx); needs {
				idx := i
				insertSGForInput(func(nc *plan.Node) { root.Children[idx] = nc }, c, target)
			}
		}
	}
	return root
}

// needsSG decides, for a single-input requirement, whether child's
// distribution must be moved before parent can consume it.
func needsSG(parent plan.PhysicalOperator, child *plan.Node, ctx *Context) (distro.Distribution, bool) {
	req := parent.GetDistributionRequirement()
	childDist := child.Distribution()

	if req.Kind == distro.RequireSpecific {
		if !childDist.Equal(req.Specific) {
			return req.Specific, true
		}
		return distro.Distribution{}, false
	}

	// RequireAny: still need to move data off a replicated/local
	// distribution onto a cluster one when the child is not chunk-
	// preserving and the cluster has more than one instance.
	if ctx.ClusterSize > 1 && !child.ChunkPreserving() &&
		(childDist.Kind == distro.Local || childDist.Kind == distro.Replicated) {
		return distro.Distribution{Kind: distro.RoundRobin}, true
	}
	return distro.Distribution{}, false
}

// insertCollocatingSGs picks the majority distribution among a
// Collocated node's inputs as the target and inserts an SG along the
// thinnest sub-chain of every input that disagrees with it.
func insertCollocatingSGs(root *plan.Node) {
	if len(root.Children) < 2 {
		return
	}
	counts := make(map[distro.Kind]int)
	dists := make([]distro.Distribution, len(root.Children))
	for i, c := range root.Children {
		dists[i] = c.Distribution()
		counts[dists[i].Kind]++
	}
	target := dists[0]
	best := -1
	for i, d := range dists {
		if counts[d.Kind] > best {
			best = counts[d.Kind]
			target = d
		}
	}
	if target.IsViolated() {
		target = distro.Distribution{Kind: distro.RoundRobin}
	}
	for i, c := range root.Children {
		if !dists[i].Equal(target) {
			idx := i
			insertSGForInput(func(nc *plan.Node) { root.Children[idx] = nc }, c, target)
		}
	}
}

// insertSGForInput walks the single-input chain rooted at child looking
// for the node with the lowest GetDataWidth, and splices an SG in just
// above it, minimizing transferred volume (spec.md §4.5 cost model: only
// dataWidth and distribution-violation drive placement).
func insertSGForInput(setRoot func(*plan.Node), child *plan.Node, target distro.Distribution) {
	bestSetter := setRoot
	bestNode := child
	bestWidth := child.Width()

	cur := child
	for len(cur.Children) == 1 {
		next := cur.Children[0]
		parentNode := cur
		nextSetter := func(nc *plan.Node) { parentNode.Children[0] = nc }
		if next.Width() < bestWidth {
			bestNode, bestSetter, bestWidth = next, nextSetter, next.Width()
		}
		cur = next
	}

	sg := &plan.Node{
		Op:       ops.NewSG(target, bestNode.Width(), false),
		Children: []*plan.Node{bestNode},
		Schema:   bestNode.Schema,
		Movable:  true,
	}
	bestSetter(sg)
}
