package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// insertRepartitions implements spec.md §4.5 step 3: below a Collocated-
// requirement node (today, *ops.Join), every input but the first is
// repartitioned to match the first input's chunking scheme whenever it
// disagrees, so the collocation a later SG pass arranges is meaningful.
func insertRepartitions(root *plan.Node) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = insertRepartitions(c)
	}
	if _, ok := root.Op.(*ops.Join); !ok || len(root.Children) == 0 {
		return root
	}
	target := root.Children[0].Schema
	for i, c := range root.Children {
		if i == 0 || !ops.RequiresRepart(c.Schema, target) {
			continue
		}
		root.Children[i] = &plan.Node{
			Op:       ops.NewRepart(target, c.Width()),
			Children: []*plan.Node{c},
			Schema:   target,
			Movable:  true,
		}
	}
	return root
}
