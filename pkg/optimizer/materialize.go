package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// insertMaterializers implements spec.md §4.5 step 8: wherever a node's
// tile-mode flag differs from its child's, the child's tile-batched
// output must be materialized into concrete RLE chunks before crossing
// into (or out of) tile mode.
func insertMaterializers(root *plan.Node, ctx *Context) *plan.Node {
	for i, c := range root.Children {
		nc := insertMaterializers(c, ctx)
		if nc.TileMode != root.TileMode {
			nc = &plan.Node{
				Op:       ops.NewMaterialize("rle", nc.Width()),
				Children: []*plan.Node{nc},
				Schema:   nc.Schema,
				Movable:  true,
				TileMode: root.TileMode,
			}
		}
		root.Children[i] = nc
	}
	return root
}
