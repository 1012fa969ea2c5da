package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// collapseSGs implements spec.md §4.5 step 5: two consecutive movable SGs
// collapse into one realizing the outer one's target (an inner SG's
// rearrangement is pointless once a second one follows it), and a
// movable SG feeding a parent with a specific distribution requirement is
// promoted to realize that requirement directly rather than leaving a
// redundant move for a later pass to undo.
func collapseSGs(root *plan.Node) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = collapseSGs(c)
	}

	for isMovableSG(root) && len(root.Children) == 1 && isMovableSG(root.Children[0]) {
		root.Children[0] = root.Children[0].Children[0]
		root.InvalidateCache()
	}

	if len(root.Children) == 1 {
		if req := root.Op.GetDistributionRequirement(); req.Kind == distro.RequireSpecific {
			if c := root.Children[0]; isMovableSG(c) {
				if sg := c.Op.(*ops.SG); !sg.Target.Equal(req.Specific) {
					sg.Target = req.Specific
					c.InvalidateCache()
				}
			}
		}
	}
	return root
}

// isMovableSG reports whether n wraps an optimizer-inserted (non-frozen)
// *ops.SG with a single input.
func isMovableSG(n *plan.Node) bool {
	sg, ok := n.Op.(*ops.SG)
	return ok && n.Movable && !sg.Frozen && len(n.Children) == 1
}
