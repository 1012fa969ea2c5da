package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// rewriteStoringSG implements spec.md §4.5 step 9: a store node whose
// single input is an SG targeting roundRobin over a chunk-preserving
// child fuses into one storingSg node, letting each instance write
// chunks as it receives them instead of materializing the gather first.
func rewriteStoringSG(root *plan.Node) *plan.Node {
	for i, c := range root.Children {
		root.Children[i] = rewriteStoringSG(c)
	}
	store, ok := root.Op.(*ops.Store)
	if !ok || len(root.Children) != 1 {
		return root
	}
	sgNode := root.Children[0]
	sg, ok := sgNode.Op.(*ops.SG)
	if !ok || sg.Target.Kind != distro.RoundRobin || len(sgNode.Children) != 1 {
		return root
	}
	chunkChild := sgNode.Children[0]
	if !chunkChild.ChunkPreserving() {
		return root
	}
	return &plan.Node{
		Op:       ops.NewStoringSG(store.ArrayName, sg.Target, chunkChild.Width()),
		Children: []*plan.Node{chunkChild},
		Schema:   root.Schema,
		Movable:  false,
	}
}
