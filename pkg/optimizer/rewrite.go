package optimizer

import (
	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/plan"
)

var legacyAggregateShortcuts = map[string]bool{
	"sum": true, "avg": true, "min": true, "max": true,
	"stdev": true, "var": true, "count": true,
}

// rewriteLogical recognizes the idiomatic combinations of spec.md §4.5
// step 1: load(name,file) rewrites to store/sg depending on cluster
// size, and the legacy aggregate shortcuts rewrite to aggregate(...)
// with an AggregateCall parameter.
func rewriteLogical(root *plan.LogicalOperator, ctx *Context) *plan.LogicalOperator {
	rewritten := rewriteNode(root, ctx)
	for i, c := range rewritten.Children {
		rewritten.Children[i] = rewriteLogical(c, ctx)
	}
	return rewritten
}

func rewriteNode(n *plan.LogicalOperator, ctx *Context) *plan.LogicalOperator {
	switch {
	case n.OpName == "load":
		return rewriteLoad(n, ctx)
	case legacyAggregateShortcuts[n.OpName]:
		return rewriteLegacyAggregate(n)
	default:
		return n
	}
}

func rewriteLoad(n *plan.LogicalOperator, ctx *Context) *plan.LogicalOperator {
	var name, file string
	for _, p := range n.Params {
		if p.Kind == plan.ParamArrayName && name == "" {
			name = p.ArrayName
		}
		if p.Kind == plan.ParamConstant {
			file = string(p.Constant.Payload)
		}
	}
	fileType := types.Type{Name: "string"}
	input := &plan.LogicalOperator{
		OpName: "input",
		Params: []plan.Param{
			{Kind: plan.ParamArrayName, ArrayName: name},
			{Kind: plan.ParamConstant, Constant: types.Value{Type: fileType, Payload: []byte(file)}},
		},
	}
	if ctx.ClusterSize <= 1 {
		return &plan.LogicalOperator{
			OpName:   "store",
			Params:   []plan.Param{{Kind: plan.ParamArrayName, ArrayName: name}},
			Children: []*plan.LogicalOperator{input},
		}
	}
	return &plan.LogicalOperator{
		OpName: "sg",
		Params: []plan.Param{
			{Kind: plan.ParamArrayName, ArrayName: name}, // sg's physical impl defaults to roundRobin for a load target
		},
		Children: []*plan.LogicalOperator{input},
	}
}

func rewriteLegacyAggregate(n *plan.LogicalOperator) *plan.LogicalOperator {
	target := "*"
	if n.OpName != "count" && len(n.Params) > 0 && n.Params[0].Kind == plan.ParamAttributeRef {
		target = n.Params[0].AttrName
	}
	call := plan.AggregateCall{Name: n.OpName, Target: target}
	return &plan.LogicalOperator{
		OpName:   "aggregate",
		Params:   []plan.Param{{Kind: plan.ParamAggregateCall, Aggregate: call}},
		Infer:    n.Infer,
		Children: n.Children,
	}
}
