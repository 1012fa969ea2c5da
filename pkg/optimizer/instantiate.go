package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
)

// instantiate converts a logical tree into a physical plan.Node tree:
// for each logical node, pick the first registered physical
// implementation, compile its expression parameters (trying tile mode
// first per spec.md §4.5 step 2, retrying without it on failure).
func instantiate(l *plan.LogicalOperator, ctx *Context) (*plan.Node, error) {
	children := make([]*plan.Node, len(l.Children))
	for i, c := range l.Children {
		cn, err := instantiate(c, ctx)
		if err != nil {
			return nil, err
		}
		children[i] = cn
	}

	tileMode := false
	for _, p := range l.Params {
		if p.Kind != plan.ParamExpression {
			continue
		}
		_, usedTile, err := ctx.Compiler.CompileWithTileRetry(p.Expr, ctx.TilesAllowed, l.Props.Tile)
		if err != nil {
			return nil, err
		}
		tileMode = tileMode || usedTile
	}

	op, err := ctx.Physical.Instantiate(l)
	if err != nil {
		return nil, err
	}
	schema, err := l.InferSchema(ctx.Query)
	if err != nil {
		return nil, err
	}
	return &plan.Node{Op: op, Children: children, Schema: schema, TileMode: tileMode}, nil
}
