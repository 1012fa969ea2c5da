// Package optimizer transforms a logical operator tree into a physical
// plan-node tree, inserting data-movement (scatter/gather) and
// repartition nodes to satisfy distribution requirements while
// minimizing transferred volume, per spec.md §4.5.
package optimizer

import (
	"github.com/arraydb/arraydb/pkg/plan"
)

// Context carries the registries and runtime flags the optimizer's
// pipeline consults; one lives in the engine context.
type Context struct {
	Logical      *plan.LogicalRegistry
	Physical     *plan.PhysicalRegistry
	Compiler     *plan.ExprCompiler
	TilesAllowed bool
	ClusterSize  int

	// Query is threaded opaquely into each logical operator's schema
	// inference (e.g. an engine context resolving a load target against
	// the catalog); an any to avoid an import cycle with its concrete
	// type.
	Query any
}

// Optimize runs the full nine-stage pipeline of spec.md §4.5 over a
// logical tree, returning the optimized physical plan.
func Optimize(logical *plan.LogicalOperator, ctx *Context) (*plan.Node, error) {
	logical = rewriteLogical(logical, ctx)

	root, err := instantiate(logical, ctx)
	if err != nil {
		return nil, err
	}

	root = insertRepartitions(root)
	root = insertScatterGathers(root, ctx)
	root = collapseSGs(root)
	root = pushUpJoinSGs(root)
	root = insertAggregateReducers(root)
	root = insertMaterializers(root, ctx)
	root = rewriteStoringSG(root)

	return root, nil
}
