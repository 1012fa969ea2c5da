// Package plan implements the logical and physical operator model: named
// operators with typed parameters and schema inference (logical), and
// operators additionally carrying the distribution/chunk-preservation/
// boundary/width properties the optimizer reasons about (physical),
// arranged in a plan-node tree.
package plan

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/container/types"
)

// ParamKind enumerates the typed placeholders an operator's parameter
// list may hold.
type ParamKind int

const (
	ParamInputArray ParamKind = iota
	ParamArrayName
	ParamAttributeRef
	ParamDimensionRef
	ParamSchema
	ParamConstant
	ParamExpression
	ParamAggregateCall
	ParamVaries
)

// Param is one entry in an operator's parameter list.
type Param struct {
	Kind ParamKind

	ArrayName string
	AttrName  string
	DimName   string
	Schema    *array.Descriptor
	Constant  types.Value

	// Expr is the (uncompiled) expression parameter's textual form; the
	// surface expression language is out of scope (spec.md §1
	// Non-goals), so this is treated as an opaque string the compiled-
	// parameter contract of §4.4 wraps.
	Expr string

	Aggregate AggregateCall
}

// AggregateCall names an aggregate function applied to an input target,
// with "*" as the asterisk target legacy count() uses.
type AggregateCall struct {
	Name   string
	Target string
	Alias  string
}
