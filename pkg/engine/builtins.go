package engine

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/dberr"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
	"github.com/arraydb/arraydb/pkg/plan/ops"
)

// relationalPassThroughs names the relational-style operators spec.md §1
// treats as external collaborators: only their distribution/chunk/
// boundary/width contract is in scope, so each gets ops.PassThrough.
var relationalPassThroughs = []string{"apply", "filter", "regrid"}

// registerBuiltinLogical installs the schema-inference-bearing logical
// operators the optimizer's rewrite stage and query planning both build
// trees out of.
func registerBuiltinLogical(r *plan.LogicalRegistry) {
	r.Register("input", func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
		name := arrayNameFromParams(params)
		return &plan.LogicalOperator{OpName: "input", Params: params, Children: children, Infer: inferInputFor(name)}
	})
	r.Register("store", func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
		return &plan.LogicalOperator{OpName: "store", Params: params, Children: children, Infer: inferPassThroughSchema, Props: plan.LogicalProps{DDL: true, Exclusive: true}}
	})
	r.Register("sg", func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
		return &plan.LogicalOperator{OpName: "sg", Params: params, Children: children, Infer: inferPassThroughSchema}
	})
	r.Register("aggregate", func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
		return &plan.LogicalOperator{OpName: "aggregate", Params: params, Children: children, Infer: inferPassThroughSchema}
	})
	r.Register("join", func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
		return &plan.LogicalOperator{OpName: "join", Params: params, Children: children, Infer: inferFirstChild, Props: plan.LogicalProps{}}
	})
	for _, name := range relationalPassThroughs {
		name := name
		r.Register(name, func(params []plan.Param, children []*plan.LogicalOperator) *plan.LogicalOperator {
			return &plan.LogicalOperator{OpName: name, Params: params, Children: children, Infer: inferFirstChild, Props: plan.LogicalProps{Tile: true}}
		})
	}
}

func inferFirstChild(inputs []*array.Descriptor, _ any) (*array.Descriptor, error) {
	if len(inputs) == 0 {
		return nil, dberr.Newf(dberr.Internal, "engine", "operator has no input to infer schema from")
	}
	return inputs[0], nil
}

func inferPassThroughSchema(inputs []*array.Descriptor, q any) (*array.Descriptor, error) {
	if len(inputs) > 0 {
		return inputs[0], nil
	}
	return nil, dberr.Newf(dberr.Internal, "engine", "operator has no input to infer schema from")
}

// inferInputFor returns an input(name, file) leaf's schema-inference
// function, resolving name against the engine's catalog threaded
// through InferSchema's opaque query argument (a *Context, to avoid
// pkg/plan importing pkg/engine).
func inferInputFor(name string) plan.SchemaInferFn {
	return func(_ []*array.Descriptor, q any) (*array.Descriptor, error) {
		ctx, ok := q.(*Context)
		if !ok || ctx == nil {
			return nil, dberr.Newf(dberr.Internal, "engine", "input %q: no engine context available for schema resolution", name)
		}
		return ctx.Catalog.Lookup(name)
	}
}

// registerBuiltinPhysical wires the named logical operators to their
// physical implementation, the "first registered wins" contract
// optimizer/instantiate.go's Instantiate call consumes.
func registerBuiltinPhysical(r *plan.PhysicalRegistry, cat *Catalog) {
	r.Register("input", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		name := arrayNameParam(l)
		d, err := cat.Lookup(name)
		if err != nil {
			return nil, err
		}
		dist := distro.Distribution{Kind: distro.Undefined}
		if d.Distribution != nil {
			dist = *d.Distribution
		}
		return ops.NewScan(l, dist, boundaryOf(d), widthOf(d)), nil
	})
	r.Register("store", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		return ops.NewStore(l), nil
	})
	r.Register("sg", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		target := distro.Distribution{Kind: distro.RoundRobin}
		return ops.NewSG(target, 8, true), nil
	})
	r.Register("aggregate", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		var call plan.AggregateCall
		for _, p := range l.Params {
			if p.Kind == plan.ParamAggregateCall {
				call = p.Aggregate
				break
			}
		}
		return ops.NewAggregate(call, 8), nil
	})
	r.Register("join", func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
		return ops.NewJoin(8, 8), nil
	})
	for _, name := range relationalPassThroughs {
		r.Register(name, func(l *plan.LogicalOperator) (plan.PhysicalOperator, error) {
			return ops.NewPassThrough(l, 8), nil
		})
	}
}

func arrayNameParam(l *plan.LogicalOperator) string {
	return arrayNameFromParams(l.Params)
}

func arrayNameFromParams(params []plan.Param) string {
	for _, p := range params {
		if p.Kind == plan.ParamArrayName {
			return p.ArrayName
		}
	}
	return ""
}

func boundaryOf(d *array.Descriptor) array.Boundary {
	lo := make([]int64, len(d.Dimensions))
	hi := make([]int64, len(d.Dimensions))
	for i, dim := range d.Dimensions {
		lo[i], hi[i] = dim.Start, dim.EndMax
	}
	return array.Boundary{Lo: lo, Hi: hi}
}

// widthOf estimates bytes-per-cell across every attribute, the metric
// the optimizer's transfer-cost model (spec.md §4.5 step 6) multiplies
// against boundary cell counts.
func widthOf(d *array.Descriptor) float64 {
	var w float64
	for _, a := range d.Attributes {
		if a.Type.IsVariable() {
			w += 32 // matches config.Options.StringSizeEstimate's default
			continue
		}
		w += float64(a.Type.ByteSize())
	}
	return w
}
