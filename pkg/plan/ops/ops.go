// Package ops implements the physical operators the optimizer's pipeline
// is grounded against: scan, store, scatter/gather, repartition,
// aggregate + its distributed reducer, materialize, the storing-SG
// fusion, and a generic pass-through standing in for the relational-
// style operator bodies spec.md §1 names as external collaborators (only
// their distribution/chunk-preservation/boundary/width contract is in
// scope).
package ops

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/plan"
	"github.com/arraydb/arraydb/pkg/plan/distro"
)

// base holds the parts every physical operator shares: its registered
// name and compiled parameter list.
type base struct {
	name   string
	params []plan.Param
}

func (b base) Name() string        { return b.name }
func (b base) Params() []plan.Param { return b.params }

// Scan is the leaf operator reading one array's stored chunks.
type Scan struct {
	base
	ArrayDist distro.Distribution
	Bounds    array.Boundary
	Width     float64
}

func NewScan(l *plan.LogicalOperator, dist distro.Distribution, bounds array.Boundary, width float64) *Scan {
	return &Scan{base: base{name: "scan", params: l.Params}, ArrayDist: dist, Bounds: bounds, Width: width}
}

func (s *Scan) IsDistributionPreserving([]distro.Distribution) bool { return true }
func (s *Scan) IsChunkPreserving([]bool) bool                       { return true }
func (s *Scan) GetOutputDistribution([]distro.Distribution, []*array.Descriptor) distro.Distribution {
	return s.ArrayDist
}
func (s *Scan) NeedsSpecificDistribution() bool { return false }
func (s *Scan) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (s *Scan) GetOutputBoundaries([]array.Boundary, []*array.Descriptor) array.Boundary { return s.Bounds }
func (s *Scan) GetDataWidth() float64                                                    { return s.Width }

// Store writes its input into a named persistent array, preserving
// whatever distribution and chunking its input presents.
type Store struct {
	base
	ArrayName string
}

func NewStore(l *plan.LogicalOperator) *Store {
	s := &Store{base: base{name: "store", params: l.Params}}
	for _, p := range l.Params {
		if p.Kind == plan.ParamArrayName {
			s.ArrayName = p.ArrayName
			break
		}
	}
	return s
}

func (s *Store) IsDistributionPreserving([]distro.Distribution) bool { return true }
func (s *Store) IsChunkPreserving(inputs []bool) bool {
	return len(inputs) > 0 && inputs[0]
}
func (s *Store) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{Kind: distro.Undefined}
}
func (s *Store) NeedsSpecificDistribution() bool { return false }
func (s *Store) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (s *Store) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (s *Store) GetDataWidth() float64 { return 0 }

// SG is the scatter/gather data-movement operator: it rearranges chunks
// across instances to realize Target, and is never distribution- or
// chunk-preserving.
type SG struct {
	base
	Target  distro.Distribution
	InWidth float64
	// Frozen marks a user-inserted SG the optimizer's collapse/rewrite
	// passes must not touch (spec.md §4.5 "SG nodes are flagged movable
	// iff the optimizer inserted them; user-inserted SGs are frozen").
	Frozen bool
}

func NewSG(target distro.Distribution, width float64, frozen bool) *SG {
	return &SG{base: base{name: "sg"}, Target: target, InWidth: width, Frozen: frozen}
}

func (s *SG) IsDistributionPreserving([]distro.Distribution) bool { return false }
func (s *SG) IsChunkPreserving([]bool) bool                       { return false }
func (s *SG) GetOutputDistribution([]distro.Distribution, []*array.Descriptor) distro.Distribution {
	return s.Target
}
func (s *SG) NeedsSpecificDistribution() bool { return true }
func (s *SG) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (s *SG) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (s *SG) GetDataWidth() float64 { return s.InWidth }

// StoringSG fuses store(sg(chunkPreservingChild)) into one pass, per
// spec.md §4.5 step 9.
type StoringSG struct {
	base
	ArrayName string
	Target    distro.Distribution
	InWidth   float64
}

func NewStoringSG(arrayName string, target distro.Distribution, width float64) *StoringSG {
	return &StoringSG{base: base{name: "storingSg"}, ArrayName: arrayName, Target: target, InWidth: width}
}

func (s *StoringSG) IsDistributionPreserving([]distro.Distribution) bool { return false }
func (s *StoringSG) IsChunkPreserving(inputs []bool) bool {
	return len(inputs) > 0 && inputs[0]
}
func (s *StoringSG) GetOutputDistribution([]distro.Distribution, []*array.Descriptor) distro.Distribution {
	return s.Target
}
func (s *StoringSG) NeedsSpecificDistribution() bool { return true }
func (s *StoringSG) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (s *StoringSG) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (s *StoringSG) GetDataWidth() float64 { return s.InWidth }

// Repart rewrites chunk boundaries to TargetSchema's chunking while
// preserving distribution.
type Repart struct {
	base
	TargetSchema *array.Descriptor
	InWidth      float64
}

func NewRepart(target *array.Descriptor, width float64) *Repart {
	return &Repart{base: base{name: "repart"}, TargetSchema: target, InWidth: width}
}

func (r *Repart) IsDistributionPreserving([]distro.Distribution) bool { return true }
func (r *Repart) IsChunkPreserving([]bool) bool                       { return false }
func (r *Repart) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{}
}
func (r *Repart) NeedsSpecificDistribution() bool { return false }
func (r *Repart) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (r *Repart) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (r *Repart) GetDataWidth() float64 { return r.InWidth }

// RequiresRepart reports whether childSchema's chunking differs from
// targetSchema's, the predicate spec.md §4.5 step 3 inserts a Repart
// node for.
func RequiresRepart(childSchema, targetSchema *array.Descriptor) bool {
	if childSchema == nil || targetSchema == nil || len(childSchema.Dimensions) != len(targetSchema.Dimensions) {
		return false
	}
	for i := range childSchema.Dimensions {
		if childSchema.Dimensions[i].ChunkInterval != targetSchema.Dimensions[i].ChunkInterval ||
			childSchema.Dimensions[i].ChunkOverlap != targetSchema.Dimensions[i].ChunkOverlap {
			return true
		}
	}
	return false
}

// Materialize re-encodes a tile-mode/non-tile-mode boundary crossing into
// a concrete chunk, per spec.md §4.5 step 8; it preserves both
// distribution and chunk boundaries.
type Materialize struct {
	base
	Encoding string
	InWidth  float64
}

func NewMaterialize(encoding string, width float64) *Materialize {
	return &Materialize{base: base{name: "materialize"}, Encoding: encoding, InWidth: width}
}

func (m *Materialize) IsDistributionPreserving([]distro.Distribution) bool { return true }
func (m *Materialize) IsChunkPreserving([]bool) bool                      { return true }
func (m *Materialize) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{}
}
func (m *Materialize) NeedsSpecificDistribution() bool { return false }
func (m *Materialize) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (m *Materialize) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (m *Materialize) GetDataWidth() float64 { return m.InWidth }

// Aggregate groups by the remaining dimensions and applies Call, the
// first of a possibly-two-phase aggregate (its GlobalOp companion is the
// reduce-then-finalize second phase).
type Aggregate struct {
	base
	Call    plan.AggregateCall
	InWidth float64
}

func NewAggregate(call plan.AggregateCall, width float64) *Aggregate {
	return &Aggregate{base: base{name: "aggregate"}, Call: call, InWidth: width}
}

func (a *Aggregate) IsDistributionPreserving([]distro.Distribution) bool { return false }
func (a *Aggregate) IsChunkPreserving([]bool) bool                      { return false }
func (a *Aggregate) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{}
}
func (a *Aggregate) NeedsSpecificDistribution() bool { return false }
func (a *Aggregate) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (a *Aggregate) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (a *Aggregate) GetDataWidth() float64 { return 8 } // aggregate states are fixed-width scalars

// ReduceDistro is inserted between a replicated aggregate input and the
// aggregate node so the second phase sees each group's state exactly
// once, per spec.md §4.5 step 7.
type ReduceDistro struct {
	base
	Target  distro.Distribution
	InWidth float64
}

func NewReduceDistro(target distro.Distribution, width float64) *ReduceDistro {
	return &ReduceDistro{base: base{name: "reduce_distro"}, Target: target, InWidth: width}
}

func (r *ReduceDistro) IsDistributionPreserving([]distro.Distribution) bool { return false }
func (r *ReduceDistro) IsChunkPreserving([]bool) bool                      { return false }
func (r *ReduceDistro) GetOutputDistribution([]distro.Distribution, []*array.Descriptor) distro.Distribution {
	return r.Target
}
func (r *ReduceDistro) NeedsSpecificDistribution() bool { return true }
func (r *ReduceDistro) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (r *ReduceDistro) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (r *ReduceDistro) GetDataWidth() float64 { return r.InWidth }

// PassThrough stands in for the relational-style operator bodies
// (apply/filter/etc.) spec.md §1 names as external collaborators whose
// body is out of scope: it is distribution- and chunk-preserving,
// requiring any distribution of its single input.
type PassThrough struct {
	base
	InWidth float64
}

func NewPassThrough(l *plan.LogicalOperator, width float64) *PassThrough {
	return &PassThrough{base: base{name: l.OpName, params: l.Params}, InWidth: width}
}

func (p *PassThrough) IsDistributionPreserving([]distro.Distribution) bool { return true }
func (p *PassThrough) IsChunkPreserving(inputs []bool) bool {
	return len(inputs) > 0 && inputs[0]
}
func (p *PassThrough) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{}
}
func (p *PassThrough) NeedsSpecificDistribution() bool { return false }
func (p *PassThrough) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireAny}
}
func (p *PassThrough) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) > 0 {
		return in[0]
	}
	return array.Boundary{}
}
func (p *PassThrough) GetDataWidth() float64 { return p.InWidth }

// Join is a Collocated-binary operator standing in for join/concat-style
// n-ary operators requiring matching distributions on every input.
type Join struct {
	base
	LeftWidth, RightWidth float64
}

func NewJoin(leftWidth, rightWidth float64) *Join {
	return &Join{base: base{name: "join"}, LeftWidth: leftWidth, RightWidth: rightWidth}
}

func (j *Join) IsDistributionPreserving([]distro.Distribution) bool { return false }
func (j *Join) IsChunkPreserving([]bool) bool                      { return false }
func (j *Join) GetOutputDistribution(in []distro.Distribution, _ []*array.Descriptor) distro.Distribution {
	if len(in) > 0 {
		return in[0]
	}
	return distro.Distribution{}
}
func (j *Join) NeedsSpecificDistribution() bool { return true }
func (j *Join) GetDistributionRequirement() distro.Requirement {
	return distro.Requirement{Kind: distro.RequireCollocated}
}
func (j *Join) GetOutputBoundaries(in []array.Boundary, _ []*array.Descriptor) array.Boundary {
	if len(in) == 0 {
		return array.Boundary{}
	}
	b := in[0]
	for _, o := range in[1:] {
		b = b.Union(o)
	}
	return b
}
func (j *Join) GetDataWidth() float64 { return j.LeftWidth + j.RightWidth }
