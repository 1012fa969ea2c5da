package plan

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/plan/distro"
)

// PhysicalOperator carries compiled parameters plus the four analytical
// properties the optimizer consults, per spec.md §4.4.
type PhysicalOperator interface {
	Name() string
	Params() []Param

	// IsDistributionPreserving reports whether this operator's output
	// carries the same distribution as its (single) input.
	IsDistributionPreserving(inputs []distro.Distribution) bool
	// IsChunkPreserving reports whether output chunk boundaries match
	// input chunk boundaries.
	IsChunkPreserving(inputs []bool) bool
	GetOutputDistribution(inputDist []distro.Distribution, inputSchemas []*array.Descriptor) distro.Distribution
	NeedsSpecificDistribution() bool
	GetDistributionRequirement() distro.Requirement
	GetOutputBoundaries(inputBoundaries []array.Boundary, inputSchemas []*array.Descriptor) array.Boundary
	// GetDataWidth estimates bytes per cell flowing through this node.
	GetDataWidth() float64
}

// PhysicalRegistry maps a logical operator name to its registered
// physical implementation(s); the optimizer's instantiation pass "picks
// the first registered physical implementation" per spec.md §4.5 step 2.
type PhysicalRegistry struct {
	impls map[string][]func(l *LogicalOperator) (PhysicalOperator, error)
}

// NewPhysicalRegistry returns an empty registry.
func NewPhysicalRegistry() *PhysicalRegistry {
	return &PhysicalRegistry{impls: make(map[string][]func(*LogicalOperator) (PhysicalOperator, error))}
}

// Register adds a physical implementation factory for the named logical
// operator; multiple registrations for one name are tried in order.
func (r *PhysicalRegistry) Register(logicalName string, f func(l *LogicalOperator) (PhysicalOperator, error)) {
	r.impls[logicalName] = append(r.impls[logicalName], f)
}

// Instantiate tries each registered implementation for l's name in
// registration order, returning the first that does not error.
func (r *PhysicalRegistry) Instantiate(l *LogicalOperator) (PhysicalOperator, error) {
	var lastErr error
	for _, f := range r.impls[l.OpName] {
		op, err := f(l)
		if err == nil {
			return op, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, errNoImpl(l.OpName)
	}
	return nil, lastErr
}
