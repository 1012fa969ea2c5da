package plan

import (
	"github.com/arraydb/arraydb/pkg/array"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// LogicalProps are the boolean properties a logical operator may declare:
// tile (tile-mode eligible), ddl (schema-mutating), exclusive (requires
// sole access to its target array).
type LogicalProps struct {
	Tile      bool
	DDL       bool
	Exclusive bool
}

// SchemaInferFn infers a logical operator's output schema from its
// inputs' schemas. opaqueQuery is threaded through for operators whose
// inference depends on catalog state (e.g. load/store resolving an array
// name); it is an any to avoid an import cycle with pkg/query.
type SchemaInferFn func(inputs []*array.Descriptor, opaqueQuery any) (*array.Descriptor, error)

// LogicalOperator is a named operator with a parameter list and a
// schema-inference function, per spec.md §4.4. GlobalOp names its
// "global operator" companion (e.g. an aggregate's final phase), nil if
// none.
type LogicalOperator struct {
	OpName   string
	Params   []Param
	Infer    SchemaInferFn
	Props    LogicalProps
	GlobalOp *LogicalOperator
	Children []*LogicalOperator
}

// Name returns the operator's registered name.
func (l *LogicalOperator) Name() string { return l.OpName }

// InferSchema infers this node's output schema, recursing into children
// first.
func (l *LogicalOperator) InferSchema(q any) (*array.Descriptor, error) {
	inputs := make([]*array.Descriptor, len(l.Children))
	for i, c := range l.Children {
		s, err := c.InferSchema(q)
		if err != nil {
			return nil, err
		}
		inputs[i] = s
	}
	if l.Infer == nil {
		return nil, dberr.Newf(dberr.Internal, "plan", "operator %q has no schema-inference function", l.OpName)
	}
	return l.Infer(inputs, q)
}

// LogicalRegistry maps operator names to constructors, used by the
// parser/planner to build a logical tree node by node (the parser itself
// is out of scope; the registry it consumes is not).
type LogicalRegistry struct {
	factories map[string]func(params []Param, children []*LogicalOperator) *LogicalOperator
}

// NewLogicalRegistry returns an empty registry.
func NewLogicalRegistry() *LogicalRegistry {
	return &LogicalRegistry{factories: make(map[string]func([]Param, []*LogicalOperator) *LogicalOperator)}
}

// Register adds a named operator constructor. Call only at startup.
func (r *LogicalRegistry) Register(name string, f func(params []Param, children []*LogicalOperator) *LogicalOperator) {
	r.factories[name] = f
}

// Build constructs a logical node by name.
func (r *LogicalRegistry) Build(name string, params []Param, children []*LogicalOperator) (*LogicalOperator, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, dberr.Newf(dberr.FunctionNotFound, "plan", "no logical operator named %q", name)
	}
	return f(params, children), nil
}
