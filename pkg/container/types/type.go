// Package types implements the engine's scalar type and value system:
// typed, nullable values with a "missing reason" code, and a registry
// mapping type identifiers to byte widths.
package types

import "sync"

// Type is a registered type identifier: a name, a bit-size (0 meaning
// variable-size), and an optional fixed byte width. A bit-size of 1 denotes
// a packed boolean.
type Type struct {
	Name    string
	BitSize int
	Width   int // byte width when fixed-size; 0 when Variable
}

// IsVariable reports whether values of this type have variable size.
func (t Type) IsVariable() bool { return t.BitSize == 0 }

// IsBool reports whether this type is the packed 1-bit boolean.
func (t Type) IsBool() bool { return t.BitSize == 1 }

// ByteSize returns the storage width in bytes of a single non-null value
// of this type, rounding a packed bit-size up to whole bytes. Variable
// types return 0; callers must consult the value's own length.
func (t Type) ByteSize() int {
	if t.IsVariable() {
		return 0
	}
	if t.Width > 0 {
		return t.Width
	}
	return (t.BitSize + 7) / 8
}

// Registry maps type identifiers to their Type descriptor. One Registry is
// created at engine startup and never mutated after the first query, per
// the "global singletons" design note; callers thread it through an
// explicit context rather than via a package-level variable.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a Registry pre-populated with the built-in scalar
// types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]Type)}
	for _, t := range builtins {
		r.types[t.Name] = t
	}
	return r
}

var builtins = []Type{
	{Name: "bool", BitSize: 1},
	{Name: "int8", BitSize: 8, Width: 1},
	{Name: "uint8", BitSize: 8, Width: 1},
	{Name: "int16", BitSize: 16, Width: 2},
	{Name: "uint16", BitSize: 16, Width: 2},
	{Name: "int32", BitSize: 32, Width: 4},
	{Name: "uint32", BitSize: 32, Width: 4},
	{Name: "int64", BitSize: 64, Width: 8},
	{Name: "uint64", BitSize: 64, Width: 8},
	{Name: "float32", BitSize: 32, Width: 4},
	{Name: "float64", BitSize: 64, Width: 8},
	{Name: "string", BitSize: 0},
	{Name: "binary", BitSize: 0},
}

// Register adds or overwrites a type descriptor. Call only during engine
// startup.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = t
}

// Lookup resolves a type name to its descriptor.
func (r *Registry) Lookup(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// TypeOf is a convenience returning the Type for a name, or the zero Type
// if unregistered.
func (r *Registry) TypeOf(name string) Type {
	t, _ := r.Lookup(name)
	return t
}
