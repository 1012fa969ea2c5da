package types

import "bytes"

// MissingGroupAbsent is the reserved missing reason meaning "group absent"
// in aggregate states; user-visible missing codes start at 1.
const MissingGroupAbsent uint8 = 0

// Value is a scalar carrying either a non-null payload or a null-with-
// reason code. Nullability is orthogonal to Type: a nullable Value stores
// either Payload or sets Null with a MissingReason.
type Value struct {
	Type    Type
	Null    bool
	Reason  uint8 // valid only when Null
	Payload []byte
}

// NewValue constructs a non-null value, copying payload into arena-owned
// storage when arena is non-nil (callers may construct values in an
// arena as the spec's lifecycle section describes).
func NewValue(t Type, payload []byte, arena *Arena) Value {
	buf := payload
	if arena != nil {
		buf = arena.Alloc(len(payload))
		copy(buf, payload)
	}
	return Value{Type: t, Payload: buf}
}

// NewNull constructs a null value carrying the given missing reason.
func NewNull(t Type, reason uint8) Value {
	return Value{Type: t, Null: true, Reason: reason}
}

// Equals reports structural equality: both null with the same reason, or
// both non-null with identical payload bytes.
func (v Value) Equals(o Value) bool {
	if v.Type.Name != o.Type.Name {
		return false
	}
	if v.Null != o.Null {
		return false
	}
	if v.Null {
		return v.Reason == o.Reason
	}
	return bytes.Equal(v.Payload, o.Payload)
}

// CompareLess establishes a total order within a type: nulls sort before
// non-nulls, and among nulls ties break on reason code; among non-nulls,
// lexicographic byte order (callers needing numeric order must compare the
// decoded scalar, e.g. via a type-specific comparator registered in the
// function catalog).
func (v Value) CompareLess(o Value) bool {
	if v.Null != o.Null {
		return v.Null
	}
	if v.Null {
		return v.Reason < o.Reason
	}
	return bytes.Compare(v.Payload, o.Payload) < 0
}

// Arena is a simple bump allocator values may be constructed in; it backs
// variable-size payload storage that is owned by the value for the
// lifetime of the arena (per-query arenas are torn down with the query).
type Arena struct {
	blocks [][]byte
	cur    []byte
	off    int
}

const arenaBlockSize = 64 * 1024

// Alloc returns an n-byte slice carved from the arena's current block,
// growing the arena with a fresh block when it doesn't fit.
func (a *Arena) Alloc(n int) []byte {
	if n == 0 {
		return nil
	}
	if a.cur == nil || a.off+n > len(a.cur) {
		size := arenaBlockSize
		if n > size {
			size = n
		}
		a.cur = make([]byte, size)
		a.blocks = append(a.blocks, a.cur)
		a.off = 0
	}
	b := a.cur[a.off : a.off+n]
	a.off += n
	return b
}

// Reset releases all blocks; any values constructed against this arena
// become invalid. Called by the query's teardown finalizer.
func (a *Arena) Reset() {
	a.blocks = nil
	a.cur = nil
	a.off = 0
}
