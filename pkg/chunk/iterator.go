package chunk

import "github.com/arraydb/arraydb/pkg/container/types"

// Iterator is the bidirectional read contract every encoding's chunk
// honors. reset() places the iterator before the first visible cell;
// end() is true iff no more visible cells remain; ++ (Next) advances
// honoring the iterator's Mode flags; setPosition seeks directly.
type Iterator interface {
	Reset()
	End() bool
	Next()
	SetPosition(c []int64) bool
	GetPosition() []int64
	// GetItem returns a reference valid until the next mutation of the
	// iterator.
	GetItem() types.Value
}

// WriteIterator additionally allows writing the current cell and flushing
// the chunk. Flush is idempotent; once it returns, the chunk is readable
// by fresh iterators.
type WriteIterator interface {
	Iterator
	WriteItem(v types.Value) error
	Flush() error
}

// visible applies the mode's visibility predicate: a cell within range is
// visible unless excluded by IgnoreEmptyCells (no empty-bitmap bit set),
// IgnoreNullValues (value is null), or IgnoreDefaultValues (value equals
// the attribute default).
func visible(mode Mode, present, isNull bool, isDefault bool) bool {
	if mode.has(IgnoreEmptyCells) && !present {
		return false
	}
	if mode.has(IgnoreNullValues) && isNull {
		return false
	}
	if mode.has(IgnoreDefaultValues) && isDefault {
		return false
	}
	return true
}

// linearize maps a coordinate within [lo,hi] to a row-major offset.
func linearize(c, lo, hi []int64) int64 {
	off := int64(0)
	for i := range c {
		size := hi[i] - lo[i] + 1
		off = off*size + (c[i] - lo[i])
	}
	return off
}

// delinearize is the inverse of linearize given the box shape.
func delinearize(off int64, lo, hi []int64) []int64 {
	n := len(lo)
	c := make([]int64, n)
	sizes := make([]int64, n)
	for i := 0; i < n; i++ {
		sizes[i] = hi[i] - lo[i] + 1
	}
	for i := n - 1; i >= 0; i-- {
		c[i] = lo[i] + off%sizes[i]
		off /= sizes[i]
	}
	return c
}

func inBox(c, lo, hi []int64) bool {
	for i := range c {
		if c[i] < lo[i] || c[i] > hi[i] {
			return false
		}
	}
	return true
}
