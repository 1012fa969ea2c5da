// Package chunk implements logical chunk identity, the three physical
// encodings (dense, sparse, RLE), and the uniform bidirectional iterator
// protocol over a chunk's cells.
package chunk

import (
	"encoding/binary"

	"github.com/arraydb/arraydb/pkg/container/nulls"
	"github.com/arraydb/arraydb/pkg/container/types"
)

// Address identifies a chunk: the array, the attribute within it, and the
// chunk-aligned coordinate of its first cell (without overlap).
type Address struct {
	ArrayID     int64
	AttributeID int64
	Position    []int64
}

// Equal reports whether two addresses name the same chunk.
func (a Address) Equal(o Address) bool {
	if a.ArrayID != o.ArrayID || a.AttributeID != o.AttributeID || len(a.Position) != len(o.Position) {
		return false
	}
	for i := range a.Position {
		if a.Position[i] != o.Position[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical, comparable string encoding of the address,
// for use as a map key in the materialization cache and the spill store
// (Address itself is not comparable: Position is a slice).
func (a Address) Key() string {
	b := make([]byte, 16+8*len(a.Position))
	binary.LittleEndian.PutUint64(b[0:8], uint64(a.ArrayID))
	binary.LittleEndian.PutUint64(b[8:16], uint64(a.AttributeID))
	for i, p := range a.Position {
		binary.LittleEndian.PutUint64(b[16+8*i:24+8*i], uint64(p))
	}
	return string(b)
}

// Encoding names a chunk's physical payload layout. Once materialized,
// a chunk's encoding is immutable; the materialization cache may hold a
// re-encoded copy but never mutates the original.
type Encoding int

const (
	Dense Encoding = iota
	Sparse
	RLE
)

func (e Encoding) String() string {
	switch e {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	case RLE:
		return "rle"
	default:
		return "unknown"
	}
}

// Chunk is addressed by (arrayId, attributeId, chunkPosition) and carries
// first/last position with and without overlap, an encoded payload, a
// compression method, and a cached element count.
type Chunk interface {
	Addr() Address
	Encoding() Encoding
	// Bounds returns the chunk's bounding box without overlap.
	Bounds() (lo, hi []int64)
	// BoundsWithOverlap returns the bounding box including the overlap
	// halo.
	BoundsWithOverlap() (lo, hi []int64)
	Attribute() AttrInfo
	Count() int
	Compression() string
	NewIterator(mode Mode) (Iterator, error)
	NewWriteIterator(mode Mode) (WriteIterator, error)
	// ReadOnly reports whether this chunk has been flushed and sealed;
	// write iterators refuse to open against a read-only chunk.
	ReadOnly() bool
}

// AttrInfo is the subset of an attribute's descriptor a chunk needs to
// interpret its payload, decoupling the chunk package from pkg/array.
type AttrInfo struct {
	Type          types.Type
	Nullable      bool
	Default       types.Value
	IsEmptyBitmap bool
}

// emptyBitmapHolder is implemented by a chunk that carries its companion
// presence bitmap inline (Dense does; Sparse tracks presence implicitly via
// its offset table, RLE via the gaps between its segments).
type emptyBitmapHolder interface {
	EmptyBitmap() *nulls.Bitmap
}
