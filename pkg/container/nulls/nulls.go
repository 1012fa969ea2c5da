// Package nulls wraps a roaring bitmap to back both the empty-bitmap
// attribute of an array and the per-chunk null bitmap of a nullable
// attribute, matching the reference corpus's own null-tracking package.
package nulls

import "github.com/RoaringBitmap/roaring"

// Bitmap marks a set of cell offsets within a chunk as null (or, when used
// as an empty-bitmap, as present).
type Bitmap struct {
	bm *roaring.Bitmap
}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{bm: roaring.New()}
}

// Add marks offset i.
func (b *Bitmap) Add(i uint32) { b.bm.Add(i) }

// Remove clears offset i.
func (b *Bitmap) Remove(i uint32) { b.bm.Remove(i) }

// Contains reports whether offset i is marked.
func (b *Bitmap) Contains(i uint32) bool { return b.bm.Contains(i) }

// Count returns the number of marked offsets.
func (b *Bitmap) Count() int { return int(b.bm.GetCardinality()) }

// Or merges other into b in place, used for bitwise-or chunk merges.
func (b *Bitmap) Or(other *Bitmap) { b.bm.Or(other.bm) }

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap { return &Bitmap{bm: b.bm.Clone()} }

// ToArray returns the sorted set of marked offsets.
func (b *Bitmap) ToArray() []uint32 { return b.bm.ToArray() }

// MarshalBinary encodes the bitmap for chunk serialization.
func (b *Bitmap) MarshalBinary() ([]byte, error) { return b.bm.ToBytes() }

// UnmarshalBinary decodes a bitmap previously produced by MarshalBinary.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	b.bm = roaring.New()
	return b.bm.UnmarshalBinary(data)
}

// Iterator returns the ascending iterator over marked offsets.
func (b *Bitmap) Iterator() roaring.IntPeekable { return b.bm.Iterator() }
