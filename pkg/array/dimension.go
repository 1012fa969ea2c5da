// Package array implements the multidimensional array abstraction: the
// dimension space, attribute list, array descriptor, logical boundaries,
// version chains, and the delegate/transform iterators that implement
// operators over an underlying array.
package array

import "github.com/arraydb/arraydb/pkg/dberr"

// Dimension is a named integer axis with a chunking scheme: chunks are
// aligned to start + k*ChunkInterval, and adjacent chunks share a halo of
// ChunkOverlap cells on each side.
type Dimension struct {
	Name          string
	Start         int64
	EndMax        int64
	ChunkInterval int64
	ChunkOverlap  int64
}

// Validate enforces ChunkInterval > 0 and 0 <= ChunkOverlap < ChunkInterval.
func (d Dimension) Validate() error {
	if d.ChunkInterval <= 0 {
		return dberr.Newf(dberr.WrongDimensionality, "array", "dimension %q: chunkInterval must be > 0", d.Name)
	}
	if d.ChunkOverlap < 0 || d.ChunkOverlap >= d.ChunkInterval {
		return dberr.Newf(dberr.WrongDimensionality, "array", "dimension %q: chunkOverlap must be in [0, chunkInterval)", d.Name)
	}
	return nil
}

// ChunkPosition returns the chunk-aligned coordinate containing logical
// coordinate c: the largest start + k*ChunkInterval <= c.
func (d Dimension) ChunkPosition(c int64) int64 {
	k := (c - d.Start) / d.ChunkInterval
	if (c-d.Start)%d.ChunkInterval < 0 {
		k--
	}
	return d.Start + k*d.ChunkInterval
}

// ChunkBounds returns [lo, hi] of the chunk starting at pos, without
// overlap.
func (d Dimension) ChunkBounds(pos int64) (lo, hi int64) {
	lo = pos
	hi = pos + d.ChunkInterval - 1
	if hi > d.EndMax {
		hi = d.EndMax
	}
	return
}

// ChunkBoundsWithOverlap returns [lo, hi] of the chunk starting at pos,
// expanded by ChunkOverlap on both sides and clamped to [Start, EndMax].
func (d Dimension) ChunkBoundsWithOverlap(pos int64) (lo, hi int64) {
	lo, hi = d.ChunkBounds(pos)
	lo -= d.ChunkOverlap
	hi += d.ChunkOverlap
	if lo < d.Start {
		lo = d.Start
	}
	if hi > d.EndMax {
		hi = d.EndMax
	}
	return
}
