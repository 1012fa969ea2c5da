package array

import (
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// plainChunk is the subset of chunk.Chunk extractData's fast path needs
// to detect: no overlap, no empty-bitmap, not nullable, dense payload.
type plainChunk interface {
	chunk.Chunk
	PlainBytes() ([]byte, bool)
}

// ExtractData copies a dense rectangular region of attr into buf,
// starting at lo (which must be chunk-aligned) through hi. Preconditions
// per spec.md §4.3: attr's type is fixed-width, non-variable, and at
// least one byte wide; lo is chunk-aligned in every dimension. For each
// chunk intersecting the box, a plain chunk (no overlap, no empty-bitmap,
// non-nullable, dense) is copied with a strided memcpy; otherwise cells
// are placed one at a time by linearized offset.
func ExtractData(it ConstArrayIterator, attr Attribute, buf []byte, lo, hi []int64) error {
	if attr.Type.IsVariable() {
		return dberr.New(dberr.ParameterTypeError, "array", "extractData: attribute must be fixed-width")
	}
	w := attr.Type.ByteSize()
	if w < 1 {
		return dberr.New(dberr.ParameterTypeError, "array", "extractData: attribute must be >= 1 byte wide")
	}
	if err := it.Reset(); err != nil {
		return err
	}
	for !it.End() {
		pos := it.GetPosition()
		if !inBox(pos, lo, hi) {
			if err := it.Next(); err != nil {
				return err
			}
			continue
		}
		ch, err := it.GetChunk()
		if err != nil {
			return err
		}
		plainOK := false
		if pc, ok := ch.(plainChunk); ok {
			if raw, plain := pc.PlainBytes(); plain {
				copyPlain(buf, raw, ch, lo, hi, w)
				plainOK = true
			}
		}
		if !plainOK {
			if err := copyByIteration(buf, ch, lo, hi, w); err != nil {
				return err
			}
		}
		if err := it.Next(); err != nil {
			return err
		}
	}
	return nil
}

// copyPlain strided-memcpys a plain chunk's contiguous bytes into buf at
// the linearized offset each source cell's position implies within the
// requested box.
func copyPlain(buf, raw []byte, ch chunk.Chunk, boxLo, boxHi []int64, w int) {
	clo, chi := ch.Bounds()
	n := boxCellCount(clo, chi)
	for off := int64(0); off < n; off++ {
		pos := delinearize(off, clo, chi)
		if !inBox(pos, boxLo, boxHi) {
			continue
		}
		dst := linearize(pos, boxLo, boxHi) * int64(w)
		copy(buf[dst:dst+int64(w)], raw[off*int64(w):off*int64(w)+int64(w)])
	}
}

func copyByIteration(buf []byte, ch chunk.Chunk, boxLo, boxHi []int64, w int) error {
	rit, err := ch.NewIterator(chunk.IgnoreEmptyCells)
	if err != nil {
		return err
	}
	for !rit.End() {
		pos := rit.GetPosition()
		if inBox(pos, boxLo, boxHi) {
			dst := linearize(pos, boxLo, boxHi) * int64(w)
			v := rit.GetItem()
			if !v.Null {
				copy(buf[dst:dst+int64(w)], v.Payload)
			}
		}
		rit.Next()
	}
	return nil
}

func boxCellCount(lo, hi []int64) int64 {
	n := int64(1)
	for i := range lo {
		n *= hi[i] - lo[i] + 1
	}
	return n
}

func inBox(c, lo, hi []int64) bool {
	for i := range c {
		if c[i] < lo[i] || c[i] > hi[i] {
			return false
		}
	}
	return true
}

func linearize(c, lo, hi []int64) int64 {
	off := int64(0)
	for i := range c {
		size := hi[i] - lo[i] + 1
		off = off*size + (c[i] - lo[i])
	}
	return off
}

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
