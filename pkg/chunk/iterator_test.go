package chunk

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/arraydb/arraydb/pkg/container/types"
)

// TestDenseIteratorTotalityOverFullBox is the iterator totality property:
// with no visibility filter applied, walking a dense chunk's iterator from
// Reset to End visits every coordinate in its box exactly once.
func TestDenseIteratorTotalityOverFullBox(t *testing.T) {
	convey.Convey("an unfiltered dense iterator visits every cell in its box exactly once", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 1, Position: []int64{0, 0}}
		c := NewDenseChunk(addr, int64Attr, []int64{0, 0}, []int64{2, 2}, []int64{0, 0}, []int64{2, 2}, "none")

		it, err := c.NewIterator(0)
		convey.So(err, convey.ShouldBeNil)

		seen := map[[2]int64]bool{}
		for !it.End() {
			pos := it.GetPosition()
			seen[[2]int64{pos[0], pos[1]}] = true
			it.Next()
		}
		convey.So(len(seen), convey.ShouldEqual, 9)
		for x := int64(0); x <= 2; x++ {
			for y := int64(0); y <= 2; y++ {
				convey.So(seen[[2]int64{x, y}], convey.ShouldBeTrue)
			}
		}
	})
}

// TestDenseIteratorRoundTripScenario is scenario S1: write a chunk's cells
// through a write iterator, flush, open a fresh read iterator, and confirm
// the (position, value) multiset read back matches what was written.
func TestDenseIteratorRoundTripScenario(t *testing.T) {
	convey.Convey("values written via a write iterator read back identically after flush", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 2, Position: []int64{0}}
		attr := AttrInfo{Type: int64Attr.Type, IsEmptyBitmap: true}
		c := NewDenseChunk(addr, attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")

		written := map[int64]int64{0: 10, 3: 13, 7: 17, 9: 19}
		w, err := c.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		for pos, v := range written {
			convey.So(w.SetPosition([]int64{pos}), convey.ShouldBeTrue)
			convey.So(w.WriteItem(int64Value(v)), convey.ShouldBeNil)
		}
		convey.So(w.Flush(), convey.ShouldBeNil)

		r, err := c.NewIterator(IgnoreEmptyCells)
		convey.So(err, convey.ShouldBeNil)
		got := map[int64]int64{}
		for !r.End() {
			got[r.GetPosition()[0]] = decodeInt64Value(r.GetItem())
			r.Next()
		}
		convey.So(got, convey.ShouldResemble, written)
	})
}

// TestSparseChunkPromotesToDenseOnFlush is scenario S2: a sparse chunk whose
// occupancy exceeds DenseThreshold on Flush rewrites itself as an
// equivalent dense chunk, and a post-promotion read under IgnoreEmptyCells
// sees exactly the cells that were written, nothing more.
func TestSparseChunkPromotesToDenseOnFlush(t *testing.T) {
	convey.Convey("a densely populated sparse chunk promotes on flush and reads back identically", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 3, Position: []int64{0, 0}}
		attr := AttrInfo{Type: int64Attr.Type, IsEmptyBitmap: true}
		lo, hi := []int64{0, 0}, []int64{31, 31}
		c := NewSparseChunk(addr, attr, lo, hi, lo, hi, "none", 900, 0.5)

		w, err := c.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		written := map[[2]int64]int64{}
		for off := int64(0); off < 900; off++ {
			pos := delinearize(off, lo, hi)
			convey.So(w.SetPosition(pos), convey.ShouldBeTrue)
			v := off * 7
			convey.So(w.WriteItem(int64Value(v)), convey.ShouldBeNil)
			written[[2]int64{pos[0], pos[1]}] = v
		}
		convey.So(w.Flush(), convey.ShouldBeNil)

		convey.So(c.IsSparse(), convey.ShouldBeFalse)
		convey.So(c.Encoding(), convey.ShouldEqual, Dense)
		convey.So(c.Count(), convey.ShouldEqual, 900)

		r, err := c.NewIterator(IgnoreEmptyCells)
		convey.So(err, convey.ShouldBeNil)
		got := map[[2]int64]int64{}
		for !r.End() {
			pos := r.GetPosition()
			got[[2]int64{pos[0], pos[1]}] = decodeInt64Value(r.GetItem())
			r.Next()
		}
		convey.So(got, convey.ShouldResemble, written)
	})
}

// TestSparseIteratorSetPositionOnNullEntry confirms SetPosition seeks onto
// a present-but-null sparse entry and GetItem reports it null afterward.
func TestSparseIteratorSetPositionOnNullEntry(t *testing.T) {
	convey.Convey("SetPosition on a sparse read iterator lands on a present null entry", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 4, Position: []int64{0}}
		attr := AttrInfo{Type: int64Attr.Type, Nullable: true}
		c := NewSparseChunk(addr, attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none", 4, 1.0)

		w, err := c.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(w.SetPosition([]int64{2}), convey.ShouldBeTrue)
		convey.So(w.WriteItem(types.NewNull(attr.Type, 1)), convey.ShouldBeNil)
		convey.So(w.Flush(), convey.ShouldBeNil)

		r, err := c.NewIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.SetPosition([]int64{2}), convey.ShouldBeTrue)
		convey.So(r.GetItem().Null, convey.ShouldBeTrue)
	})
}
