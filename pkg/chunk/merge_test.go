package chunk

import (
	"encoding/binary"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/arraydb/arraydb/pkg/container/types"
)

func int64Value(n int64) types.Value {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(n))
	return types.Value{Type: types.Type{Name: "int64", BitSize: 64, Width: 8}, Payload: b}
}

func decodeInt64Value(v types.Value) int64 {
	return int64(binary.LittleEndian.Uint64(v.Payload))
}

func TestMergeBitwiseOrChunks(t *testing.T) {
	convey.Convey("OR-merging two disjointly-populated variable-width chunks unions their cells", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 1, Position: []int64{0}}
		attr := AttrInfo{Type: types.Type{Name: "binary", BitSize: 0}, IsEmptyBitmap: true}

		a := NewDenseChunk(addr, attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wa, err := a.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		for _, p := range []struct{ pos int64; payload byte }{{0, 1}, {2, 2}, {4, 3}} {
			convey.So(wa.SetPosition([]int64{p.pos}), convey.ShouldBeTrue)
			convey.So(wa.WriteItem(types.Value{Type: attr.Type, Payload: []byte{p.payload}}), convey.ShouldBeNil)
		}

		b := NewDenseChunk(addr, attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wb, err := b.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		for _, p := range []struct{ pos int64; payload byte }{{1, 10}, {3, 11}, {5, 12}} {
			convey.So(wb.SetPosition([]int64{p.pos}), convey.ShouldBeTrue)
			convey.So(wb.WriteItem(types.Value{Type: attr.Type, Payload: []byte{p.payload}}), convey.ShouldBeNil)
		}

		merged, err := MergeBitwiseOrChunks(a, b)
		convey.So(err, convey.ShouldBeNil)
		convey.So(merged.Count(), convey.ShouldEqual, 6)

		it, err := merged.NewIterator(IgnoreEmptyCells)
		convey.So(err, convey.ShouldBeNil)
		got := map[int64]byte{}
		for !it.End() {
			got[it.GetPosition()[0]] = it.GetItem().Payload[0]
			it.Next()
		}
		convey.So(got, convey.ShouldResemble, map[int64]byte{0: 1, 1: 10, 2: 2, 3: 11, 4: 3, 5: 12})
	})
}

func TestMergeCellwise(t *testing.T) {
	convey.Convey("cellwise-merging a chunk into another writes new cells and lets the source win conflicts", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 2, Position: []int64{0}}
		int64Attr := AttrInfo{Type: types.Type{Name: "int64", BitSize: 64, Width: 8}}
		srcAttr := AttrInfo{Type: int64Attr.Type, IsEmptyBitmap: true}

		dst := NewDenseChunk(addr, int64Attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wDst, err := dst.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(wDst.WriteItem(int64Value(100)), convey.ShouldBeNil)

		src := NewDenseChunk(addr, srcAttr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wSrc, err := src.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(wSrc.SetPosition([]int64{0}), convey.ShouldBeTrue) // conflicts with dst's existing cell
		convey.So(wSrc.WriteItem(int64Value(999)), convey.ShouldBeNil)
		convey.So(wSrc.SetPosition([]int64{5}), convey.ShouldBeTrue) // new cell
		convey.So(wSrc.WriteItem(int64Value(55)), convey.ShouldBeNil)

		srcIt, err := src.NewIterator(IgnoreEmptyCells)
		convey.So(err, convey.ShouldBeNil)
		convey.So(MergeCellwise(wDst, srcIt, nil), convey.ShouldBeNil)

		read, err := dst.NewIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(read.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(decodeInt64Value(read.GetItem()), convey.ShouldEqual, int64(999))
		convey.So(read.SetPosition([]int64{5}), convey.ShouldBeTrue)
		convey.So(decodeInt64Value(read.GetItem()), convey.ShouldEqual, int64(55))
	})

	convey.Convey("a synthetic coordinate resolver extends the position instead of overwriting on conflict", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 2, Position: []int64{0}}
		int64Attr := AttrInfo{Type: types.Type{Name: "int64", BitSize: 64, Width: 8}}
		srcAttr := AttrInfo{Type: int64Attr.Type, IsEmptyBitmap: true}

		dst := NewDenseChunk(addr, int64Attr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wDst, err := dst.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(wDst.WriteItem(int64Value(7)), convey.ShouldBeNil)

		src := NewDenseChunk(addr, srcAttr, []int64{0}, []int64{9}, []int64{0}, []int64{9}, "none")
		wSrc, err := src.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(wSrc.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(wSrc.WriteItem(int64Value(8)), convey.ShouldBeNil)

		srcIt, err := src.NewIterator(IgnoreEmptyCells)
		convey.So(err, convey.ShouldBeNil)
		convey.So(MergeCellwise(wDst, srcIt, NewSyntheticCoord(0)), convey.ShouldBeNil)

		read, err := dst.NewIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(read.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(decodeInt64Value(read.GetItem()), convey.ShouldEqual, int64(7)) // untouched
		convey.So(read.SetPosition([]int64{1}), convey.ShouldBeTrue)
		convey.So(decodeInt64Value(read.GetItem()), convey.ShouldEqual, int64(8)) // extended here
	})
}

// sumAgg is a minimal chunk.Aggregate that sums int64 states, used to
// exercise aggregate-merge associativity without depending on any
// registered catalog aggregate.
type sumAgg struct{}

func (sumAgg) Merge(dst, src types.Value) (types.Value, error) {
	return int64Value(decodeInt64Value(dst) + decodeInt64Value(src)), nil
}

func singleCellChunk(addr Address, attr AttrInfo, v int64) *DenseChunk {
	c := NewDenseChunk(addr, attr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
	w, _ := c.NewWriteIterator(0)
	_ = w.SetPosition([]int64{0})
	_ = w.WriteItem(int64Value(v))
	return c
}

func TestMergeAggregateCells(t *testing.T) {
	convey.Convey("merging a single source into a fresh accumulator installs its value unchanged", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 3, Position: []int64{0}}
		attr := AttrInfo{Type: types.Type{Name: "int64", BitSize: 64, Width: 8}, Nullable: true}

		dst := NewDenseChunk(addr, attr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
		wDst, err := dst.NewWriteIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(wDst.WriteItem(types.NewNull(attr.Type, types.MissingGroupAbsent)), convey.ShouldBeNil)

		src := singleCellChunk(addr, AttrInfo{Type: attr.Type}, 3)
		srcIt, err := src.NewIterator(0)
		convey.So(err, convey.ShouldBeNil)
		convey.So(MergeAggregateCells(wDst, srcIt, sumAgg{}), convey.ShouldBeNil)

		convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
		convey.So(decodeInt64Value(wDst.GetItem()), convey.ShouldEqual, int64(3))
	})

	convey.Convey("aggregate merge is associative regardless of merge order", t, func() {
		addr := Address{ArrayID: 1, AttributeID: 3, Position: []int64{0}}
		attr := AttrInfo{Type: types.Type{Name: "int64", BitSize: 64, Width: 8}, Nullable: true}
		values := []int64{3, 4, 5}
		orders := [][]int{{0, 1, 2}, {2, 1, 0}}

		sums := make([]int64, len(orders))
		for oi, order := range orders {
			dst := NewDenseChunk(addr, attr, []int64{0}, []int64{0}, []int64{0}, []int64{0}, "none")
			wDst, err := dst.NewWriteIterator(0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
			convey.So(wDst.WriteItem(types.NewNull(attr.Type, types.MissingGroupAbsent)), convey.ShouldBeNil)

			for _, idx := range order {
				src := singleCellChunk(addr, AttrInfo{Type: attr.Type}, values[idx])
				srcIt, err := src.NewIterator(0)
				convey.So(err, convey.ShouldBeNil)
				convey.So(MergeAggregateCells(wDst, srcIt, sumAgg{}), convey.ShouldBeNil)
			}

			convey.So(wDst.SetPosition([]int64{0}), convey.ShouldBeTrue)
			sums[oi] = decodeInt64Value(wDst.GetItem())
		}

		convey.So(sums[0], convey.ShouldEqual, int64(12))
		convey.So(sums[0], convey.ShouldEqual, sums[1])
	})
}
