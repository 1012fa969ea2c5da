package chunk

import (
	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// MergePolicy selects one of the three chunk-level combine strategies a
// merge of two same-Address chunks may use.
type MergePolicy int

const (
	// MergeBitwiseOr is the fast path: both inputs are empty-bitmap
	// bearing, same encoding, no synthetic dimension, no aggregate. Valid
	// because the data model guarantees non-overlapping cells between the
	// two inputs whenever this path is selected.
	MergeBitwiseOr MergePolicy = iota
	// MergeCellwisePolicy iterates source cells and writes into the
	// destination; on conflict source wins unless a synthetic dimension is
	// active.
	MergeCellwisePolicy
	// MergeAggregate combines per-cell aggregate states via an injected
	// Aggregate's Merge function.
	MergeAggregate
)

// Aggregate is the minimal contract MergeAggregate needs: combine two
// encoded states into one. Reason 0 on the destination cell means "no
// state yet".
type Aggregate interface {
	Merge(dst, src types.Value) (types.Value, error)
}

// SyntheticCoord resolves position conflicts during a cell-wise merge when
// a synthetic dimension is active, extending the synthetic coordinate
// using a coord->count map built once per merge.
type SyntheticCoord struct {
	counts map[string]int64
	dimIdx int
}

// NewSyntheticCoord returns a resolver that extends coordinate index
// dimIdx on conflict.
func NewSyntheticCoord(dimIdx int) *SyntheticCoord {
	return &SyntheticCoord{counts: make(map[string]int64), dimIdx: dimIdx}
}

func (s *SyntheticCoord) key(pos []int64) string {
	b := make([]byte, 0, len(pos)*8)
	for _, p := range pos {
		b = append(b, byte(p), byte(p>>8), byte(p>>16), byte(p>>24), byte(p>>32), byte(p>>40), byte(p>>48), byte(p>>56))
	}
	return string(b)
}

// Next returns the next free coordinate along the synthetic dimension for
// the given base position (base with dimIdx held at its nominal value):
// base+1 on the first conflict at base, base+2 on the second, and so on.
func (s *SyntheticCoord) Next(base []int64) []int64 {
	k := s.key(base)
	n := s.counts[k] + 1
	s.counts[k] = n
	out := append([]int64{}, base...)
	out[s.dimIdx] += n
	return out
}

// MergeBitwiseOrChunks ORs two empty-bitmap-bearing chunks' presence
// bitmaps and concatenates their payloads. Both chunks must be Dense (the
// only encoding that carries an inline emptyBitmapHolder and contiguous
// payload today) and share an Address.
func MergeBitwiseOrChunks(a, b *DenseChunk) (*DenseChunk, error) {
	if !a.addr.Equal(b.addr) {
		return nil, dberr.New(dberr.Internal, "chunk", "bitwise-or merge requires identical address")
	}
	if a.emptyBitmap == nil || b.emptyBitmap == nil {
		return nil, dberr.New(dberr.Internal, "chunk", "bitwise-or merge requires empty-bitmap-bearing chunks")
	}
	out := &DenseChunk{
		addr: a.addr, attr: a.attr,
		loNoOv: a.loNoOv, hiNoOv: a.hiNoOv, loOv: a.loOv, hiOv: a.hiOv,
		compression: a.compression,
		emptyBitmap: a.emptyBitmap.Clone(),
		data:        append([]byte{}, a.data...),
		tail:        append([]byte{}, a.tail...),
		offsets:     append([]int32{}, a.offsets...),
	}
	out.emptyBitmap.Or(b.emptyBitmap)
	if a.nullBitmap != nil {
		out.nullBitmap = a.nullBitmap.Clone()
		if b.nullBitmap != nil {
			out.nullBitmap.Or(b.nullBitmap)
		}
	} else if b.nullBitmap != nil {
		out.nullBitmap = b.nullBitmap.Clone()
	}
	if a.attr.Type.IsVariable() {
		base := int32(len(out.tail))
		out.tail = append(out.tail, b.tail...)
		for i, off := range b.offsets {
			if off < 0 {
				continue
			}
			if out.offsets[i] < 0 {
				out.offsets[i] = off + base
			}
		}
	} else {
		w := int64(a.attr.Type.ByteSize())
		for off := int64(0); (off+1)*w <= int64(len(b.data)); off++ {
			if b.emptyBitmap.Contains(uint32(off)) {
				copy(out.data[off*w:off*w+w], b.data[off*w:off*w+w])
			}
		}
	}
	return out, nil
}

// MergeCellwise iterates src's visible cells and writes each into dst at
// the same position. On a position conflict the source wins unless sc is
// non-nil, in which case the synthetic coordinate is extended instead of
// overwriting.
func MergeCellwise(dst WriteIterator, src Iterator, sc *SyntheticCoord) error {
	for !src.End() {
		pos := src.GetPosition()
		target := pos
		if sc != nil && dst.SetPosition(pos) {
			// A live cell already occupies pos; extend along the
			// synthetic dimension instead of overwriting it.
			target = sc.Next(pos)
		}
		if !dst.SetPosition(target) {
			return dberr.Newf(dberr.SetPositionOutOfChunk, "chunk", "merge: position %v out of destination chunk", target)
		}
		if err := dst.WriteItem(src.GetItem()); err != nil {
			return err
		}
		src.Next()
	}
	return nil
}

// MergeAggregateCells iterates src; for each cell, reads the current
// destination state (Reason!=0 meaning "state exists"), combines it with
// the source via agg.Merge, and writes the result back. Reason 0 means
// "no state yet" and the source installs unchanged.
func MergeAggregateCells(dst WriteIterator, src Iterator, agg Aggregate) error {
	for !src.End() {
		pos := src.GetPosition()
		srcVal := src.GetItem()
		if !dst.SetPosition(pos) {
			return dberr.Newf(dberr.SetPositionOutOfChunk, "chunk", "aggregate merge: position %v out of destination chunk", pos)
		}
		cur := dst.GetItem()
		var out types.Value
		if cur.Null && cur.Reason == types.MissingGroupAbsent {
			out = srcVal
		} else {
			merged, err := agg.Merge(cur, srcVal)
			if err != nil {
				return err
			}
			out = merged
		}
		if err := dst.WriteItem(out); err != nil {
			return err
		}
		src.Next()
	}
	return nil
}
