package chunk

import (
	"bytes"
	"sort"

	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// rleSegment is one run: [startPos, startPos+length) all carrying the same
// value (or all null with the same reason).
type rleSegment struct {
	startPos int64
	length   int64
	isNull   bool
	reason   uint8
	offset   int32 // into heap, valid when !isNull
}

// RLEChunk stores a run-length payload of segments. Presence is not kept
// in a separate stream: gaps between segments are implicitly empty cells.
// setPosition binary-searches the run index.
type RLEChunk struct {
	addr        Address
	attr        AttrInfo
	loNoOv, hiNoOv []int64
	loOv, hiOv     []int64
	compression string
	readOnly    bool

	segments []rleSegment // sorted, non-overlapping, ascending startPos
	heap     []byte

	// write-side builder state.
	building    bool
	lastPos     int64
	haveLast    bool
	pendingVal  types.Value
}

// NewRLEChunk allocates an empty, writable RLE chunk.
func NewRLEChunk(addr Address, attr AttrInfo, loNoOv, hiNoOv, loOv, hiOv []int64, compression string) *RLEChunk {
	return &RLEChunk{
		addr: addr, attr: attr,
		loNoOv: loNoOv, hiNoOv: hiNoOv, loOv: loOv, hiOv: hiOv,
		compression: compression,
	}
}

func (c *RLEChunk) Addr() Address        { return c.addr }
func (c *RLEChunk) Encoding() Encoding   { return RLE }
func (c *RLEChunk) Bounds() ([]int64, []int64) { return c.loNoOv, c.hiNoOv }
func (c *RLEChunk) BoundsWithOverlap() ([]int64, []int64) { return c.loOv, c.hiOv }
func (c *RLEChunk) Attribute() AttrInfo  { return c.attr }
func (c *RLEChunk) Compression() string  { return c.compression }
func (c *RLEChunk) ReadOnly() bool       { return c.readOnly }

// Count is the sum of run lengths.
func (c *RLEChunk) Count() int {
	var n int64
	for _, s := range c.segments {
		n += s.length
	}
	return int(n)
}

func (c *RLEChunk) segmentIndexFor(pos int64) (int, bool) {
	i := sort.Search(len(c.segments), func(i int) bool { return c.segments[i].startPos+c.segments[i].length > pos })
	if i < len(c.segments) && c.segments[i].startPos <= pos {
		return i, true
	}
	return i, false
}

func (c *RLEChunk) NewIterator(mode Mode) (Iterator, error) {
	lo, hi := c.loOv, c.hiOv
	if mode.has(IgnoreOverlaps) {
		lo, hi = c.loNoOv, c.hiNoOv
	}
	it := &rleIterator{chunk: c, lo: lo, hi: hi, mode: mode}
	it.Reset()
	return it, nil
}

func (c *RLEChunk) NewWriteIterator(mode Mode) (WriteIterator, error) {
	if c.readOnly {
		return nil, dberr.New(dberr.IllegalReadOnlyChunk, "chunk", "rle chunk is read-only")
	}
	lo, hi := c.loOv, c.hiOv
	if mode.has(IgnoreOverlaps) {
		lo, hi = c.loNoOv, c.hiNoOv
	}
	c.building = true
	it := &rleIterator{chunk: c, lo: lo, hi: hi, mode: mode}
	it.Reset()
	return it, nil
}

type rleIterator struct {
	chunk    *RLEChunk
	lo, hi   []int64
	mode     Mode
	segIdx   int
	curPos   int64
	ended    bool
}

func (it *rleIterator) total() int64 { return boxCells(it.lo, it.hi) }

func (it *rleIterator) Reset() {
	it.segIdx = 0
	it.curPos = 0
	it.ended = len(it.chunk.segments) == 0
	if !it.ended {
		it.curPos = it.chunk.segments[0].startPos
	}
	it.skipInvisible()
}

func (it *rleIterator) skipInvisible() {
	for !it.ended && it.segIdx < len(it.chunk.segments) {
		s := it.chunk.segments[it.segIdx]
		if visible(it.mode, true, s.isNull, false) {
			return
		}
		it.segIdx++
		if it.segIdx < len(it.chunk.segments) {
			it.curPos = it.chunk.segments[it.segIdx].startPos
		}
	}
	it.ended = true
}

func (it *rleIterator) End() bool { return it.ended }

func (it *rleIterator) Next() {
	if it.ended {
		return
	}
	s := it.chunk.segments[it.segIdx]
	if it.curPos+1 < s.startPos+s.length {
		it.curPos++
		return
	}
	it.segIdx++
	if it.segIdx < len(it.chunk.segments) {
		it.curPos = it.chunk.segments[it.segIdx].startPos
	}
	it.skipInvisible()
}

func (it *rleIterator) SetPosition(c []int64) bool {
	if !inBox(c, it.lo, it.hi) {
		return false
	}
	pos := linearize(c, it.lo, it.hi)
	i, ok := it.chunk.segmentIndexFor(pos)
	if !ok {
		return false
	}
	if !visible(it.mode, true, it.chunk.segments[i].isNull, false) {
		return false
	}
	it.segIdx = i
	it.curPos = pos
	it.ended = false
	return true
}

func (it *rleIterator) GetPosition() []int64 {
	return delinearize(it.curPos, it.lo, it.hi)
}

func (it *rleIterator) GetItem() types.Value {
	s := it.chunk.segments[it.segIdx]
	if s.isNull {
		return types.NewNull(it.chunk.attr.Type, s.reason)
	}
	n := int32LE(it.chunk.heap[s.offset : s.offset+4])
	return types.Value{Type: it.chunk.attr.Type, Payload: it.chunk.heap[s.offset+4 : s.offset+4+n]}
}

// WriteItem appends to the RLE builder's run-length payload in sequential
// order, coalescing into the current run when the value matches and the
// position is contiguous, else opening a new run.
func (it *rleIterator) WriteItem(v types.Value) error {
	if v.Null && !it.chunk.attr.Nullable {
		return dberr.New(dberr.AssigningNullToNonNullable, "chunk", "cannot write null to non-nullable attribute")
	}
	c := it.chunk
	pos := it.curPos
	sameAsLast := c.haveLast && c.lastPos+1 == pos && valueEqual(v, c.pendingVal)
	if sameAsLast && len(c.segments) > 0 {
		c.segments[len(c.segments)-1].length++
	} else {
		seg := rleSegment{startPos: pos, length: 1}
		if v.Null {
			seg.isNull = true
			seg.reason = v.Reason
		} else {
			slot := make([]byte, 4+len(v.Payload))
			putInt32LE(slot[:4], int32(len(v.Payload)))
			copy(slot[4:], v.Payload)
			seg.offset = int32(len(c.heap))
			c.heap = append(c.heap, slot...)
		}
		c.segments = append(c.segments, seg)
	}
	c.lastPos = pos
	c.haveLast = true
	c.pendingVal = v
	return nil
}

func valueEqual(a, b types.Value) bool {
	if a.Null != b.Null {
		return false
	}
	if a.Null {
		return a.Reason == b.Reason
	}
	return bytes.Equal(a.Payload, b.Payload)
}

func (it *rleIterator) Flush() error {
	it.chunk.readOnly = true
	it.chunk.building = false
	return nil
}
