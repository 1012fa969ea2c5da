package chunk

import (
	"github.com/arraydb/arraydb/pkg/container/nulls"
	"github.com/arraydb/arraydb/pkg/container/types"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// DenseChunk stores packed values row-major within the chunk's bounding
// box (expanded by overlap), with an optional null-bitmap prefix and a
// variable-size tail for variable-width attributes.
type DenseChunk struct {
	addr        Address
	attr        AttrInfo
	loNoOv, hiNoOv []int64
	loOv, hiOv     []int64
	compression string
	readOnly    bool

	nullBitmap *nulls.Bitmap // nil if attr not nullable
	emptyBitmap *nulls.Bitmap // nil if attr is not empty-bitmap bearing owner

	// Fixed-width storage.
	data []byte

	// Variable-width storage: fixed offsets into a growable tail; on
	// overwrite with a larger value a new tail slot is appended and the
	// offset updated (old slot leaks within the chunk, per spec).
	offsets []int32
	tail    []byte
}

// NewDenseChunk allocates an empty, writable dense chunk over the given
// box (without overlap) and overlap halo.
func NewDenseChunk(addr Address, attr AttrInfo, loNoOv, hiNoOv, loOv, hiOv []int64, compression string) *DenseChunk {
	n := boxCells(loOv, hiOv)
	c := &DenseChunk{
		addr: addr, attr: attr,
		loNoOv: loNoOv, hiNoOv: hiNoOv, loOv: loOv, hiOv: hiOv,
		compression: compression,
	}
	if attr.Nullable {
		c.nullBitmap = nulls.New()
	}
	if attr.IsEmptyBitmap {
		c.emptyBitmap = nulls.New()
	}
	if attr.Type.IsVariable() {
		c.offsets = make([]int32, n)
		for i := range c.offsets {
			c.offsets[i] = -1
		}
	} else {
		c.data = make([]byte, n*int64(attr.Type.ByteSize()))
	}
	return c
}

func boxCells(lo, hi []int64) int64 {
	n := int64(1)
	for i := range lo {
		n *= hi[i] - lo[i] + 1
	}
	return n
}

func (c *DenseChunk) Addr() Address        { return c.addr }
func (c *DenseChunk) Encoding() Encoding   { return Dense }
func (c *DenseChunk) Bounds() ([]int64, []int64) { return c.loNoOv, c.hiNoOv }
func (c *DenseChunk) BoundsWithOverlap() ([]int64, []int64) { return c.loOv, c.hiOv }
func (c *DenseChunk) Attribute() AttrInfo  { return c.attr }
func (c *DenseChunk) Compression() string  { return c.compression }
func (c *DenseChunk) ReadOnly() bool       { return c.readOnly }
func (c *DenseChunk) EmptyBitmap() *nulls.Bitmap { return c.emptyBitmap }

// PlainBytes returns the chunk's raw fixed-width payload and true iff the
// chunk is "plain" per the array abstraction's extractData fast path: no
// overlap, no empty-bitmap, not nullable, fixed-width.
func (c *DenseChunk) PlainBytes() ([]byte, bool) {
	plain := !boxDiffers(c.loOv, c.loNoOv) && !boxDiffers(c.hiOv, c.hiNoOv) &&
		c.emptyBitmap == nil && c.nullBitmap == nil && !c.attr.Type.IsVariable()
	if !plain {
		return nil, false
	}
	return c.data, true
}

func boxDiffers(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

func (c *DenseChunk) Count() int {
	if c.emptyBitmap != nil {
		return c.emptyBitmap.Count()
	}
	return int(boxCells(c.loOv, c.hiOv))
}

func (c *DenseChunk) NewIterator(mode Mode) (Iterator, error) {
	lo, hi := c.loOv, c.hiOv
	if mode.has(IgnoreOverlaps) {
		lo, hi = c.loNoOv, c.hiNoOv
	}
	it := &denseIterator{chunk: c, lo: lo, hi: hi, mode: mode}
	it.Reset()
	return it, nil
}

func (c *DenseChunk) NewWriteIterator(mode Mode) (WriteIterator, error) {
	if c.readOnly && !mode.has(AppendChunk) {
		return nil, dberr.New(dberr.IllegalReadOnlyChunk, "chunk", "dense chunk is read-only")
	}
	lo, hi := c.loOv, c.hiOv
	if mode.has(IgnoreOverlaps) {
		lo, hi = c.loNoOv, c.hiNoOv
	}
	it := &denseIterator{chunk: c, lo: lo, hi: hi, mode: mode}
	it.Reset()
	return it, nil
}

type denseIterator struct {
	chunk   *DenseChunk
	lo, hi  []int64
	mode    Mode
	off     int64
	ended   bool
}

func (it *denseIterator) Reset() {
	it.off = 0
	it.ended = boxCells(it.lo, it.hi) == 0
	it.skipInvisible()
}

func (it *denseIterator) total() int64 { return boxCells(it.lo, it.hi) }

func (it *denseIterator) skipInvisible() {
	for !it.ended && it.off < it.total() {
		if it.isVisible() {
			return
		}
		it.off++
	}
	it.ended = true
}

func (it *denseIterator) isVisible() bool {
	present := true
	if it.chunk.emptyBitmap != nil {
		present = it.chunk.emptyBitmap.Contains(uint32(it.off))
	}
	isNull := it.chunk.nullBitmap != nil && it.chunk.nullBitmap.Contains(uint32(it.off))
	return visible(it.mode, present, isNull, false)
}

func (it *denseIterator) End() bool { return it.ended }

func (it *denseIterator) Next() {
	if it.ended {
		return
	}
	it.off++
	it.skipInvisible()
}

func (it *denseIterator) SetPosition(c []int64) bool {
	if !inBox(c, it.lo, it.hi) {
		return false
	}
	off := linearize(c, it.lo, it.hi)
	saved := it.off
	it.off = off
	if !it.isVisible() {
		it.off = saved
		return false
	}
	it.ended = false
	return true
}

func (it *denseIterator) GetPosition() []int64 {
	return delinearize(it.off, it.lo, it.hi)
}

func (it *denseIterator) GetItem() types.Value {
	if it.chunk.nullBitmap != nil && it.chunk.nullBitmap.Contains(uint32(it.off)) {
		return types.NewNull(it.chunk.attr.Type, 1)
	}
	if it.chunk.attr.Type.IsVariable() {
		o := it.chunk.offsets[it.off]
		if o < 0 {
			return types.NewNull(it.chunk.attr.Type, 1)
		}
		// Variable slots are length-prefixed with a uint32.
		n := int32LE(it.chunk.tail[o : o+4])
		return types.Value{Type: it.chunk.attr.Type, Payload: it.chunk.tail[o+4 : o+4+n]}
	}
	w := int64(it.chunk.attr.Type.ByteSize())
	b := it.chunk.data[it.off*w : it.off*w+w]
	return types.Value{Type: it.chunk.attr.Type, Payload: b}
}

func (it *denseIterator) WriteItem(v types.Value) error {
	if v.Null && !it.chunk.attr.Nullable {
		return dberr.New(dberr.AssigningNullToNonNullable, "chunk", "cannot write null to non-nullable attribute")
	}
	if it.chunk.emptyBitmap != nil {
		it.chunk.emptyBitmap.Add(uint32(it.off))
	}
	if v.Null {
		if it.chunk.nullBitmap == nil {
			it.chunk.nullBitmap = nulls.New()
		}
		it.chunk.nullBitmap.Add(uint32(it.off))
		return nil
	}
	if it.chunk.nullBitmap != nil {
		it.chunk.nullBitmap.Remove(uint32(it.off))
	}
	if it.chunk.attr.Type.IsVariable() {
		slot := make([]byte, 4+len(v.Payload))
		putInt32LE(slot[:4], int32(len(v.Payload)))
		copy(slot[4:], v.Payload)
		newOff := int32(len(it.chunk.tail))
		it.chunk.tail = append(it.chunk.tail, slot...)
		it.chunk.offsets[it.off] = newOff // old slot, if any, leaks
		return nil
	}
	w := int64(it.chunk.attr.Type.ByteSize())
	copy(it.chunk.data[it.off*w:it.off*w+w], v.Payload)
	return nil
}

func (it *denseIterator) Flush() error {
	it.chunk.readOnly = true
	return nil
}

func int32LE(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}

func putInt32LE(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
