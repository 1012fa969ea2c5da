package array

import (
	"github.com/arraydb/arraydb/pkg/chunk"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// Array is the ordered collection of attributes over a multidimensional
// dimension space. Source implementations are polymorphic: materialized
// (backed by the chunk store), delegate (wrapping another Array), or
// streamed (fed by a remote operator); this interface is the contract all
// three honor.
type Array interface {
	Descriptor() *Descriptor
	// AttributeIterator returns a ConstArrayIterator over chunks of attr,
	// ordered by dimension-major chunk position.
	AttributeIterator(attrID int) (ConstArrayIterator, error)
}

// ConstArrayIterator walks the chunks of one attribute of an array in
// chunk-position order.
type ConstArrayIterator interface {
	End() bool
	Next() error
	GetChunk() (chunk.Chunk, error)
	GetPosition() []int64
	Reset() error
}

// Delegate wraps an input Array and transforms its iterator/chunk view.
// The contract: a delegate chunk either clones the input chunk's payload
// (fast path, no reshape needed) or materializes through iteration.
type Delegate struct {
	Input     Array
	desc      *Descriptor
	transform ChunkTransform
}

// ChunkTransform adapts one input chunk (at a possibly-different position)
// into an output chunk for the delegate's descriptor. CanClone reports
// whether the fast path applies for a given chunk.
type ChunkTransform interface {
	CanClone(in chunk.Chunk) bool
	Clone(in chunk.Chunk) (chunk.Chunk, error)
	Materialize(in chunk.Chunk) (chunk.Chunk, error)
}

func (d *Delegate) Descriptor() *Descriptor { return d.desc }

func (d *Delegate) AttributeIterator(attrID int) (ConstArrayIterator, error) {
	inner, err := d.Input.AttributeIterator(attrID)
	if err != nil {
		return nil, err
	}
	return &delegateIterator{inner: inner, transform: d.transform}, nil
}

type delegateIterator struct {
	inner     ConstArrayIterator
	transform ChunkTransform
}

func (it *delegateIterator) End() bool         { return it.inner.End() }
func (it *delegateIterator) Next() error       { return it.inner.Next() }
func (it *delegateIterator) GetPosition() []int64 { return it.inner.GetPosition() }
func (it *delegateIterator) Reset() error      { return it.inner.Reset() }

func (it *delegateIterator) GetChunk() (chunk.Chunk, error) {
	in, err := it.inner.GetChunk()
	if err != nil {
		return nil, err
	}
	if it.transform.CanClone(in) {
		return it.transform.Clone(in)
	}
	return it.transform.Materialize(in)
}

// NewAddDimension returns a delegate that injects a new, size-1 synthetic
// dimension into the input's descriptor; chunk payloads clone unchanged
// since no reshape of stored bytes is needed, only coordinate bookkeeping.
func NewAddDimension(in Array, dim Dimension) *Delegate {
	src := in.Descriptor()
	nd := &Descriptor{
		Name:       src.Name,
		ArrayID:    src.ArrayID,
		VersionID:  src.VersionID,
		Attributes: src.Attributes,
		Dimensions: append(append([]Dimension{}, src.Dimensions...), dim),
	}
	return &Delegate{Input: in, desc: nd, transform: cloneTransform{}}
}

// NewRemoveDimension returns a delegate dropping dimension at index idx.
// Removing a non-degenerate dimension requires materialization since
// cells at different coordinates along it collapse together.
func NewRemoveDimension(in Array, idx int) (*Delegate, error) {
	src := in.Descriptor()
	if idx < 0 || idx >= len(src.Dimensions) {
		return nil, dberr.Newf(dberr.WrongDimensionality, "array", "remove dimension: index %d out of range", idx)
	}
	dims := append(append([]Dimension{}, src.Dimensions[:idx]...), src.Dimensions[idx+1:]...)
	nd := &Descriptor{Name: src.Name, ArrayID: src.ArrayID, VersionID: src.VersionID, Attributes: src.Attributes, Dimensions: dims}
	return &Delegate{Input: in, desc: nd, transform: materializeOnlyTransform{}}, nil
}

// NewRename returns a delegate with one attribute renamed; chunk payloads
// are identical, so this is always the clone fast path.
func NewRename(in Array, attrID int, newName string) *Delegate {
	src := in.Descriptor()
	attrs := append([]Attribute{}, src.Attributes...)
	attrs[attrID].Name = newName
	nd := &Descriptor{Name: src.Name, ArrayID: src.ArrayID, VersionID: src.VersionID, Attributes: attrs, Dimensions: src.Dimensions}
	return &Delegate{Input: in, desc: nd, transform: cloneTransform{}}
}

// NewTranspose returns a delegate with dimensions permuted according to
// perm (perm[i] is the source index feeding output dimension i).
// Transposition always materializes: chunk-position order changes.
func NewTranspose(in Array, perm []int) (*Delegate, error) {
	src := in.Descriptor()
	if len(perm) != len(src.Dimensions) {
		return nil, dberr.Newf(dberr.WrongDimensionality, "array", "transpose: permutation length mismatch")
	}
	dims := make([]Dimension, len(perm))
	for i, p := range perm {
		dims[i] = src.Dimensions[p]
	}
	nd := &Descriptor{Name: src.Name, ArrayID: src.ArrayID, VersionID: src.VersionID, Attributes: src.Attributes, Dimensions: dims}
	return &Delegate{Input: in, desc: nd, transform: materializeOnlyTransform{}}, nil
}

// NewSubArray returns a delegate restricting the input to a sub-box. Its
// transform never takes the clone fast path: every chunk is materialized,
// whether or not the box is chunk-aligned.
func NewSubArray(in Array, box Boundary) *Delegate {
	src := in.Descriptor()
	dims := make([]Dimension, len(src.Dimensions))
	for i, d := range src.Dimensions {
		nd := d
		if len(box.Lo) == len(src.Dimensions) {
			nd.Start = box.Lo[i]
			nd.EndMax = box.Hi[i]
		}
		dims[i] = nd
	}
	nd := &Descriptor{Name: src.Name, ArrayID: src.ArrayID, VersionID: src.VersionID, Attributes: src.Attributes, Dimensions: dims}
	return &Delegate{Input: in, desc: nd, transform: subArrayTransform{box: box}}
}

// NewConcat returns a delegate whose descriptor extends left's dimension 0
// by right's dimension-0 extent. Its attribute iterators walk left's
// chunks only; right's chunks are not included.
func NewConcat(left, right Array) (*Delegate, error) {
	ld, rd := left.Descriptor(), right.Descriptor()
	if len(ld.Attributes) != len(rd.Attributes) || len(ld.Dimensions) != len(rd.Dimensions) {
		return nil, dberr.Newf(dberr.TypeMismatch, "array", "concat: schema mismatch")
	}
	dims := append([]Dimension{}, ld.Dimensions...)
	dims[0].EndMax = ld.Dimensions[0].EndMax + (rd.Dimensions[0].EndMax - rd.Dimensions[0].Start) + 1
	nd := &Descriptor{Name: ld.Name, ArrayID: ld.ArrayID, VersionID: ld.VersionID, Attributes: ld.Attributes, Dimensions: dims}
	return &Delegate{Input: left, desc: nd, transform: materializeOnlyTransform{}}, nil
}

type cloneTransform struct{}

func (cloneTransform) CanClone(chunk.Chunk) bool { return true }
func (cloneTransform) Clone(in chunk.Chunk) (chunk.Chunk, error) { return in, nil }
func (cloneTransform) Materialize(in chunk.Chunk) (chunk.Chunk, error) { return in, nil }

type materializeOnlyTransform struct{}

func (materializeOnlyTransform) CanClone(chunk.Chunk) bool { return false }
func (materializeOnlyTransform) Clone(in chunk.Chunk) (chunk.Chunk, error) {
	return nil, dberr.New(dberr.Internal, "array", "clone not supported; must materialize")
}
func (materializeOnlyTransform) Materialize(in chunk.Chunk) (chunk.Chunk, error) {
	return chunk.MaterializeDense(in)
}

type subArrayTransform struct{ box Boundary }

func (s subArrayTransform) CanClone(in chunk.Chunk) bool {
	lo, _ := in.Bounds()
	for i, l := range s.box.Lo {
		if i < len(lo) && lo[i]%1 != 0 && l != lo[i] {
			return false
		}
	}
	return false
}
func (s subArrayTransform) Clone(in chunk.Chunk) (chunk.Chunk, error) { return in, nil }
func (s subArrayTransform) Materialize(in chunk.Chunk) (chunk.Chunk, error) {
	return chunk.MaterializeDense(in)
}
