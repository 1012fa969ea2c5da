package chunk

import (
	"bytes"
	"encoding/gob"

	"github.com/arraydb/arraydb/pkg/chunk/compress"
	"github.com/arraydb/arraydb/pkg/container/nulls"
	"github.com/arraydb/arraydb/pkg/dberr"
)

// wireChunk is the gob-friendly mirror of the three concrete chunk
// representations, used by Encode/Decode for cache spill and for
// replication wire payloads (pkg/cluster's ChunkReplica.Data). Only one
// encoding's fields are populated per message, selected by Encoding.
type wireChunk struct {
	Encoding Encoding
	Addr     Address
	Attr     AttrInfo
	LoNoOv, HiNoOv []int64
	LoOv, HiOv     []int64
	Compression    string
	ReadOnly       bool

	// Dense
	NullBitmap  []byte // nulls.Bitmap.MarshalBinary, nil if not nullable
	EmptyBitmap []byte // nil if attr is not empty-bitmap bearing owner
	Data        []byte
	Offsets     []int32
	Tail        []byte

	// Sparse
	DenseThreshold float64
	Entries        []wireSparseEntry
	Heap           []byte

	// RLE
	Segments []wireRLESegment
}

type wireSparseEntry struct {
	Pos    int64
	Offset int32
	IsNull bool
}

type wireRLESegment struct {
	StartPos int64
	Length   int64
	IsNull   bool
	Reason   uint8
	Offset   int32
}

func init() {
	gob.Register(wireChunk{})
}

// Encode serializes c for the cache's spill store or for replication to
// a peer instance. It compresses the chunk's raw byte payload with the
// codec named by c.Compression() when non-"none", per spec.md §4.2's
// per-attribute compression choice.
func Encode(c Chunk, codecs *compress.Registry) ([]byte, error) {
	var w wireChunk
	switch t := c.(type) {
	case *DenseChunk:
		w = wireChunk{
			Encoding: Dense, Addr: t.addr, Attr: t.attr,
			LoNoOv: t.loNoOv, HiNoOv: t.hiNoOv, LoOv: t.loOv, HiOv: t.hiOv,
			Compression: t.compression, ReadOnly: t.readOnly,
			Data: t.data, Offsets: t.offsets, Tail: t.tail,
		}
		if t.nullBitmap != nil {
			b, err := t.nullBitmap.MarshalBinary()
			if err != nil {
				return nil, dberr.Newf(dberr.Internal, "chunk", "encode null bitmap: %v", err)
			}
			w.NullBitmap = b
		}
		if t.emptyBitmap != nil {
			b, err := t.emptyBitmap.MarshalBinary()
			if err != nil {
				return nil, dberr.Newf(dberr.Internal, "chunk", "encode empty bitmap: %v", err)
			}
			w.EmptyBitmap = b
		}
	case *SparseChunk:
		if t.promoted != nil {
			return Encode(t.promoted, codecs)
		}
		w = wireChunk{
			Encoding: Sparse, Addr: t.addr, Attr: t.attr,
			LoNoOv: t.loNoOv, HiNoOv: t.hiNoOv, LoOv: t.loOv, HiOv: t.hiOv,
			Compression: t.compression, ReadOnly: t.readOnly,
			DenseThreshold: t.DenseThreshold, Heap: t.heap,
		}
		for _, e := range t.entries {
			w.Entries = append(w.Entries, wireSparseEntry{Pos: e.pos, Offset: e.offset, IsNull: e.isNull})
		}
	case *RLEChunk:
		w = wireChunk{
			Encoding: RLE, Addr: t.addr, Attr: t.attr,
			LoNoOv: t.loNoOv, HiNoOv: t.hiNoOv, LoOv: t.loOv, HiOv: t.hiOv,
			Compression: t.compression, ReadOnly: t.readOnly,
			Heap: t.heap,
		}
		for _, s := range t.segments {
			w.Segments = append(w.Segments, wireRLESegment{StartPos: s.startPos, Length: s.length, IsNull: s.isNull, Reason: s.reason, Offset: s.offset})
		}
	default:
		return nil, dberr.Newf(dberr.Internal, "chunk", "encode: unknown chunk type %T", c)
	}

	if codecs != nil && w.Compression != "" && w.Compression != "none" {
		codec, err := codecs.Get(w.Compression)
		if err != nil {
			return nil, err
		}
		if w.Data != nil {
			if w.Data, err = codec.Compress(w.Data); err != nil {
				return nil, err
			}
		}
		if w.Heap != nil {
			if w.Heap, err = codec.Compress(w.Heap); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, dberr.Newf(dberr.Internal, "chunk", "encode chunk: %v", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode, reconstructing the concrete chunk type Encode
// was given.
func Decode(data []byte, codecs *compress.Registry) (Chunk, error) {
	var w wireChunk
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, dberr.Newf(dberr.Internal, "chunk", "decode chunk: %v", err)
	}

	if codecs != nil && w.Compression != "" && w.Compression != "none" {
		codec, err := codecs.Get(w.Compression)
		if err != nil {
			return nil, err
		}
		n := int(boxCells(w.LoOv, w.HiOv))
		if w.Data != nil {
			if w.Data, err = codec.Decompress(w.Data, n*w.Attr.Type.ByteSize()); err != nil {
				return nil, err
			}
		}
		if w.Heap != nil {
			if w.Heap, err = codec.Decompress(w.Heap, 0); err != nil {
				return nil, err
			}
		}
	}

	switch w.Encoding {
	case Dense:
		c := &DenseChunk{
			addr: w.Addr, attr: w.Attr,
			loNoOv: w.LoNoOv, hiNoOv: w.HiNoOv, loOv: w.LoOv, hiOv: w.HiOv,
			compression: w.Compression, readOnly: w.ReadOnly,
			data: w.Data, offsets: w.Offsets, tail: w.Tail,
		}
		if w.NullBitmap != nil {
			c.nullBitmap = nulls.New()
			if err := c.nullBitmap.UnmarshalBinary(w.NullBitmap); err != nil {
				return nil, dberr.Newf(dberr.Internal, "chunk", "decode null bitmap: %v", err)
			}
		}
		if w.EmptyBitmap != nil {
			c.emptyBitmap = nulls.New()
			if err := c.emptyBitmap.UnmarshalBinary(w.EmptyBitmap); err != nil {
				return nil, dberr.Newf(dberr.Internal, "chunk", "decode empty bitmap: %v", err)
			}
		}
		return c, nil
	case Sparse:
		c := &SparseChunk{
			addr: w.Addr, attr: w.Attr,
			loNoOv: w.LoNoOv, hiNoOv: w.HiNoOv, loOv: w.LoOv, hiOv: w.HiOv,
			compression: w.Compression, readOnly: w.ReadOnly,
			DenseThreshold: w.DenseThreshold, heap: w.Heap,
		}
		for _, e := range w.Entries {
			c.entries = append(c.entries, sparseEntry{pos: e.Pos, offset: e.Offset, isNull: e.IsNull})
		}
		return c, nil
	case RLE:
		c := &RLEChunk{
			addr: w.Addr, attr: w.Attr,
			loNoOv: w.LoNoOv, hiNoOv: w.HiNoOv, loOv: w.LoOv, hiOv: w.HiOv,
			compression: w.Compression, readOnly: w.ReadOnly,
			heap: w.Heap,
		}
		for _, s := range w.Segments {
			c.segments = append(c.segments, rleSegment{startPos: s.StartPos, length: s.Length, isNull: s.IsNull, reason: s.Reason, offset: s.Offset})
		}
		return c, nil
	default:
		return nil, dberr.Newf(dberr.Internal, "chunk", "decode: unknown encoding %v", w.Encoding)
	}
}
