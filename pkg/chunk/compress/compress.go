// Package compress implements the chunk's compression-method registry: a
// small set of named codecs a chunk's payload may be stored under, keyed
// by the same string the chunk descriptor carries in its Compression
// field.
package compress

import (
	"bytes"
	"io"
	"sync"

	"github.com/pierrec/lz4"

	"github.com/arraydb/arraydb/pkg/dberr"
)

// Codec compresses and decompresses a chunk's encoded payload bytes.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, sizeHint int) ([]byte, error)
}

// Registry maps a compression method name to its Codec. One Registry
// lives in the engine context; "none" is always registered.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a Registry with "none" and "lz4" pre-registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(noneCodec{})
	r.Register(lz4Codec{})
	return r
}

// Register adds or overwrites a codec. Call only at startup.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Name()] = c
}

// Get resolves a compression method name to its Codec.
func (r *Registry) Get(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	if !ok {
		return nil, dberr.Newf(dberr.Internal, "compress", "unknown compression method %q", name)
	}
	return c, nil
}

type noneCodec struct{}

func (noneCodec) Name() string                                  { return "none" }
func (noneCodec) Compress(src []byte) ([]byte, error)           { return src, nil }
func (noneCodec) Decompress(src []byte, _ int) ([]byte, error)  { return src, nil }

// lz4Codec wraps github.com/pierrec/lz4's streaming writer/reader (the
// LZ4 frame format), the same library the reference corpus uses for its
// own columnar tail compression.
type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, dberr.Newf(dberr.Internal, "compress", "lz4 compress: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, dberr.Newf(dberr.Internal, "compress", "lz4 compress close: %v", err)
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(src []byte, sizeHint int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	out := make([]byte, 0, sizeHint)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, dberr.Newf(dberr.Internal, "compress", "lz4 decompress: %v", err)
	}
	return buf.Bytes(), nil
}
