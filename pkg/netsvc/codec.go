// Package netsvc realizes spec.md §6's message tables as gob-encoded Go
// structs carried over github.com/fagongzi/goetty/v2 TCP sessions, the
// same transport the reference corpus uses for its own session-level
// protocols (proxy/frontend listeners wired with
// goetty.NewApplication(...,goetty.WithAppSessionOptions(
// goetty.WithSessionCodec(...)))).
package netsvc

import (
	"bytes"
	"encoding/gob"

	"github.com/fagongzi/goetty/v2/buf"
	"github.com/fagongzi/goetty/v2/codec"
	"github.com/fagongzi/goetty/v2/codec/length"
)

// NewCodec returns the length-prefixed gob codec shared by every
// netsvc listener and client session: a gob envelope framed the same
// way the reference corpus's pkg/common/morpc codec frames its
// protobuf messages (a 4-byte length prefix via length.New wrapping a
// base encoder/decoder), adapted to gob since no protobuf toolchain
// backs this wire schema.
func NewCodec() (codec.Encoder, codec.Decoder) {
	bc := &gobCodec{}
	_, decoder := length.New(bc, bc)
	return bc, decoder
}

type gobCodec struct{}

// Decode consumes one length-delimited frame (already isolated by the
// length-field decoder wrapping this one) and gob-decodes it into the
// registered concrete message type its envelope carries.
func (c *gobCodec) Decode(in *buf.ByteBuf) (bool, interface{}, error) {
	data := in.GetMarkedRemindData()
	var msg interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return false, nil, err
	}
	in.MarkedBytesReaded()
	return true, msg, nil
}

// Encode gob-encodes data (whose concrete type must have been
// registered via gob.Register in this package's init) and writes a
// 4-byte length prefix ahead of it.
func (c *gobCodec) Encode(data interface{}, out *buf.ByteBuf) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(data); err != nil {
		return err
	}
	b := body.Bytes()
	buf.MustWriteInt(out, len(b))
	index := out.GetWriteIndex()
	out.Expansion(len(b))
	copy(out.RawBuf()[index:index+len(b)], b)
	out.SetWriterIndex(index + len(b))
	return nil
}
