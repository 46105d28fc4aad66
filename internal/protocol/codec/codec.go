// Package codec is the reference encoder/decoder for schema messages. Every
// generated backend must produce and accept exactly these bytes.
package codec

import (
	"errors"
	"fmt"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/danmuck/buffham/internal/protocol/frame"
	"github.com/danmuck/buffham/internal/protocol/schema"
)

var (
	ErrUnknownField   = errors.New("codec: unknown field")
	ErrUnknownMessage = errors.New("codec: no message with header id")
	ErrNilMessage     = errors.New("codec: nil message")
)

// Instance is one value of a message type, one slot per declared field.
type Instance struct {
	Message *schema.Message
	Values  []uint64
}

// New returns a zero-valued instance of msg.
func New(msg *schema.Message) *Instance {
	return &Instance{Message: msg, Values: make([]uint64, msg.NumFields())}
}

// Set assigns a field by name, checking the value fits the field width.
func (in *Instance) Set(name string, v uint64) error {
	i := in.Message.FieldIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, in.Message.Name(), name)
	}
	f := in.Message.Field(i)
	if v > f.Type.Max() {
		return fmt.Errorf("%w: %s.%s=%d", protocol.ErrOutOfRange, in.Message.Name(), name, v)
	}
	in.Values[i] = v
	return nil
}

// Get returns a field by name.
func (in *Instance) Get(name string) (uint64, error) {
	i := in.Message.FieldIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, in.Message.Name(), name)
	}
	return in.Values[i], nil
}

// Equal reports whether both instances share a message and field values.
func (in *Instance) Equal(other *Instance) bool {
	if in == nil || other == nil || in.Message != other.Message || len(in.Values) != len(other.Values) {
		return false
	}
	for i := range in.Values {
		if in.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// Encode returns a fresh buffer of exactly TotalSize bytes.
func Encode(in *Instance) ([]byte, error) {
	if in == nil || in.Message == nil {
		return nil, ErrNilMessage
	}
	msg := in.Message
	if len(in.Values) != msg.NumFields() {
		return nil, fmt.Errorf("%w: %s has %d fields, instance has %d values",
			protocol.ErrInvalidLength, msg.Name(), msg.NumFields(), len(in.Values))
	}
	buf := make([]byte, msg.TotalSize())
	frame.PutHeader(buf, frame.Header{MessageID: msg.ID(), PayloadLen: uint16(msg.PayloadSize())})
	for i, off := range msg.Offsets() {
		f := msg.Field(i)
		if err := protocol.PutUint(f.Type, buf[off:], in.Values[i]); err != nil {
			return nil, fmt.Errorf("codec: encode %s.%s: %w", msg.Name(), f.Name, err)
		}
	}
	return buf, nil
}

// Decode verifies the header against msg before reading any field.
func Decode(msg *schema.Message, buf []byte) (*Instance, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if err := frame.Verify(buf, msg.ID(), uint16(msg.PayloadSize())); err != nil {
		return nil, fmt.Errorf("codec: decode %s: %w", msg.Name(), err)
	}
	out := New(msg)
	for i, off := range msg.Offsets() {
		v, err := protocol.Uint(msg.Field(i).Type, buf[off:])
		if err != nil {
			return nil, fmt.Errorf("codec: decode %s.%s: %w", msg.Name(), msg.Field(i).Name, err)
		}
		out.Values[i] = v
	}
	return out, nil
}

// Dispatch picks the message whose id matches buf's header and decodes it.
func Dispatch(messages []*schema.Message, buf []byte) (*Instance, error) {
	h, err := frame.DecodeHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: dispatch: %w", err)
	}
	for _, m := range messages {
		if m.ID() == h.MessageID {
			return Decode(m, buf)
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, h.MessageID)
}

// String renders the instance as Name{field=value ...}.
func (in *Instance) String() string {
	s := in.Message.Name() + "{"
	for i, v := range in.Values {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", in.Message.Field(i).Name, v)
	}
	return s + "}"
}
