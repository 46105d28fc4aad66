package schema

import (
	"fmt"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/danmuck/buffham/internal/protocol/frame"
)

// Field is one fixed-width slot of a message.
type Field struct {
	Name string
	Type protocol.FieldType
}

// Message is an immutable, validated message definition.
type Message struct {
	name   string
	fields []Field
	id     uint8
	size   int
}

// NewMessage validates and builds a message. id is the assigned identifier
// and must fit the header id byte.
func NewMessage(name string, fields []Field, id int) (*Message, error) {
	if !IsIdentifier(name) {
		return nil, fmt.Errorf("%w: message name %q", ErrInvalidIdentifier, name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMessage, name)
	}
	if id < 0 || id > frame.MaxMessageID {
		return nil, fmt.Errorf("%w: %s id=%d max=%d", ErrIDOverflow, name, id, frame.MaxMessageID)
	}
	seen := make(map[string]struct{}, len(fields))
	size := 0
	for _, f := range fields {
		if !IsIdentifier(f.Name) {
			return nil, fmt.Errorf("%w: field name %q in %s", ErrInvalidIdentifier, f.Name, name)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownType, name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, name, f.Name)
		}
		seen[f.Name] = struct{}{}
		size += f.Type.Width()
	}
	if size > frame.MaxPayloadLen {
		return nil, fmt.Errorf("%w: %s payload=%d max=%d", ErrPayloadTooLarge, name, size, frame.MaxPayloadLen)
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return &Message{name: name, fields: out, id: uint8(id), size: size}, nil
}

func (m *Message) Name() string { return m.name }

func (m *Message) ID() uint8 { return m.id }

// Fields returns a copy of the ordered field list.
func (m *Message) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m *Message) NumFields() int { return len(m.fields) }

func (m *Message) Field(i int) Field { return m.fields[i] }

// FieldIndex returns the position of the named field, or -1.
func (m *Message) FieldIndex(name string) int {
	for i, f := range m.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (m *Message) HeaderSize() int { return frame.HeaderLen }

// PayloadSize is the sum of field widths.
func (m *Message) PayloadSize() int { return m.size }

func (m *Message) TotalSize() int { return frame.HeaderLen + m.size }

// Offsets returns each field's byte offset from the start of the buffer
// (header included).
func (m *Message) Offsets() []int {
	out := make([]int, len(m.fields))
	off := frame.HeaderLen
	for i, f := range m.fields {
		out[i] = off
		off += f.Type.Width()
	}
	return out
}

func (m *Message) String() string {
	return fmt.Sprintf("%s(id=%d fields=%d payload=%d)", m.name, m.id, len(m.fields), m.size)
}
