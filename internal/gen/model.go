package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/danmuck/buffham/internal/protocol/frame"
	"github.com/danmuck/buffham/internal/protocol/schema"
)

// Unit is one rendered source file: every message of one schema file.
type Unit struct {
	// Source is the schema file's base name, used for provenance.
	Source string
	// Stem is Source without its extension.
	Stem      string
	Magic     string
	HeaderLen int
	Types     []TypeDecl
}

// TypeDecl is one message type with its three codec operations.
type TypeDecl struct {
	Name        string
	ID          uint8
	PayloadSize int
	TotalSize   int
	Slots       []Slot
}

// Slot is one field at a fixed offset from the start of the encoded buffer.
type Slot struct {
	Name   string
	Type   protocol.FieldType
	Offset int
	Width  int
	Native string
	Codec  string
}

// End is the offset one past the slot.
func (s Slot) End() int { return s.Offset + s.Width }

// Build lowers messages into a Unit using b's type map and reserved words.
func Build(source string, messages []*schema.Message, b Backend) (*Unit, error) {
	base := filepath.Base(source)
	u := &Unit{
		Source:    base,
		Stem:      strings.TrimSuffix(base, filepath.Ext(base)),
		Magic:     frame.Magic,
		HeaderLen: frame.HeaderLen,
		Types:     make([]TypeDecl, 0, len(messages)),
	}
	types := b.Types()
	for _, msg := range messages {
		if b.Reserved(msg.Name()) {
			return nil, &GenerateError{Backend: b.Name(), Message: msg.Name(), Err: fmt.Errorf("%w: %s", ErrReservedName, msg.Name())}
		}
		decl := TypeDecl{
			Name:        msg.Name(),
			ID:          msg.ID(),
			PayloadSize: msg.PayloadSize(),
			TotalSize:   msg.TotalSize(),
			Slots:       make([]Slot, 0, msg.NumFields()),
		}
		offsets := msg.Offsets()
		for i, f := range msg.Fields() {
			if b.Reserved(f.Name) {
				return nil, &GenerateError{Backend: b.Name(), Message: msg.Name(), Err: fmt.Errorf("%w: field %s", ErrReservedName, f.Name)}
			}
			scalar, ok := types[f.Type]
			if !ok {
				return nil, &GenerateError{Backend: b.Name(), Message: msg.Name(), Err: fmt.Errorf("%w: %s", ErrUnmappedType, f.Type)}
			}
			decl.Slots = append(decl.Slots, Slot{
				Name:   f.Name,
				Type:   f.Type,
				Offset: offsets[i],
				Width:  f.Type.Width(),
				Native: scalar.Native,
				Codec:  scalar.Codec,
			})
		}
		u.Types = append(u.Types, decl)
	}
	return u, nil
}
