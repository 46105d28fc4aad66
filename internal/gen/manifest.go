package gen

import (
	"errors"
	"fmt"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/danmuck/buffham/internal/protocol/frame"
	"github.com/danmuck/buffham/internal/protocol/schema"
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
)

var ErrBadManifest = errors.New("gen: invalid layout manifest")

// Manifest renders a JSON layout descriptor (ids, offsets, widths) for
// tools that inspect frames without a generated codec.
type Manifest struct{}

func NewManifest() *Manifest { return &Manifest{} }

func (Manifest) Name() string { return "manifest" }

func (Manifest) Suffix() string { return "_bh.json" }

func (Manifest) Types() TypeMap {
	return TypeMap{
		protocol.Uint16: {Native: protocol.Uint16.Keyword(), Codec: "u16le"},
		protocol.Uint64: {Native: protocol.Uint64.Keyword(), Codec: "u64le"},
	}
}

func (Manifest) Reserved(string) bool { return false }

func (Manifest) Render(u *Unit) ([]byte, error) {
	w := jwriter.Writer{}
	w.RawByte('{')
	w.RawString(`"notice":`)
	w.String(bannerTitle)
	w.RawString(`,"source":`)
	w.String(u.Source)
	w.RawString(`,"magic":`)
	w.String(u.Magic)
	w.RawString(`,"header_size":`)
	w.Int(u.HeaderLen)
	w.RawString(`,"endianness":"little","messages":[`)
	for i, t := range u.Types {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"name":`)
		w.String(t.Name)
		w.RawString(`,"id":`)
		w.Uint8(t.ID)
		w.RawString(`,"payload_size":`)
		w.Int(t.PayloadSize)
		w.RawString(`,"total_size":`)
		w.Int(t.TotalSize)
		w.RawString(`,"fields":[`)
		for j, s := range t.Slots {
			if j > 0 {
				w.RawByte(',')
			}
			w.RawString(`{"name":`)
			w.String(s.Name)
			w.RawString(`,"type":`)
			w.String(s.Native)
			w.RawString(`,"codec":`)
			w.String(s.Codec)
			w.RawString(`,"offset":`)
			w.Int(s.Offset)
			w.RawString(`,"width":`)
			w.Int(s.Width)
			w.RawByte('}')
		}
		w.RawString(`]}`)
	}
	w.RawString("]}\n")
	out, err := w.BuildBytes()
	if err != nil {
		return nil, &GenerateError{Backend: "manifest", Err: err}
	}
	return out, nil
}

// LoadManifest rebuilds messages from a manifest, checking every recorded
// offset and size against the layout the model computes.
func LoadManifest(data []byte) ([]*schema.Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not JSON", ErrBadManifest)
	}
	doc := gjson.ParseBytes(data)
	if doc.Get("magic").String() != frame.Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadManifest, doc.Get("magic").String())
	}

	var out []*schema.Message
	var failed error
	doc.Get("messages").ForEach(func(_, m gjson.Result) bool {
		msg, err := manifestMessage(m)
		if err != nil {
			failed = err
			return false
		}
		out = append(out, msg)
		return true
	})
	if failed != nil {
		return nil, failed
	}
	return out, nil
}

func manifestMessage(m gjson.Result) (*schema.Message, error) {
	name := m.Get("name").String()
	var fields []schema.Field
	var offsets []int64
	var failed error
	m.Get("fields").ForEach(func(_, f gjson.Result) bool {
		t, err := protocol.Lookup(f.Get("type").String())
		if err != nil {
			failed = fmt.Errorf("%w: %s.%s: %v", ErrBadManifest, name, f.Get("name").String(), err)
			return false
		}
		fields = append(fields, schema.Field{Name: f.Get("name").String(), Type: t})
		offsets = append(offsets, f.Get("offset").Int())
		return true
	})
	if failed != nil {
		return nil, failed
	}
	id := m.Get("id")
	if !id.Exists() {
		return nil, fmt.Errorf("%w: %s has no id", ErrBadManifest, name)
	}
	msg, err := schema.NewMessage(name, fields, int(id.Int()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	for i, off := range msg.Offsets() {
		if int64(off) != offsets[i] {
			return nil, fmt.Errorf("%w: %s.%s offset %d, layout says %d", ErrBadManifest, name, fields[i].Name, offsets[i], off)
		}
	}
	if ts := m.Get("total_size").Int(); ts != int64(msg.TotalSize()) {
		return nil, fmt.Errorf("%w: %s total_size %d, layout says %d", ErrBadManifest, name, ts, msg.TotalSize())
	}
	return msg, nil
}
