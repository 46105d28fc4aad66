package gen

import (
	"fmt"
	"go/format"
	"go/token"
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
)

const defaultGoPackage = "messages"

// Go renders a gofmt'd Go file. Field and type names are exported; decode
// is a package function Decode<Name> returning an error that wraps
// ErrMalformed<Stem>.
type Go struct {
	pkg string
}

func NewGo(pkg string) *Go {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		pkg = defaultGoPackage
	}
	return &Go{pkg: pkg}
}

func (g *Go) Name() string { return "go" }

func (g *Go) Suffix() string { return "_bh.go" }

func (g *Go) Package() string { return g.pkg }

func (g *Go) Types() TypeMap {
	return TypeMap{
		protocol.Uint16: {Native: "uint16", Codec: "Uint16"},
		protocol.Uint64: {Native: "uint64", Codec: "Uint64"},
	}
}

// Reserved is empty: every name is exported before use, and clashes are
// detected per unit by Render.
func (g *Go) Reserved(string) bool { return false }

type goNames struct {
	stem    string
	errName string
	check   string
	types   map[string]string
	fields  map[string][]string
}

func (g *Go) names(u *Unit) (*goNames, error) {
	stem := exportName(u.Stem)
	n := &goNames{
		stem:    stem,
		errName: "ErrMalformed" + stem,
		check:   "check" + stem + "Header",
		types:   make(map[string]string, len(u.Types)),
		fields:  make(map[string][]string, len(u.Types)),
	}
	top := newNameClaims(g.Name())
	if err := top.claim(n.errName, "error var"); err != nil {
		return nil, err
	}
	if err := top.claim(n.check, "header check"); err != nil {
		return nil, err
	}
	for _, t := range u.Types {
		typ := exportName(t.Name)
		for _, name := range []string{typ, "Decode" + typ, typ + "ID", typ + "PayloadSize"} {
			if err := top.claim(name, t.Name); err != nil {
				return nil, err
			}
		}
		n.types[t.Name] = typ
		members := newNameClaims(g.Name())
		members.owners["BufferSize"] = "method"
		members.owners["Encode"] = "method"
		fields := make([]string, 0, len(t.Slots))
		for _, s := range t.Slots {
			f := exportName(s.Name)
			if err := members.claim(f, t.Name+"."+s.Name); err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		n.fields[t.Name] = fields
	}
	return n, nil
}

func (g *Go) Render(u *Unit) ([]byte, error) {
	if !token.IsIdentifier(g.pkg) || token.IsKeyword(g.pkg) {
		return nil, &GenerateError{Backend: g.Name(), Err: fmt.Errorf("%w: package %q", ErrReservedName, g.pkg)}
	}
	n, err := g.names(u)
	if err != nil {
		return nil, err
	}

	w := newCodeWriter("\t")
	w.line(0, "// Code generated by buffham from %s. DO NOT EDIT.", u.Source)
	w.line(0, "// %s", bannerSource(u.Source))
	w.blank()
	w.line(0, "package %s", g.pkg)
	w.blank()
	w.line(0, "import (")
	w.line(1, `"encoding/binary"`)
	w.line(1, `"errors"`)
	w.line(1, `"fmt"`)
	w.line(0, ")")
	w.blank()
	w.line(0, "// %s is wrapped by every Decode function in this file.", n.errName)
	w.line(0, "var %s = errors.New(%q)", n.errName, strings.ToLower(u.Stem)+": malformed message")
	w.blank()
	w.line(0, "func %s(buf []byte, id uint8, payloadSize uint16) error {", n.check)
	w.line(1, "if len(buf) < %d {", u.HeaderLen)
	w.line(2, "return fmt.Errorf(\"%%w: short header\", %s)", n.errName)
	w.line(1, "}")
	w.line(1, "if buf[0] != %q || buf[1] != %q {", u.Magic[0], u.Magic[1])
	w.line(2, "return fmt.Errorf(\"%%w: invalid magic\", %s)", n.errName)
	w.line(1, "}")
	w.line(1, "if buf[2] != id {")
	w.line(2, "return fmt.Errorf(\"%%w: message id %%d, want %%d\", %s, buf[2], id)", n.errName)
	w.line(1, "}")
	w.line(1, "if got := binary.LittleEndian.Uint16(buf[3:5]); got != payloadSize {")
	w.line(2, "return fmt.Errorf(\"%%w: payload length %%d, want %%d\", %s, got, payloadSize)", n.errName)
	w.line(1, "}")
	w.line(1, "if len(buf) < %d+int(payloadSize) {", u.HeaderLen)
	w.line(2, "return fmt.Errorf(\"%%w: short payload\", %s)", n.errName)
	w.line(1, "}")
	w.line(1, "return nil")
	w.line(0, "}")

	for _, t := range u.Types {
		typ := n.types[t.Name]
		fields := n.fields[t.Name]
		w.blank()
		w.line(0, "const (")
		w.line(1, "%sID = %d", typ, t.ID)
		w.line(1, "%sPayloadSize = %d", typ, t.PayloadSize)
		w.line(0, ")")
		w.blank()
		w.line(0, "// %s is message %d of %s.", typ, t.ID, u.Source)
		w.line(0, "type %s struct {", typ)
		for i, s := range t.Slots {
			w.line(1, "%s %s", fields[i], s.Native)
		}
		w.line(0, "}")
		w.blank()
		w.line(0, "func (%s) BufferSize() int { return %d }", typ, t.TotalSize)
		w.blank()
		w.line(0, "func (m *%s) Encode() []byte {", typ)
		w.line(1, "buf := make([]byte, %d)", t.TotalSize)
		w.line(1, "buf[0], buf[1], buf[2] = %q, %q, %sID", u.Magic[0], u.Magic[1], typ)
		w.line(1, "binary.LittleEndian.PutUint16(buf[3:5], %sPayloadSize)", typ)
		for i, s := range t.Slots {
			w.line(1, "binary.LittleEndian.Put%s(buf[%d:%d], m.%s)", s.Codec, s.Offset, s.End(), fields[i])
		}
		w.line(1, "return buf")
		w.line(0, "}")
		w.blank()
		w.line(0, "func Decode%s(buf []byte) (%s, error) {", typ, typ)
		w.line(1, "if err := %s(buf, %sID, %sPayloadSize); err != nil {", n.check, typ, typ)
		w.line(2, "return %s{}, fmt.Errorf(\"decode %s: %%w\", err)", typ, typ)
		w.line(1, "}")
		w.line(1, "return %s{", typ)
		for i, s := range t.Slots {
			w.line(2, "%s: binary.LittleEndian.%s(buf[%d:%d]),", fields[i], s.Codec, s.Offset, s.End())
		}
		w.line(1, "}, nil")
		w.line(0, "}")
	}

	out, err := format.Source(w.bytes())
	if err != nil {
		return nil, &GenerateError{Backend: g.Name(), Err: fmt.Errorf("format: %w", err)}
	}
	return out, nil
}
