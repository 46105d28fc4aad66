package gen

import (
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
)

var pythonReserved = wordSet(
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
	"self", "cls", "struct",
	// class attributes every generated type declares
	"ID", "PAYLOAD_SIZE", "buffer_size", "encode", "decode",
	"_FORMAT", "MAGIC", "HEADER_SIZE", "MalformedMessage",
)

// pythonModuleNames are globals, builtins and method locals the generated
// code refers to by name. A class with one of these names breaks lookup.
var pythonModuleNames = []string{
	"struct", "MAGIC", "HEADER_SIZE", "_HEADER", "MalformedMessage",
	"_check_header", "len", "isinstance", "ValueError", "NotImplemented",
	"staticmethod", "classmethod", "other",
}

// Python renders a module with one class per message. Payloads go through
// struct.Struct with an explicit '<' (little-endian, no padding) format.
type Python struct{}

func NewPython() *Python { return &Python{} }

func (Python) Name() string { return "python" }

func (Python) Suffix() string { return "_bh.py" }

func (Python) Types() TypeMap {
	return TypeMap{
		protocol.Uint16: {Native: "int", Codec: "H"},
		protocol.Uint64: {Native: "int", Codec: "Q"},
	}
}

func (Python) Reserved(name string) bool {
	return pythonReserved[name] || strings.HasPrefix(name, "__")
}

// pythonFormat is the struct format for a whole encoded message: magic,
// id, payload length, then each slot in order.
func pythonFormat(t TypeDecl) string {
	var b strings.Builder
	b.WriteString("<2sBH")
	for _, s := range t.Slots {
		b.WriteString(s.Codec)
	}
	return b.String()
}

func (p Python) checkNames(u *Unit) error {
	module := newNameClaims(p.Name())
	for _, name := range pythonModuleNames {
		module.owners[name] = "module"
	}
	for _, t := range u.Types {
		if err := module.claim(t.Name, t.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p Python) Render(u *Unit) ([]byte, error) {
	if err := p.checkNames(u); err != nil {
		return nil, err
	}
	w := newCodeWriter(tab)
	w.line(0, "# %s", bannerTitle)
	w.line(0, "# %s", bannerSource(u.Source))
	w.line(0, "import struct")
	w.blank()
	w.line(0, "MAGIC = b'%s'", u.Magic)
	w.line(0, "HEADER_SIZE = %d", u.HeaderLen)
	w.line(0, "_HEADER = struct.Struct('<2sBH')")
	w.blank()
	w.blank()
	w.line(0, "class MalformedMessage(ValueError):")
	w.line(1, "pass")
	w.blank()
	w.blank()
	w.line(0, "def _check_header(buffer, message_id, payload_size):")
	w.line(1, "if len(buffer) < HEADER_SIZE:")
	w.line(2, "raise MalformedMessage('short header')")
	w.line(1, "magic, got_id, got_size = _HEADER.unpack_from(buffer)")
	w.line(1, "if magic != MAGIC:")
	w.line(2, "raise MalformedMessage('invalid magic')")
	w.line(1, "if got_id != message_id:")
	w.line(2, "raise MalformedMessage('message id mismatch')")
	w.line(1, "if got_size != payload_size:")
	w.line(2, "raise MalformedMessage('payload length mismatch')")
	w.line(1, "if len(buffer) < HEADER_SIZE + payload_size:")
	w.line(2, "raise MalformedMessage('short payload')")

	for _, t := range u.Types {
		names := make([]string, 0, len(t.Slots))
		for _, s := range t.Slots {
			names = append(names, s.Name)
		}
		params := make([]string, 0, len(names))
		selfs := make([]string, 0, len(names))
		for _, n := range names {
			params = append(params, n+"=0")
			selfs = append(selfs, "self."+n)
		}

		w.blank()
		w.blank()
		w.line(0, "class %s:", t.Name)
		w.line(1, "ID = %d", t.ID)
		w.line(1, "PAYLOAD_SIZE = %d", t.PayloadSize)
		w.line(1, "_FORMAT = struct.Struct('%s')", pythonFormat(t))
		w.line(1, "__slots__ = (%s)", pythonTuple(quoted(names)))
		w.blank()
		w.line(1, "def __init__(self, %s):", strings.Join(params, ", "))
		for _, n := range names {
			w.line(2, "self.%s = %s", n, n)
		}
		w.blank()
		w.line(1, "@staticmethod")
		w.line(1, "def buffer_size():")
		w.line(2, "return %d", t.TotalSize)
		w.blank()
		w.line(1, "def encode(self):")
		w.line(2, "return self._FORMAT.pack(MAGIC, self.ID, self.PAYLOAD_SIZE, %s)", strings.Join(selfs, ", "))
		w.blank()
		w.line(1, "@classmethod")
		w.line(1, "def decode(cls, buffer):")
		w.line(2, "_check_header(buffer, cls.ID, cls.PAYLOAD_SIZE)")
		w.line(2, "return cls(*cls._FORMAT.unpack_from(buffer)[3:])")
		w.blank()
		w.line(1, "def __eq__(self, other):")
		w.line(2, "if not isinstance(other, %s):", t.Name)
		w.line(3, "return NotImplemented")
		w.line(2, "return (%s) == (%s)", pythonTuple(selfs), pythonTuple(prefixed("other.", names)))
		w.blank()
		w.line(1, "def __repr__(self):")
		reprs := make([]string, 0, len(names))
		for _, n := range names {
			reprs = append(reprs, n+"={self."+n+"!r}")
		}
		w.line(2, "return f'%s(%s)'", t.Name, strings.Join(reprs, ", "))
	}
	return w.bytes(), nil
}

func pythonTuple(items []string) string {
	if len(items) == 1 {
		return items[0] + ","
	}
	return strings.Join(items, ", ")
}

func prefixed(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

func quoted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "'" + n + "'"
	}
	return out
}
