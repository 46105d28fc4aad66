package gen

import (
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
)

var cKeywords = wordSet(
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "restrict", "return", "short",
	"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
	"unsigned", "void", "volatile", "while", "_Bool", "_Complex", "_Imaginary",
	"bool", "true", "false", "NULL",
	"size_t", "uint8_t", "uint16_t", "uint32_t", "uint64_t",
	"ptrdiff_t", "wchar_t", "max_align_t", "offsetof",
	"malloc", "calloc", "realloc", "free",
)

// Generated helpers, macros and locals live under these prefixes.
var cReservedPrefixes = []string{"bh_", "BH_", "BUFFHAM_"}

func hasCReservedPrefix(name string) bool {
	for _, p := range cReservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// C renders a header-only C99 unit: a typedef'd struct per message and
// <Name>_buffer_size, <Name>_encode, <Name>_decode functions.
type C struct{}

func NewC() *C { return &C{} }

func (C) Name() string { return "c" }

func (C) Suffix() string { return "_bh.h" }

func (C) Types() TypeMap {
	return TypeMap{
		protocol.Uint16: {Native: "uint16_t", Codec: "u16"},
		protocol.Uint64: {Native: "uint64_t", Codec: "u64"},
	}
}

func (C) Reserved(name string) bool { return cKeywords[name] || hasCReservedPrefix(name) }

// checkNames claims every file-scope identifier the unit declares. Fields
// are struct members, so they only clash with the object-like macros.
func (c C) checkNames(u *Unit) error {
	global := newNameClaims(c.Name())
	macros := newNameClaims(c.Name())
	for _, t := range u.Types {
		for _, name := range []string{t.Name, t.Name + "_buffer_size", t.Name + "_encode", t.Name + "_decode"} {
			if err := global.claim(name, t.Name); err != nil {
				return err
			}
		}
		for _, name := range []string{t.Name + "_ID", t.Name + "_PAYLOAD_SIZE"} {
			if err := global.claim(name, t.Name); err != nil {
				return err
			}
			macros.owners[name] = t.Name
		}
	}
	for _, t := range u.Types {
		for _, s := range t.Slots {
			if macros.owned(s.Name) {
				return macros.claim(s.Name, t.Name+"."+s.Name)
			}
		}
	}
	return nil
}

func (c C) Render(u *Unit) ([]byte, error) {
	if err := c.checkNames(u); err != nil {
		return nil, err
	}
	w := newCodeWriter(tab)
	guard := "BUFFHAM_" + macroName(u.Stem) + "_BH_H"

	w.line(0, "/*")
	w.line(0, " * %s", bannerTitle)
	w.line(0, " * %s", bannerSource(u.Source))
	w.line(0, " */")
	w.line(0, "#ifndef %s", guard)
	w.line(0, "#define %s", guard)
	w.blank()
	w.line(0, "#include <stddef.h>")
	w.line(0, "#include <stdint.h>")
	w.line(0, "#include <stdlib.h>")
	w.blank()
	writeCWireHelpers(w, u, c.Types())

	for _, t := range u.Types {
		w.blank()
		w.line(0, "typedef struct {")
		for _, s := range t.Slots {
			w.line(1, "%s %s;", s.Native, s.Name)
		}
		w.line(0, "} %s;", t.Name)
		w.blank()
		w.line(0, "#define %s_ID %d", t.Name, t.ID)
		w.line(0, "#define %s_PAYLOAD_SIZE %d", t.Name, t.PayloadSize)
		w.blank()
		w.line(0, "static inline size_t %s_buffer_size(const %s* bh_msg) {", t.Name, t.Name)
		w.line(1, "(void)bh_msg;")
		w.line(1, "return %d;", t.TotalSize)
		w.line(0, "}")
		w.blank()
		w.line(0, "/* Returns a malloc'd buffer of %s_buffer_size() bytes, or NULL. */", t.Name)
		w.line(0, "static inline uint8_t* %s_encode(const %s* bh_msg) {", t.Name, t.Name)
		w.line(1, "uint8_t* bh_buf = (uint8_t*)malloc(%d);", t.TotalSize)
		w.line(1, "if (bh_buf == NULL) {")
		w.line(2, "return NULL;")
		w.line(1, "}")
		w.line(1, "bh_put_header(bh_buf, %d, %d);", t.ID, t.PayloadSize)
		for _, s := range t.Slots {
			w.line(1, "bh_put_%s(bh_buf + %d, bh_msg->%s);", s.Codec, s.Offset, s.Name)
		}
		w.line(1, "return bh_buf;")
		w.line(0, "}")
		w.blank()
		w.line(0, "/* Returns BH_OK and fills bh_out, or BH_MALFORMED without touching it. */")
		w.line(0, "static inline int %s_decode(const uint8_t* bh_buf, size_t bh_len, %s* bh_out) {", t.Name, t.Name)
		w.line(1, "if (bh_check_header(bh_buf, bh_len, %d, %d) != BH_OK) {", t.ID, t.PayloadSize)
		w.line(2, "return BH_MALFORMED;")
		w.line(1, "}")
		for _, s := range t.Slots {
			w.line(1, "bh_out->%s = bh_get_%s(bh_buf + %d);", s.Name, s.Codec, s.Offset)
		}
		w.line(1, "return BH_OK;")
		w.line(0, "}")
	}

	w.blank()
	w.line(0, "#endif /* %s */", guard)
	return w.bytes(), nil
}

// writeCWireHelpers emits the shared framing helpers once per translation
// unit. Both the C and C++ backends use the same byte loops.
func writeCWireHelpers(w *codeWriter, u *Unit, types TypeMap) {
	w.line(0, "#ifndef BUFFHAM_WIRE_HELPERS")
	w.line(0, "#define BUFFHAM_WIRE_HELPERS")
	w.blank()
	w.line(0, "#define BH_MAGIC_0 0x%02X", u.Magic[0])
	w.line(0, "#define BH_MAGIC_1 0x%02X", u.Magic[1])
	w.line(0, "#define BH_HEADER_SIZE %d", u.HeaderLen)
	w.line(0, "#define BH_OK 0")
	w.line(0, "#define BH_MALFORMED -1")
	w.blank()
	for _, t := range protocol.Catalog() {
		s := types[t]
		w.line(0, "static inline void bh_put_%s(uint8_t* p, %s v) {", s.Codec, s.Native)
		w.line(1, "for (size_t i = 0; i < %d; ++i) {", t.Width())
		w.line(2, "p[i] = (uint8_t)(v >> (8 * i));")
		w.line(1, "}")
		w.line(0, "}")
		w.blank()
		w.line(0, "static inline %s bh_get_%s(const uint8_t* p) {", s.Native, s.Codec)
		w.line(1, "%s v = 0;", s.Native)
		w.line(1, "for (size_t i = %d; i-- > 0;) {", t.Width())
		w.line(2, "v = (%s)((v << 8) | p[i]);", s.Native)
		w.line(1, "}")
		w.line(1, "return v;")
		w.line(0, "}")
		w.blank()
	}
	w.line(0, "static inline void bh_put_header(uint8_t* p, uint8_t id, uint16_t payload_size) {")
	w.line(1, "p[0] = BH_MAGIC_0;")
	w.line(1, "p[1] = BH_MAGIC_1;")
	w.line(1, "p[2] = id;")
	w.line(1, "p[3] = (uint8_t)payload_size;")
	w.line(1, "p[4] = (uint8_t)(payload_size >> 8);")
	w.line(0, "}")
	w.blank()
	w.line(0, "static inline int bh_check_header(const uint8_t* p, size_t len, uint8_t id, uint16_t payload_size) {")
	w.line(1, "if (p == NULL || len < BH_HEADER_SIZE) {")
	w.line(2, "return BH_MALFORMED;")
	w.line(1, "}")
	w.line(1, "if (p[0] != BH_MAGIC_0 || p[1] != BH_MAGIC_1) {")
	w.line(2, "return BH_MALFORMED;")
	w.line(1, "}")
	w.line(1, "if (p[2] != id) {")
	w.line(2, "return BH_MALFORMED;")
	w.line(1, "}")
	w.line(1, "if ((uint16_t)(p[3] | (p[4] << 8)) != payload_size) {")
	w.line(2, "return BH_MALFORMED;")
	w.line(1, "}")
	w.line(1, "if (len < (size_t)BH_HEADER_SIZE + payload_size) {")
	w.line(2, "return BH_MALFORMED;")
	w.line(1, "}")
	w.line(1, "return BH_OK;")
	w.line(0, "}")
	w.blank()
	w.line(0, "#endif /* BUFFHAM_WIRE_HELPERS */")
}
