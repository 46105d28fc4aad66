package gen

import (
	"github.com/danmuck/buffham/internal/protocol"
)

var cxxReserved = func() map[string]bool {
	words := wordSet(
		"alignas", "alignof", "and", "asm", "bool", "catch", "char16_t",
		"char32_t", "class", "compl", "constexpr", "const_cast", "decltype",
		"delete", "dynamic_cast", "explicit", "export", "friend", "mutable",
		"namespace", "new", "noexcept", "not", "nullptr", "operator", "or",
		"private", "protected", "public", "reinterpret_cast", "static_assert",
		"static_cast", "template", "this", "thread_local", "throw", "try",
		"typeid", "typename", "using", "virtual", "wchar_t", "xor",
		// members every generated struct declares
		"buffer_size", "encode", "decode", "ID", "PAYLOAD_SIZE",
		"buffham", "std",
	)
	for w := range cKeywords {
		words[w] = true
	}
	return words
}()

// Cxx renders a C++11 header: one aggregate struct per message with
// buffer_size(), encode() and a static decode() that throws
// buffham::MalformedMessage.
type Cxx struct{}

func NewCxx() *Cxx { return &Cxx{} }

func (Cxx) Name() string { return "cxx" }

func (Cxx) Suffix() string { return "_bh.hpp" }

func (Cxx) Types() TypeMap {
	return TypeMap{
		protocol.Uint16: {Native: "uint16_t", Codec: "u16"},
		protocol.Uint64: {Native: "uint64_t", Codec: "u64"},
	}
}

func (Cxx) Reserved(name string) bool { return cxxReserved[name] || hasCReservedPrefix(name) }

// checkNames rejects a member named after its enclosing struct, which C++
// reads as a constructor declaration.
func (c Cxx) checkNames(u *Unit) error {
	for _, t := range u.Types {
		members := newNameClaims(c.Name())
		members.owners[t.Name] = "struct " + t.Name
		for _, s := range t.Slots {
			if err := members.claim(s.Name, t.Name+"."+s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Cxx) Render(u *Unit) ([]byte, error) {
	if err := c.checkNames(u); err != nil {
		return nil, err
	}
	w := newCodeWriter(tab)
	types := c.Types()

	w.line(0, "/*")
	w.line(0, " * %s", bannerTitle)
	w.line(0, " * %s", bannerSource(u.Source))
	w.line(0, " */")
	w.line(0, "#pragma once")
	w.blank()
	w.line(0, "#include <cstddef>")
	w.line(0, "#include <cstdint>")
	w.line(0, "#include <stdexcept>")
	w.line(0, "#include <vector>")
	w.blank()
	w.line(0, "#ifndef BUFFHAM_WIRE_HELPERS_HPP")
	w.line(0, "#define BUFFHAM_WIRE_HELPERS_HPP")
	w.line(0, "namespace buffham {")
	w.blank()
	w.line(0, "constexpr uint8_t kMagic0 = 0x%02X;", u.Magic[0])
	w.line(0, "constexpr uint8_t kMagic1 = 0x%02X;", u.Magic[1])
	w.line(0, "constexpr size_t kHeaderSize = %d;", u.HeaderLen)
	w.blank()
	w.line(0, "struct MalformedMessage : std::runtime_error {")
	w.line(1, "explicit MalformedMessage(const char* what) : std::runtime_error(what) {}")
	w.line(0, "};")
	w.blank()
	for _, t := range protocol.Catalog() {
		s := types[t]
		w.line(0, "inline void put_%s(uint8_t* p, %s v) {", s.Codec, s.Native)
		w.line(1, "for (size_t i = 0; i < %d; ++i) {", t.Width())
		w.line(2, "p[i] = static_cast<uint8_t>(v >> (8 * i));")
		w.line(1, "}")
		w.line(0, "}")
		w.blank()
		w.line(0, "inline %s get_%s(const uint8_t* p) {", s.Native, s.Codec)
		w.line(1, "%s v = 0;", s.Native)
		w.line(1, "for (size_t i = %d; i-- > 0;) {", t.Width())
		w.line(2, "v = static_cast<%s>((v << 8) | p[i]);", s.Native)
		w.line(1, "}")
		w.line(1, "return v;")
		w.line(0, "}")
		w.blank()
	}
	w.line(0, "inline void put_header(uint8_t* p, uint8_t id, uint16_t payload_size) {")
	w.line(1, "p[0] = kMagic0;")
	w.line(1, "p[1] = kMagic1;")
	w.line(1, "p[2] = id;")
	w.line(1, "put_u16(p + 3, payload_size);")
	w.line(0, "}")
	w.blank()
	w.line(0, "inline void check_header(const uint8_t* p, size_t len, uint8_t id, uint16_t payload_size) {")
	w.line(1, "if (p == nullptr || len < kHeaderSize) {")
	w.line(2, "throw MalformedMessage(\"buffham: short header\");")
	w.line(1, "}")
	w.line(1, "if (p[0] != kMagic0 || p[1] != kMagic1) {")
	w.line(2, "throw MalformedMessage(\"buffham: invalid magic\");")
	w.line(1, "}")
	w.line(1, "if (p[2] != id) {")
	w.line(2, "throw MalformedMessage(\"buffham: message id mismatch\");")
	w.line(1, "}")
	w.line(1, "if (get_u16(p + 3) != payload_size) {")
	w.line(2, "throw MalformedMessage(\"buffham: payload length mismatch\");")
	w.line(1, "}")
	w.line(1, "if (len < kHeaderSize + payload_size) {")
	w.line(2, "throw MalformedMessage(\"buffham: short payload\");")
	w.line(1, "}")
	w.line(0, "}")
	w.blank()
	w.line(0, "}  // namespace buffham")
	w.line(0, "#endif  // BUFFHAM_WIRE_HELPERS_HPP")

	for _, t := range u.Types {
		w.blank()
		w.line(0, "struct %s {", t.Name)
		for _, s := range t.Slots {
			w.line(1, "%s %s;", s.Native, s.Name)
		}
		w.blank()
		w.line(1, "static constexpr uint8_t ID = %d;", t.ID)
		w.line(1, "static constexpr uint16_t PAYLOAD_SIZE = %d;", t.PayloadSize)
		w.blank()
		w.line(1, "size_t buffer_size() const {")
		w.line(2, "return %d;", t.TotalSize)
		w.line(1, "}")
		w.blank()
		w.line(1, "std::vector<uint8_t> encode() const {")
		w.line(2, "std::vector<uint8_t> bh_buf(%d);", t.TotalSize)
		w.line(2, "buffham::put_header(bh_buf.data(), ID, PAYLOAD_SIZE);")
		for _, s := range t.Slots {
			w.line(2, "buffham::put_%s(bh_buf.data() + %d, this->%s);", s.Codec, s.Offset, s.Name)
		}
		w.line(2, "return bh_buf;")
		w.line(1, "}")
		w.blank()
		w.line(1, "static %s decode(const uint8_t* bh_buf, size_t bh_len) {", t.Name)
		w.line(2, "buffham::check_header(bh_buf, bh_len, ID, PAYLOAD_SIZE);")
		w.line(2, "%s bh_msg{};", t.Name)
		for _, s := range t.Slots {
			w.line(2, "bh_msg.%s = buffham::get_%s(bh_buf + %d);", s.Name, s.Codec, s.Offset)
		}
		w.line(2, "return bh_msg;")
		w.line(1, "}")
		w.blank()
		w.line(1, "static %s decode(const std::vector<uint8_t>& bh_buf) {", t.Name)
		w.line(2, "return decode(bh_buf.data(), bh_buf.size());")
		w.line(1, "}")
		w.line(0, "};")
	}
	return w.bytes(), nil
}
