package protocol

import (
	"fmt"
	"strings"
)

// FieldType is one entry of the closed primitive catalog.
type FieldType uint8

const (
	Uint16 FieldType = iota + 1
	Uint64
)

type typeInfo struct {
	keyword string
	width   int
}

var catalog = map[FieldType]typeInfo{
	Uint16: {keyword: "uint16", width: 2},
	Uint64: {keyword: "uint64", width: 8},
}

// catalogOrder fixes iteration order for backends and docs.
var catalogOrder = []FieldType{Uint16, Uint64}

var keywords = func() map[string]FieldType {
	out := make(map[string]FieldType, len(catalog))
	for t, info := range catalog {
		out[info.keyword] = t
	}
	return out
}()

// Lookup resolves a lowercase type keyword.
func Lookup(keyword string) (FieldType, error) {
	t, ok := keywords[keyword]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, keyword)
	}
	return t, nil
}

// Catalog returns every known field type in declaration order.
func Catalog() []FieldType {
	out := make([]FieldType, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// Keywords returns the schema keywords of the catalog, joined for messages.
func Keywords() string {
	names := make([]string, 0, len(catalogOrder))
	for _, t := range catalogOrder {
		names = append(names, catalog[t].keyword)
	}
	return strings.Join(names, "|")
}

// Valid reports whether t is a catalog member.
func (t FieldType) Valid() bool {
	_, ok := catalog[t]
	return ok
}

// Width is the encoded size in bytes. Zero for unknown types.
func (t FieldType) Width() int {
	return catalog[t].width
}

// Keyword is the schema spelling of the type.
func (t FieldType) Keyword() string {
	if info, ok := catalog[t]; ok {
		return info.keyword
	}
	return ""
}

// Max is the largest value representable in the type's width.
func (t FieldType) Max() uint64 {
	w := t.Width()
	if w >= 8 {
		return ^uint64(0)
	}
	return 1<<(uint(w)*8) - 1
}

func (t FieldType) String() string {
	if kw := t.Keyword(); kw != "" {
		return kw
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}
