package gen

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
)

const (
	bannerTitle = "AUTOGENERATED CODE. DO NOT EDIT."
	tab         = "    "
)

func bannerSource(source string) string {
	return "Buffham generated from " + source
}

// codeWriter accumulates indented lines.
type codeWriter struct {
	buf    bytes.Buffer
	indent string
}

func newCodeWriter(indent string) *codeWriter {
	return &codeWriter{indent: indent}
}

func (w *codeWriter) line(depth int, format string, args ...any) {
	w.buf.WriteString(strings.Repeat(w.indent, depth))
	if len(args) == 0 {
		w.buf.WriteString(format)
	} else {
		fmt.Fprintf(&w.buf, format, args...)
	}
	w.buf.WriteByte('\n')
}

func (w *codeWriter) blank() {
	w.buf.WriteByte('\n')
}

func (w *codeWriter) bytes() []byte {
	return w.buf.Bytes()
}

// nameClaims records which declaration owns each generated identifier in
// one unit.
type nameClaims struct {
	backend string
	owners  map[string]string
}

func newNameClaims(backend string) *nameClaims {
	return &nameClaims{backend: backend, owners: make(map[string]string)}
}

func (c *nameClaims) claim(name, owner string) error {
	if prev, ok := c.owners[name]; ok {
		return &GenerateError{Backend: c.backend, Message: owner, Err: fmt.Errorf("%w: %s (also %s)", ErrNameCollision, name, prev)}
	}
	c.owners[name] = owner
	return nil
}

func (c *nameClaims) owned(name string) bool {
	_, ok := c.owners[name]
	return ok
}

// exportName converts snake or kebab case into an exported Go-style name.
func exportName(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == '.' || unicode.IsSpace(r) {
			upper = true
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "X"
	}
	if first := []rune(out)[0]; !unicode.IsLetter(first) {
		out = "X" + out
	}
	return out
}

// macroName converts a file stem into an upper-case C macro fragment.
func macroName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
