package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/buffham/internal/protocol"
	"github.com/rs/zerolog/log"
)

const messagePrefix = "message "

// ParseOptions controls one parse call.
type ParseOptions struct {
	// Counter assigns message ids. Nil starts a fresh counter at 0.
	Counter *Counter
	// Source names the input in errors and logs.
	Source string
}

type block struct {
	name   string
	line   int
	fields []Field
	seen   map[string]struct{}
}

// Parse turns schema text into messages in declaration order. Any malformed
// line aborts the whole parse and no ids are consumed.
func Parse(text string, opts ParseOptions) ([]*Message, error) {
	counter := opts.Counter
	if counter == nil {
		counter = NewCounter(0)
	}

	blocks, err := scan(text, opts.Source)
	if err != nil {
		log.Debug().Msgf("schema.Parse failed source=%s err=%v", opts.Source, err)
		return nil, err
	}

	var messages []*Message
	err = counter.commit(len(blocks), func(first int) error {
		out := make([]*Message, 0, len(blocks))
		for i, b := range blocks {
			msg, err := NewMessage(b.name, b.fields, first+i)
			if err != nil {
				return &ParseError{Source: opts.Source, Line: b.line, Message: b.name, Err: err}
			}
			out = append(out, msg)
		}
		messages = out
		return nil
	})
	if err != nil {
		log.Debug().Msgf("schema.Parse failed source=%s err=%v", opts.Source, err)
		return nil, err
	}
	log.Debug().Msgf("schema.Parse ok source=%s messages=%d", opts.Source, len(messages))
	return messages, nil
}

// ParseFile reads and parses path. Source defaults to the file's base name.
func ParseFile(path string, opts ParseOptions) ([]*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	return Parse(string(data), opts)
}

func scan(text, source string) ([]*block, error) {
	var (
		blocks []*block
		cur    *block
		names  = make(map[string]int)
	)
	fail := func(line int, raw string, msg string, err error) error {
		return &ParseError{Source: source, Line: line, Text: raw, Message: msg, Err: err}
	}
	closeBlock := func() error {
		if len(cur.fields) == 0 {
			return fail(cur.line, messagePrefix+cur.name+":", cur.name, ErrEmptyMessage)
		}
		blocks = append(blocks, cur)
		cur = nil
		return nil
	}

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSuffix(raw, "\r")
		blank := strings.TrimSpace(line) == ""

		if cur == nil {
			if blank || isComment(line) {
				continue
			}
			name, ok := matchMessage(line)
			if !ok {
				return nil, fail(lineNo, line, "", ErrUnmatchedLine)
			}
			if prev, dup := names[name]; dup {
				return nil, fail(lineNo, line, "", fmt.Errorf("%w: %s (first declared on line %d)", ErrDuplicateMessage, name, prev))
			}
			names[name] = lineNo
			cur = &block{name: name, line: lineNo, seen: make(map[string]struct{})}
			continue
		}

		switch {
		case blank:
			if err := closeBlock(); err != nil {
				return nil, err
			}
		case isComment(line):
		default:
			f, err := matchAttribute(line)
			if err != nil {
				return nil, fail(lineNo, line, cur.name, err)
			}
			if _, dup := cur.seen[f.Name]; dup {
				return nil, fail(lineNo, line, cur.name, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name))
			}
			cur.seen[f.Name] = struct{}{}
			cur.fields = append(cur.fields, f)
		}
	}
	if cur != nil {
		if err := closeBlock(); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "#")
}

// matchMessage accepts exactly "message <identifier>:".
func matchMessage(line string) (string, bool) {
	if !strings.HasPrefix(line, messagePrefix) || !strings.HasSuffix(line, ":") {
		return "", false
	}
	name := line[len(messagePrefix) : len(line)-1]
	if !IsIdentifier(name) {
		return "", false
	}
	return name, true
}

// matchAttribute accepts "<ws>*<type keyword><ws>+<identifier><ws>*".
func matchAttribute(line string) (Field, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return Field{}, ErrUnmatchedLine
	}
	kw, name := tokens[0], tokens[1]
	t, err := protocol.Lookup(kw)
	if err != nil {
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && IsIdentifier(kw) && IsIdentifier(name) {
			return Field{}, fmt.Errorf("%w: %q (want %s)", ErrUnknownType, kw, protocol.Keywords())
		}
		return Field{}, ErrUnmatchedLine
	}
	if !IsIdentifier(name) {
		return Field{}, fmt.Errorf("%w: field name %q", ErrInvalidIdentifier, name)
	}
	return Field{Name: name, Type: t}, nil
}
