package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnmatchedLine     = errors.New("schema: unmatched line")
	ErrEmptyMessage      = errors.New("schema: message has no attributes")
	ErrUnknownType       = errors.New("schema: unknown type keyword")
	ErrDuplicateField    = errors.New("schema: duplicate field name")
	ErrDuplicateMessage  = errors.New("schema: duplicate message name")
	ErrInvalidIdentifier = errors.New("schema: invalid identifier")

	ErrPayloadTooLarge = errors.New("schema: payload exceeds header length field")
	ErrIDOverflow      = errors.New("schema: message id exceeds header id field")
)

// ParseError locates a failure in schema text.
type ParseError struct {
	Source  string
	Line    int
	Text    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.Source != "" {
		loc = fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	switch {
	case errors.Is(e.Err, ErrEmptyMessage):
		return fmt.Sprintf("%s: message `%s` has no attributes", loc, e.Message)
	case errors.Is(e.Err, ErrPayloadTooLarge), errors.Is(e.Err, ErrIDOverflow):
		return fmt.Sprintf("%s: message `%s`: %v", loc, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: failed to parse %q as an attribute of %s: %v", loc, e.Text, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: failed to parse %q as top-level message declaration: %v", loc, e.Text, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
