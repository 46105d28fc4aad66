package protocol

import "errors"

var (
	ErrUnknownType   = errors.New("protocol: unknown field type")
	ErrInvalidLength = errors.New("protocol: invalid length")
	ErrOutOfRange    = errors.New("protocol: value out of range")
)
