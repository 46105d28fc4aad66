package protocol

import (
	"encoding/binary"
	"fmt"
)

// PutUint writes v at the start of buf using t's width, little-endian.
func PutUint(t FieldType, buf []byte, v uint64) error {
	if len(buf) < t.Width() {
		return ErrInvalidLength
	}
	if v > t.Max() {
		return fmt.Errorf("%w: %d does not fit %s", ErrOutOfRange, v, t)
	}
	switch t {
	case Uint16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case Uint64:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return nil
}

// Uint reads a t-width little-endian scalar from the start of buf.
func Uint(t FieldType, buf []byte) (uint64, error) {
	if len(buf) < t.Width() {
		return 0, ErrInvalidLength
	}
	switch t {
	case Uint16:
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case Uint64:
		return binary.LittleEndian.Uint64(buf), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
