package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Magic opens every frame.
	Magic = "Bh"

	HeaderLen     = 5
	MaxPayloadLen = 0xFFFF
	MaxMessageID  = 0xFF
)

var (
	ErrMalformed       = errors.New("frame: malformed message")
	ErrShortHeader     = fmt.Errorf("%w: short header", ErrMalformed)
	ErrInvalidMagic    = fmt.Errorf("%w: invalid magic", ErrMalformed)
	ErrIDMismatch      = fmt.Errorf("%w: message id mismatch", ErrMalformed)
	ErrLengthMismatch  = fmt.Errorf("%w: payload length mismatch", ErrMalformed)
	ErrShortPayload    = fmt.Errorf("%w: short payload", ErrMalformed)
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Header is the fixed 5-byte wire header: magic, id, payload length (LE).
type Header struct {
	MessageID  uint8
	PayloadLen uint16
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains stream decode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: MaxPayloadLen}
}

// EncodeHeader returns a fresh HeaderLen-byte header.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	PutHeader(buf, h)
	return buf
}

// PutHeader writes h into the first HeaderLen bytes of buf.
func PutHeader(buf []byte, h Header) {
	buf[0] = Magic[0]
	buf[1] = Magic[1]
	buf[2] = h.MessageID
	binary.LittleEndian.PutUint16(buf[3:5], h.PayloadLen)
}

// DecodeHeader parses the header at the start of b and checks the magic.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	if b[0] != Magic[0] || b[1] != Magic[1] {
		return Header{}, ErrInvalidMagic
	}
	return Header{
		MessageID:  b[2],
		PayloadLen: binary.LittleEndian.Uint16(b[3:5]),
	}, nil
}

// Verify runs the decode checks in wire order: header length, magic, id,
// payload length, then payload presence. Nothing past the header is read.
func Verify(b []byte, id uint8, payloadLen uint16) error {
	h, err := DecodeHeader(b)
	if err != nil {
		return err
	}
	if h.MessageID != id {
		return fmt.Errorf("%w: got=%d want=%d", ErrIDMismatch, h.MessageID, id)
	}
	if h.PayloadLen != payloadLen {
		return fmt.Errorf("%w: got=%d want=%d", ErrLengthMismatch, h.PayloadLen, payloadLen)
	}
	if len(b) < HeaderLen+int(payloadLen) {
		return fmt.Errorf("%w: have=%d want=%d", ErrShortPayload, len(b)-HeaderLen, payloadLen)
	}
	return nil
}

// ReadFrame reads one frame from a stream of concatenated frames.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if int(h.PayloadLen) > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, ErrShortPayload
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes f, deriving the length field from the payload.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if len(f.Payload) > limits.MaxPayloadBytes || len(f.Payload) > MaxPayloadLen {
		return ErrPayloadTooLarge
	}
	h := f.Header
	h.PayloadLen = uint16(len(f.Payload))
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the frame in wire form.
func (f Frame) Bytes() []byte {
	buf := make([]byte, HeaderLen+len(f.Payload))
	h := f.Header
	h.PayloadLen = uint16(len(f.Payload))
	PutHeader(buf, h)
	copy(buf[HeaderLen:], f.Payload)
	return buf
}
