package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeHeaderLayout(t *testing.T) {
	got := EncodeHeader(Header{MessageID: 3, PayloadLen: 10})
	want := []byte{'B', 'h', 3, 10, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("header bytes: got=% x want=% x", got, want)
	}
	h, err := DecodeHeader(got)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.MessageID != 3 || h.PayloadLen != 10 {
		t.Fatalf("header mismatch: %+v", h)
	}
}

func TestVerifyOrderAndSentinels(t *testing.T) {
	good := append(EncodeHeader(Header{MessageID: 1, PayloadLen: 2}), 0xAA, 0xBB)
	if err := Verify(good, 1, 2); err != nil {
		t.Fatalf("verify good: %v", err)
	}

	badMagic := append([]byte{}, good...)
	badMagic[0] = 'X'
	// id and length are also wrong here; magic must be reported first.
	cases := []struct {
		name string
		buf  []byte
		id   uint8
		plen uint16
		want error
	}{
		{"short header", good[:4], 1, 2, ErrShortHeader},
		{"magic", badMagic, 9, 9, ErrInvalidMagic},
		{"id", good, 2, 2, ErrIDMismatch},
		{"length", good, 1, 3, ErrLengthMismatch},
		{"short payload", good[:6], 1, 2, ErrShortPayload},
	}
	for _, tc := range cases {
		err := Verify(tc.buf, tc.id, tc.plen)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed wrap, got %v", tc.name, err)
		}
	}
}

func TestReadWriteFrameStream(t *testing.T) {
	var buf bytes.Buffer
	frames := []Frame{
		{Header: Header{MessageID: 0}, Payload: []byte{1, 0}},
		{Header: Header{MessageID: 7}, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f, DefaultLimits()); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	for i, want := range frames {
		got, err := ReadFrame(&buf, DefaultLimits())
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if got.Header.MessageID != want.Header.MessageID || !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("frame %d mismatch: %+v", i, got)
		}
		if int(got.Header.PayloadLen) != len(want.Payload) {
			t.Fatalf("frame %d length field: %d", i, got.Header.PayloadLen)
		}
	}
	if _, err := ReadFrame(&buf, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrameMalformedIsDeterministic(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{'B', 'h', 1}), DefaultLimits()); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	trunc := append(EncodeHeader(Header{MessageID: 1, PayloadLen: 4}), 1, 2)
	if _, err := ReadFrame(bytes.NewReader(trunc), DefaultLimits()); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	big := EncodeHeader(Header{MessageID: 1, PayloadLen: 100})
	if _, err := ReadFrame(bytes.NewReader(big), Limits{MaxPayloadBytes: 10}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestFrameBytesDerivesLength(t *testing.T) {
	f := Frame{Header: Header{MessageID: 2, PayloadLen: 99}, Payload: []byte{9, 9, 9}}
	got := f.Bytes()
	if len(got) != HeaderLen+3 || got[3] != 3 || got[4] != 0 {
		t.Fatalf("frame bytes: % x", got)
	}
}
