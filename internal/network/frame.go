// Package network implements the framed stream exchanged with the external
// renderer.
//
// A frame is a 4-byte big-endian payload length, a 1-byte kind, then the
// payload. The length does not count the kind byte.
package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Kind tags the payload of a frame.
type Kind byte

const (
	KindPingPong      Kind = 0x01
	KindLog           Kind = 0x02
	KindAskScreenshot Kind = 0x03
	KindRawScreenshot Kind = 0x04
	KindGenericPack   Kind = 0x05
	KindCommand       Kind = 0x06
)

func (k Kind) String() string {
	switch k {
	case KindPingPong:
		return "pingpong"
	case KindLog:
		return "log"
	case KindAskScreenshot:
		return "ask_screenshot"
	case KindRawScreenshot:
		return "raw_screenshot"
	case KindGenericPack:
		return "generic_pack"
	case KindCommand:
		return "command"
	}
	return fmt.Sprintf("kind(0x%02x)", byte(k))
}

// HeaderSize is the length of the frame header.
const HeaderSize = 5

// MaxPayload is the largest payload a frame can carry. Lengths are read as
// signed 32-bit integers by some peers.
const MaxPayload = 1<<31 - 1

// ErrFrameTooLarge is returned for payloads longer than MaxPayload.
var ErrFrameTooLarge = errors.New("frame too large")

// Frame is one decoded protocol unit.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// WriteFrame writes header and payload with a single Write call.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	buf[4] = byte(kind)
	copy(buf[HeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame. A stream that ends inside a frame returns
// io.ErrUnexpectedEOF; one that ends before the header returns io.EOF.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	size := binary.BigEndian.Uint32(header[0:4])
	if size > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	f := Frame{Kind: Kind(header[4]), Payload: make([]byte, size)}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return f, nil
}
