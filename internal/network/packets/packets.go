// Package packets defines the fixed-layout frame payloads of the renderer
// protocol. Integers are big-endian.
package packets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
)

// ErrBadSize is returned when a payload does not match its declared layout.
var ErrBadSize = errors.New("bad payload size")

// AskScreenshot requests a rendered image of the given size.
type AskScreenshot struct {
	Width  uint32
	Height uint32
}

// Size returns packet size.
func (p *AskScreenshot) Size() int {
	return 8
}

// Encode encodes the packet to bytes.
func (p *AskScreenshot) Encode() []byte {
	buf := make([]byte, p.Size())
	binary.BigEndian.PutUint32(buf[0:4], p.Width)
	binary.BigEndian.PutUint32(buf[4:8], p.Height)
	return buf
}

// DecodeAskScreenshot parses an ask-screenshot payload.
func DecodeAskScreenshot(data []byte) (AskScreenshot, error) {
	var p AskScreenshot
	if len(data) != p.Size() {
		return p, fmt.Errorf("ask screenshot: %w: %d", ErrBadSize, len(data))
	}
	p.Width = binary.BigEndian.Uint32(data[0:4])
	p.Height = binary.BigEndian.Uint32(data[4:8])
	return p, nil
}

// BytesPerPixel of a raw screenshot.
const BytesPerPixel = 4

// RawScreenshot is a BGRA image, rows top to bottom.
type RawScreenshot struct {
	Width  int
	Height int
	Pixels []byte
}

// DecodeRawScreenshot wraps a raw-screenshot payload. The payload carries no
// header; its size must match the requested dimensions.
func DecodeRawScreenshot(width, height int, data []byte) (*RawScreenshot, error) {
	if want := width * height * BytesPerPixel; len(data) != want {
		return nil, fmt.Errorf("raw screenshot %dx%d: %w: got %d, want %d",
			width, height, ErrBadSize, len(data), want)
	}
	return &RawScreenshot{Width: width, Height: height, Pixels: data}, nil
}

// At returns the pixel at (x, y) as r, g, b, a.
func (s *RawScreenshot) At(x, y int) (r, g, b, a uint8) {
	i := (y*s.Width + x) * BytesPerPixel
	p := s.Pixels[i : i+BytesPerPixel]
	return p[2], p[1], p[0], p[3]
}

// Image converts the screenshot to a non-premultiplied RGBA image.
func (s *RawScreenshot) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	for i := 0; i+BytesPerPixel <= len(s.Pixels); i += BytesPerPixel {
		img.Pix[i+0] = s.Pixels[i+2]
		img.Pix[i+1] = s.Pixels[i+1]
		img.Pix[i+2] = s.Pixels[i+0]
		img.Pix[i+3] = s.Pixels[i+3]
	}
	return img
}
