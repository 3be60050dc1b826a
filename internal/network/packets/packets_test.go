package packets

import (
	"errors"
	"testing"
)

func TestAskScreenshotEncode(t *testing.T) {
	pkt := &AskScreenshot{Width: 640, Height: 0x01020304}

	data := pkt.Encode()

	if len(data) != 8 {
		t.Errorf("expected size 8, got %d", len(data))
	}

	// Width (big-endian)
	if data[0] != 0 || data[1] != 0 || data[2] != 0x02 || data[3] != 0x80 {
		t.Errorf("unexpected width bytes % x", data[0:4])
	}

	// Height (big-endian)
	if data[4] != 0x01 || data[5] != 0x02 || data[6] != 0x03 || data[7] != 0x04 {
		t.Errorf("unexpected height bytes % x", data[4:8])
	}

	back, err := DecodeAskScreenshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back != *pkt {
		t.Errorf("expected %+v, got %+v", *pkt, back)
	}
}

func TestDecodeAskScreenshotShort(t *testing.T) {
	_, err := DecodeAskScreenshot([]byte{1, 2, 3})
	if !errors.Is(err, ErrBadSize) {
		t.Errorf("expected ErrBadSize, got %v", err)
	}
}

func TestDecodeRawScreenshot(t *testing.T) {
	// 2x1 BGRA: blue pixel, then half transparent red
	data := []byte{
		255, 0, 0, 255,
		0, 0, 255, 128,
	}

	shot, err := DecodeRawScreenshot(2, 1, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r, g, b, a := shot.At(0, 0)
	if r != 0 || g != 0 || b != 255 || a != 255 {
		t.Errorf("pixel 0: got %d %d %d %d", r, g, b, a)
	}

	img := shot.Image()
	c := img.NRGBAAt(1, 0)
	if c.R != 255 || c.G != 0 || c.B != 0 || c.A != 128 {
		t.Errorf("pixel 1: got %+v", c)
	}
}

func TestDecodeRawScreenshotSize(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		n    int
	}{
		{"short", 2, 2, 15},
		{"long", 1, 1, 5},
		{"empty for non-empty image", 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRawScreenshot(tt.w, tt.h, make([]byte, tt.n))
			if !errors.Is(err, ErrBadSize) {
				t.Errorf("expected ErrBadSize, got %v", err)
			}
		})
	}

	if _, err := DecodeRawScreenshot(0, 0, nil); err != nil {
		t.Errorf("empty image: %v", err)
	}
}
