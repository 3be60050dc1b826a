package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/renderlink/internal/network/packets"
)

func TestScreenshotSinkWritesBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "frame.bmp")

	// 2x1 BGRA: blue then red.
	shot, err := packets.DecodeRawScreenshot(2, 1, []byte{255, 0, 0, 255, 0, 0, 255, 255})
	require.NoError(t, err)

	require.NoError(t, screenshotSink(path, zap.NewNop()).Draw(shot))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := bmp.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0xffff}, []uint32{r, g, b})
	r, g, b, _ = img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})
}

func TestScreenshotSinkWithoutPath(t *testing.T) {
	shot, err := packets.DecodeRawScreenshot(1, 1, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.NoError(t, screenshotSink("", zap.NewNop()).Draw(shot))
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, zap.NewNop(), func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("name: b\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("name: c\n"), 0644))

	select {
	case <-changed:
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	// Both writes settle into a single reload.
	select {
	case <-changed:
		t.Fatal("writes were not coalesced")
	case <-time.After(3 * settle):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
