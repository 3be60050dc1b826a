package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/renderlink/internal/bridge"
	"github.com/Faultbox/renderlink/internal/network/packets"
)

// screenshotSink writes every rendered image to path as BMP. With an empty
// path the image is only logged.
func screenshotSink(path string, log *zap.Logger) bridge.PixelSink {
	return bridge.PixelSinkFunc(func(shot *packets.RawScreenshot) error {
		log.Info("frame rendered", zap.Int("width", shot.Width), zap.Int("height", shot.Height))
		if path == "" {
			return nil
		}
		return writeBMP(path, shot)
	})
}

func writeBMP(path string, shot *packets.RawScreenshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, shot.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
