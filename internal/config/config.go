// Package config handles renderlink configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/renderlink/internal/export"
)

// Config holds all settings.
type Config struct {
	Remote  RemoteConfig  `yaml:"remote"`
	Export  ExportConfig  `yaml:"export"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// RemoteConfig holds the renderer endpoint.
type RemoteConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	AutoRedraw     bool          `yaml:"auto_redraw"` // Render again after every update
}

// ExportConfig holds scene export settings.
type ExportConfig struct {
	AssetsPath    string  `yaml:"assets_path"`
	Preview       bool    `yaml:"preview"`
	WeldVertices  bool    `yaml:"weld_vertices"`
	AnimationMode string  `yaml:"animation_mode"` // sampled or curves
	SampleEpsilon float32 `yaml:"sample_epsilon"`
}

// RenderConfig holds screenshot settings.
type RenderConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	ScreenshotPath string `yaml:"screenshot_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Host:           "127.0.0.1",
			Port:           4242,
			ConnectTimeout: 5 * time.Second,
			AutoRedraw:     false,
		},
		Export: ExportConfig{
			AssetsPath:    "/tmp",
			Preview:       false,
			WeldVertices:  false,
			AnimationMode: string(export.AnimationSampled),
			SampleEpsilon: 1e-6,
		},
		Render: RenderConfig{
			Width:  640,
			Height: 480,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Options converts the export section to session options.
func (c ExportConfig) Options() export.Options {
	return export.Options{
		AssetsPath:    c.AssetsPath,
		Preview:       c.Preview,
		WeldVertices:  c.WeldVertices,
		Animation:     export.AnimationMode(c.AnimationMode),
		SampleEpsilon: c.SampleEpsilon,
	}
}
