package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/renderlink/internal/export"
)

// Environment overrides, applied between the file and the flags.
const (
	EnvHost   = "RENDERLINK_HOST"
	EnvPort   = "RENDERLINK_PORT"
	EnvAssets = "RENDERLINK_ASSETS"
)

// Load builds the configuration: defaults < file < environment < flags.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values a YAML file or flags could have broken.
func (c *Config) Validate() error {
	if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("remote.port %d out of range", c.Remote.Port)
	}
	switch export.AnimationMode(c.Export.AnimationMode) {
	case export.AnimationSampled, export.AnimationCurves:
	default:
		return fmt.Errorf("export.animation_mode %q: want %q or %q",
			c.Export.AnimationMode, export.AnimationSampled, export.AnimationCurves)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Remote.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Remote.Port = port
	}
	if v := os.Getenv(EnvAssets); v != "" {
		cfg.Export.AssetsPath = v
	}
	return nil
}

// findConfigFile returns the first existing config.yaml in the working
// directory or ConfigDir, or "".
func findConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		path := filepath.Join(dir, "config.yaml")
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user renderlink config directory.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "renderlink")
}

// loadFromFile merges the YAML document at path into cfg. Unknown keys are
// rejected so a misspelled setting does not silently fall back to its default.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
