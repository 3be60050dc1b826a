package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagHost   = flag.String("host", "", "Renderer host")
	flagPort   = flag.Int("port", 0, "Renderer port")
	flagAssets = flag.String("assets", "", "Assets root folder")
	flagWidth  = flag.Int("width", 0, "Screenshot width")
	flagHeight = flag.Int("height", 0, "Screenshot height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagHost != "" {
		cfg.Remote.Host = *flagHost
	}
	if *flagPort > 0 {
		cfg.Remote.Port = *flagPort
	}
	if *flagAssets != "" {
		cfg.Export.AssetsPath = *flagAssets
	}
	if *flagWidth > 0 {
		cfg.Render.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Render.Height = *flagHeight
	}
}
