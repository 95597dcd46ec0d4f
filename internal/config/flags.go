package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagOBJ        = flag.String("obj", "", "Watch this OBJ file instead of the synthetic surface")
	flagImages     = flag.String("images", "", "Image manifest (YAML)")
	flagPolicy     = flag.String("policy", "", "Projection policy: overlay or best_facing")
	flagWorkers    = flag.Int("workers", 0, "Projection worker goroutines")
	flagExport     = flag.String("export", "", "OBJ export path")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
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
	if *flagOBJ != "" {
		cfg.Producer.Source = SourceOBJ
		cfg.Producer.OBJPath = *flagOBJ
	}
	if *flagImages != "" {
		cfg.Images.Manifest = *flagImages
	}
	if *flagPolicy != "" {
		cfg.Projection.Policy = *flagPolicy
	}
	if *flagWorkers > 0 {
		cfg.Projection.Workers = *flagWorkers
	}
	if *flagExport != "" {
		cfg.Export.Path = *flagExport
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
