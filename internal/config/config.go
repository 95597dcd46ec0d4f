// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/meshtex/internal/projector"
)

// Config validation errors.
var (
	ErrUnknownSource = errors.New("unknown producer source")
	ErrMissingOBJ    = errors.New("obj source needs producer.obj_path")
	ErrUnknownPolicy = errors.New("unknown projection policy")
	ErrBadWindow     = errors.New("window size must be positive")
)

// Producer source kinds.
const (
	SourceGrid = "grid"
	SourceOBJ  = "obj"
)

// Config holds all settings.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Producer   ProducerConfig   `yaml:"producer"`
	Projection ProjectionConfig `yaml:"projection"`
	Images     ImagesConfig     `yaml:"images"`
	Render     RenderConfig     `yaml:"render"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ProducerConfig selects where meshes come from and how often the producer polls.
type ProducerConfig struct {
	Source       string        `yaml:"source"`   // grid or obj
	OBJPath      string        `yaml:"obj_path"` // watched OBJ file for the obj source
	PollInterval time.Duration `yaml:"poll_interval"`
	BuildDelay   time.Duration `yaml:"build_delay"` // simulated reconstruction time (grid)
	GridMax      int           `yaml:"grid_max"`    // grid resolution cap
}

// ProjectionConfig holds texture projection settings.
type ProjectionConfig struct {
	Policy  string `yaml:"policy"` // overlay or best_facing
	Workers int    `yaml:"workers"`
}

// ImagesConfig locates source images.
type ImagesConfig struct {
	Manifest string `yaml:"manifest"` // YAML list of images and camera poses
	MaxSize  int    `yaml:"max_size"` // downscale images larger than this
}

// RenderConfig holds drawing settings.
type RenderConfig struct {
	Alpha    float32 `yaml:"alpha"`
	Textured bool    `yaml:"textured"`
}

// ExportConfig holds the OBJ export and screenshot destinations.
type ExportConfig struct {
	Path          string `yaml:"path"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "meshtex",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Producer: ProducerConfig{
			Source:       SourceGrid,
			PollInterval: 20 * time.Millisecond,
			BuildDelay:   250 * time.Millisecond,
			GridMax:      64,
		},
		Projection: ProjectionConfig{
			Policy:  projector.Overlay.String(),
			Workers: 1,
		},
		Images: ImagesConfig{
			MaxSize: 2048,
		},
		Render: RenderConfig{
			Alpha:    1.0,
			Textured: true,
		},
		Export: ExportConfig{
			Path:          "model.obj",
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Producer.Source {
	case SourceGrid:
	case SourceOBJ:
		if c.Producer.OBJPath == "" {
			return ErrMissingOBJ
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Producer.Source)
	}

	if _, ok := projector.ParsePolicy(c.Projection.Policy); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Projection.Policy)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return ErrBadWindow
	}
	return nil
}

// Policy returns the configured projection policy.
func (c *Config) Policy() projector.Policy {
	p, _ := projector.ParsePolicy(c.Projection.Policy)
	return p
}
