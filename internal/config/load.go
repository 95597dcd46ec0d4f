package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appName = "meshtex"

	// EnvConfig names a config file when --config is not given.
	EnvConfig = "MESHTEX_CONFIG"
)

// Load builds the configuration from defaults, then the config file, then
// flags. The file is the --config path, else $MESHTEX_CONFIG, else the first
// file found by searchPaths. An explicitly named file must exist.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// searchPaths lists implicit config locations, most specific first.
func searchPaths() []string {
	return []string{
		"config.yaml",
		appName + ".yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
}

func findConfigFile() string {
	for _, path := range searchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory for meshtex. Without a
// resolvable user config root it falls back to the temp directory.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil || !filepath.IsAbs(base) {
		base = os.TempDir()
	}
	return filepath.Join(base, appName)
}

// loadFromFile merges YAML from path over the values already in cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
