// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Ingest IngestConfig `toml:"ingest"`
	Plot   PlotConfig   `toml:"plot"`
	Cache  CacheConfig  `toml:"cache"`
}

// IngestConfig maps file discovery and pixel reduction settings.
type IngestConfig struct {
	Extensions []string `toml:"extensions"`
	Crop       *float64 `toml:"crop"`
	Filter     *string  `toml:"filter"`
}

// PlotConfig maps aggregation and rendering settings.
type PlotConfig struct {
	ErrorScale *float64 `toml:"error-scale"`
	Height     *int     `toml:"height"`
	PNGWidth   *int     `toml:"png-width"`
	PNGHeight  *int     `toml:"png-height"`
}

// CacheConfig maps the frame statistics cache.
type CacheConfig struct {
	Enabled *bool   `toml:"enabled"`
	Path    *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
