// Package config provides configuration loading and management for wormillum.
// Values come from built-in defaults, then an optional YAML file, then
// WORMILLUM_ environment variables, each layer overriding the last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"gopkg.in/yaml.v3"

	"wormillum/internal/models"
)

// EnvPrefix prefixes environment overrides, e.g. WORMILLUM_RENDER_FLIP=true.
const EnvPrefix = "WORMILLUM_"

// Config represents the application configuration.
type Config struct {
	// Grid is the body grid assumed when a protocol file carries none.
	Grid struct {
		Width  int `koanf:"width" yaml:"width"`
		Height int `koanf:"height" yaml:"height"`
	} `koanf:"grid" yaml:"grid"`

	// Render parameters
	Render struct {
		// Flip mirrors patterns across the centerline
		Flip bool `koanf:"flip" yaml:"flip"`

		// Threshold binarizes anti-aliased coverage when non-zero
		Threshold int `koanf:"threshold" yaml:"threshold"`

		// Width and Height size the output mask in pixels
		Width  int `koanf:"width" yaml:"width"`
		Height int `koanf:"height" yaml:"height"`
	} `koanf:"render" yaml:"render"`

	Server struct {
		Addr string `koanf:"addr" yaml:"addr"`
	} `koanf:"server" yaml:"server"`

	// Log controls console verbosity and the rotating debug log
	Log struct {
		Level      string `koanf:"level" yaml:"level"`
		File       string `koanf:"file" yaml:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups" yaml:"max_backups"`
	} `koanf:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.Width = 21
	cfg.Grid.Height = 100

	cfg.Render.Flip = false
	cfg.Render.Threshold = 0
	cfg.Render.Width = 1024
	cfg.Render.Height = 768

	cfg.Server.Addr = ":8000"

	cfg.Log.Level = "info"
	cfg.Log.File = filepath.Join("debug", "wormillum.log")
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3

	return cfg
}

// GridSize returns the configured default grid.
func (c *Config) GridSize() models.GridSize {
	return models.GridSize{Width: c.Grid.Width, Height: c.Grid.Height}
}

// Validate checks values that would make rendering impossible.
func (c *Config) Validate() error {
	if !c.GridSize().Valid() {
		return fmt.Errorf("%w: grid %s", models.ErrInvalidGridSize, c.GridSize())
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.Threshold < 0 || c.Render.Threshold > 255 {
		return fmt.Errorf("render threshold must be within 0-255, got %d", c.Render.Threshold)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file layered over the defaults
// and under environment overrides. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), kyaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		// WORMILLUM_RENDER_FLIP -> render.flip
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
