// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Folio commands.
//
// Configuration is loaded from a single file specified by:
//   - FOLIO_CONFIG environment variable, or
//   - --config flag passed to the command
//
// A missing FOLIO_CONFIG is not an error: every field has a working
// default, and flags override the file. The only expansion performed
// on paths is ${VAR} and ${VAR:-default} substitution, so config files
// stay portable across home directories.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pagecache"
	"github.com/folio-foundation/folio/lib/termgfx"
)

// Config is the master configuration for Folio.
type Config struct {
	// Display configures how pages are drawn to the terminal.
	Display DisplayConfig `yaml:"display"`

	// Render configures the rendering pipeline.
	Render RenderConfig `yaml:"render"`

	// Cache configures the on-disk page artifact cache.
	Cache CacheConfig `yaml:"cache"`

	// Log configures diagnostic logging.
	Log LogConfig `yaml:"log"`
}

// DisplayConfig configures terminal graphics output.
type DisplayConfig struct {
	// Protocol selects the terminal graphics protocol.
	// Values: "auto" (detect from environment), "kitty", "iterm2", "halfblocks".
	// Default: auto
	Protocol string `yaml:"protocol"`

	// Black is the luminance floor: pixels at or below it render as
	// pure black. Range 0-255. Default: 0 (no clamping).
	Black int `yaml:"black"`

	// White is the luminance ceiling: pixels at or above it render as
	// pure white. Range 0-255. Default: 255 (no clamping).
	White int `yaml:"white"`

	// FontWidth and FontHeight are the terminal cell size in pixels,
	// used when the terminal does not report one.
	// Defaults: 8 and 14.
	FontWidth  int `yaml:"font_width"`
	FontHeight int `yaml:"font_height"`
}

// RenderConfig configures the rendering pipeline.
type RenderConfig struct {
	// Prerender is the half-width of the conversion window: pages
	// within this distance of the current page are encoded eagerly.
	// Default: 3
	Prerender int `yaml:"prerender"`
}

// CacheConfig configures the page artifact cache.
type CacheConfig struct {
	// Enabled turns the on-disk cache on or off.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Dir is the cache directory.
	// Default: ${HOME}/.cache/folio/pages
	Dir string `yaml:"dir"`

	// Compression selects how cached artifacts are compressed.
	// Values: "none", "lz4", "zstd". Default: lz4
	Compression string `yaml:"compression"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Output is a file path for JSON logs. Empty disables logging.
	// The viewer owns the terminal, so logs never go to stderr while
	// the alternate screen is active.
	Output string `yaml:"output"`

	// Level is the minimum level to log.
	// Values: "debug", "info", "warn", "error". Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. Every field is usable
// as-is; the config file only overrides.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Display: DisplayConfig{
			Protocol:   "auto",
			Black:      0,
			White:      255,
			FontWidth:  geometry.DefaultFontSize.Width,
			FontHeight: geometry.DefaultFontSize.Height,
		},
		Render: RenderConfig{
			Prerender: 3,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Dir:         filepath.Join(homeDir, ".cache", "folio", "pages"),
			Compression: "lz4",
		},
		Log: LogConfig{
			Output: "",
			Level:  "info",
		},
	}
}

// Load loads configuration from the FOLIO_CONFIG environment variable.
// If FOLIO_CONFIG is not set, the defaults are returned unchanged.
func Load() (*Config, error) {
	configPath := os.Getenv("FOLIO_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// merged over the defaults, then ${VAR} patterns in paths are expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Cache.Dir = expandVars(c.Cache.Dir, vars)
	c.Log.Output = expandVars(c.Log.Output, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Display.Protocol != "auto" {
		if _, err := termgfx.ParseProtocol(c.Display.Protocol); err != nil {
			errs = append(errs, fmt.Errorf("display.protocol: %w", err))
		}
	}
	if c.Display.Black < 0 || c.Display.Black > 255 {
		errs = append(errs, fmt.Errorf("display.black must be in 0..255, got %d", c.Display.Black))
	}
	if c.Display.White < 0 || c.Display.White > 255 {
		errs = append(errs, fmt.Errorf("display.white must be in 0..255, got %d", c.Display.White))
	}
	if c.Display.Black > c.Display.White {
		errs = append(errs, fmt.Errorf("display.black (%d) must not exceed display.white (%d)",
			c.Display.Black, c.Display.White))
	}
	if c.Display.FontWidth <= 0 || c.Display.FontHeight <= 0 {
		errs = append(errs, fmt.Errorf("display.font_width and display.font_height must be positive"))
	}

	if c.Render.Prerender < 0 {
		errs = append(errs, fmt.Errorf("render.prerender must not be negative, got %d", c.Render.Prerender))
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, fmt.Errorf("cache.dir is required when cache.enabled is true"))
	}
	if _, err := pagecache.ParseCompressionTag(c.Cache.Compression); err != nil {
		errs = append(errs, fmt.Errorf("cache.compression: %w", err))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Protocol resolves the configured protocol, running terminal
// detection when set to auto.
func (c *Config) Protocol() (termgfx.Protocol, error) {
	if c.Display.Protocol == "auto" {
		return termgfx.Detect(), nil
	}
	return termgfx.ParseProtocol(c.Display.Protocol)
}

// Font returns the configured terminal cell size.
func (c *Config) Font() geometry.FontSize {
	return geometry.FontSize{Width: c.Display.FontWidth, Height: c.Display.FontHeight}
}
