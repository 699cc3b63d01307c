// Package config loads astlens settings from a .astlens.toml file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file looked up in the repository root.
const FileName = ".astlens.toml"

type Config struct {
	// Language forces a parser language; empty means infer from the file extension.
	Language string `toml:"language"`
	// LabelScript is a Risor script producing node summaries. Relative paths
	// resolve against the config file's directory.
	LabelScript string `toml:"label_script"`
	Export      Export `toml:"export"`
	Log         Log    `toml:"log"`

	// Dir is the directory the config was loaded from.
	Dir string `toml:"-"`
}

type Export struct {
	Format string `toml:"format"` // json, yaml or sqlite
	Out    string `toml:"out"`
}

type Log struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Export: Export{Format: "json"},
		Log:    Log{Level: "warn"},
	}
}

// Load reads path on top of Default. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Find loads FileName from dir, or Default when dir has none.
func Find(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Export.Format) {
	case "", "json", "yaml", "yml", "sqlite":
	default:
		return fmt.Errorf("export.format must be json, yaml or sqlite, got %q", c.Export.Format)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level, defaulting to warn.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ScriptPath resolves LabelScript against Dir. Bundled script references
// (builtin:<name>) are returned unchanged.
func (c *Config) ScriptPath() string {
	if c.LabelScript == "" || filepath.IsAbs(c.LabelScript) || c.Dir == "" ||
		strings.HasPrefix(c.LabelScript, "builtin:") {
		return c.LabelScript
	}
	return filepath.Join(c.Dir, c.LabelScript)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
