// Package config loads docstamp's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

// Config is the full configuration file.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Render  RenderConfig  `toml:"render"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects where generated documents are kept.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"` // filesystem backend
	DSN     string `toml:"dsn"` // sqlite database path
}

// RenderConfig describes the external renderer.
type RenderConfig struct {
	Command     string   `toml:"command"`
	Args        []string `toml:"args"`
	Concurrency int      `toml:"concurrency"`
	Timeout     Duration `toml:"timeout"`

	// NumberKey and NumberPrefix add a per-record number to the values.
	NumberKey    string `toml:"number_key"`
	NumberPrefix string `toml:"number_prefix"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "90s".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFilesystem,
			Dir:     "output",
			DSN:     filepath.Join("data", "docstamp.db"),
		},
		Render: RenderConfig{
			Concurrency:  4,
			Timeout:      Duration(2 * time.Minute),
			NumberKey:    "record_number",
			NumberPrefix: "Record",
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.docstamp/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".docstamp", "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a file may set.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFilesystem:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return errors.New("storage.dir is required for the filesystem backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("storage.dsn is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Render.Concurrency < 1 {
		return fmt.Errorf("render.concurrency must be at least 1, got %d", c.Render.Concurrency)
	}
	if c.Render.Timeout < 0 {
		return errors.New("render.timeout must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
