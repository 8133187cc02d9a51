// Package config loads the settings shared by the demo commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pelletier/go-toml/v2"
)

const fileName = "audiorender.toml"

// Duration is a time.Duration written as "100ms" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type Config struct {
	// Backend is the name of the audio backend to use; empty means the
	// first one that works.
	Backend        string   `toml:"backend"`
	LogLevel       string   `toml:"log_level"`
	BufferDuration Duration `toml:"buffer_duration"`
}

func Default() Config {
	return Config{
		LogLevel:       logger.LevelInfo.String(),
		BufferDuration: Duration(100 * time.Millisecond),
	}
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %s", time.Duration(c.BufferDuration))
	}
	return nil
}

func (c *Config) Level() (logger.Level, error) {
	var level logger.Level
	if err := level.Set(strings.TrimSpace(c.LogLevel)); err != nil {
		return logger.LevelUndefined, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to get the user config dir: %w", err)
	}
	return filepath.Join(dir, "audiorender", fileName), nil
}

// Load reads the config at path, or at the default location if path is
// empty. A missing file is not an error: the defaults are returned and
// exists is false.
func Load(path string) (_ *Config, resolvedPath string, exists bool, _ error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config '%s': %w", resolvedPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return path, false, nil
	case err != nil:
		return "", false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return "", false, fmt.Errorf("config path '%s' is a directory", path)
	}
	return path, true, nil
}

// Save writes the config in TOML to path.
func (c Config) Save(path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for '%s': %w", path, err)
	}
	return os.WriteFile(path, b, 0o644)
}
