package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the optional ddx configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Resume   ResumeConfig   `toml:"resume"`
}

// DefaultsConfig holds defaults applied when the matching operand or flag
// is not given on the command line.
type DefaultsConfig struct {
	BlockSize   *string `toml:"bs"`
	Status      *string `toml:"status"`
	Hash        *string `toml:"hash"`
	BWLimit     *string `toml:"bwlimit"`
	MetricsAddr *string `toml:"metrics_addr"`
}

// ResumeConfig configures checkpoint storage.
type ResumeConfig struct {
	// Dir overrides the checkpoint database directory.
	Dir *string `toml:"dir"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ddx", "config.toml")
}

// StateDir returns the directory for checkpoint databases:
// $XDG_RUNTIME_DIR/ddx, falling back to a per-user temp directory.
func (c Config) StateDir() string {
	if c.Resume.Dir != nil && *c.Resume.Dir != "" {
		return *c.Resume.Dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "ddx")
	}
	return filepath.Join(os.TempDir(), "ddx-"+strconv.Itoa(os.Getuid()))
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
