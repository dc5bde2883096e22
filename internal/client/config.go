package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultServer is where the API listens when nothing else is configured.
const DefaultServer = "http://localhost:4000"

// Config is the CLI's settings file, e.g. ~/.config/capsule/config.toml:
//
//	server  = "http://localhost:4000"
//	timeout = "10s"
type Config struct {
	Server  string   `toml:"server"`
	Timeout Duration `toml:"timeout"`
}

// Duration lets TOML carry "10s"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfigPath is config.toml under the user's config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "capsule", "config.toml")
}

// LoadConfig reads path. A missing file is not an error: defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Server:  DefaultServer,
		Timeout: Duration{DefaultTimeout},
	}
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Timeout.Duration <= 0 {
		cfg.Timeout.Duration = DefaultTimeout
	}
	return cfg, nil
}
