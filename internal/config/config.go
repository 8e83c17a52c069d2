// Package config loads and saves the myftp command-line configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gonzalop/myftp"
)

// PasswordEnv overrides the password stored in the file.
const PasswordEnv = "MYFTP_PASSWORD"

// Drivers accepted in the driver key.
const (
	DriverNative   = "native"
	DriverJlaffaye = "jlaffaye"
)

type Config struct {
	myftp.Config `yaml:",inline"`

	Driver         string `yaml:"driver"`
	Timeout        string `yaml:"timeout"`
	BandwidthLimit int64  `yaml:"bandwidth_limit"`
	LogLevel       string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Config: myftp.Config{
			Hostname: myftp.DefaultHostname,
			Port:     myftp.DefaultPort,
			Passive:  myftp.Bool(true),
		},
		Driver:   DriverNative,
		Timeout:  "30s",
		LogLevel: "info",
	}
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".myftp", "config.yaml")
}

// Load reads the file at path over the defaults. An empty path means
// ConfigPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path, or ConfigPath when path is empty. The file holds
// a password, so it is private to the user.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the keys that are not part of the session configuration.
// Credentials are checked later by myftp.New.
func (c *Config) Validate() error {
	switch c.Driver {
	case "", DriverNative, DriverJlaffaye:
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", c.Driver, DriverNative, DriverJlaffaye)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.BandwidthLimit < 0 {
		return fmt.Errorf("negative bandwidth_limit: %d", c.BandwidthLimit)
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means zero (transport default).
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", c.Timeout)
	}
	return d, nil
}

// Level maps LogLevel to a slog level. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
