package myftp

import (
	"net"
	"strconv"
)

const (
	// DefaultHostname is used when Config.Hostname is empty.
	DefaultHostname = "localhost"

	// DefaultPort is used when Config.Port is zero.
	DefaultPort = 21
)

// Config describes the server and credentials of a Session.
type Config struct {
	// Hostname of the server. Defaults to "localhost".
	Hostname string `yaml:"hostname"`

	// Port of the control connection. Defaults to 21.
	Port int `yaml:"port"`

	// Username is required.
	Username string `yaml:"username"`

	// Password is required.
	Password string `yaml:"password"`

	// Passive selects passive data connections. nil means true.
	Passive *bool `yaml:"passive,omitempty"`
}

// Bool returns a pointer to b, for Config.Passive.
func Bool(b bool) *bool {
	return &b
}

// PassiveMode reports whether passive mode is selected, applying the default.
func (c Config) PassiveMode() bool {
	return c.Passive == nil || *c.Passive
}

// Addr returns host:port with defaults applied.
func (c Config) Addr() string {
	c = c.withDefaults()
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.Hostname == "" {
		c.Hostname = DefaultHostname
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

// validate checks a Config that already has defaults applied.
func (c Config) validate() error {
	if c.Username == "" {
		return &ConfigurationError{Field: "username", Reason: "is required"}
	}
	if c.Password == "" {
		return &ConfigurationError{Field: "password", Reason: "is required"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigurationError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	return nil
}
