// Package config reads the optional server configuration file. Its values
// are defaults: command-line flags that were set explicitly win.
package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the content of formwire.yaml.
type Config struct {
	Forms    string `yaml:"forms"`
	Messages string `yaml:"messages"`
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
	Locale    string `yaml:"locale"`
	// Handlers is the file listing the external submit handlers.
	Handlers string `yaml:"handlers"`

	Server  Server  `yaml:"server"`
	Redis   Redis   `yaml:"redis"`
	Session Session `yaml:"session"`
}

// Server configures the HTTP transport.
type Server struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
	Metrics bool   `yaml:"metrics"`
}

// Redis configures the shared session store. An empty Addr keeps sessions
// in memory.
type Redis struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// Session configures session lifetime and storage protection.
type Session struct {
	TTL        time.Duration `yaml:"ttl"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
	MaxInput   int           `yaml:"max_input"`
	MaskFields []string      `yaml:"mask_fields"`
	KeyFile    string        `yaml:"key_file"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Forms:     "forms",
		Messages:  "messages",
		LogLevel:  "info",
		LogFormat: "text",
		Locale:    "en",
		Server: Server{
			Port: 8080,
		},
		Redis: Redis{
			Prefix: "formwire:",
		},
		Session: Session{
			TTL:     30 * time.Minute,
			LockTTL: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg, keeping the values of keys data leaves out.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Session.TTL < 0 || c.Session.LockTTL < 0 {
		return errors.New("session ttl must not be negative")
	}
	if c.Session.MaxInput < 0 {
		return errors.New("session.max_input must not be negative")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// ReadKey reads a 32-byte AES key stored either raw or hex encoded.
func ReadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	if len(data) == 32 {
		return data, nil
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%s: key must be 32 raw bytes or 64 hex characters", path)
	}
	return key, nil
}
