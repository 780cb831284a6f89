// Package config loads the YAML configuration shared by the letterpdf CLI
// and the letterd daemon.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wudi/letterkit/letter"
)

// ErrConfiguration is wrapped by every error Load and Validate return.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports an invalid field.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfiguration
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Config is the top-level configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Assets     AssetsConfig      `yaml:"assets"`
	Letterhead letter.Letterhead `yaml:"letterhead"`
	Render     RenderConfig      `yaml:"render"`
	Log        LogConfig         `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read-timeout"`
	WriteTimeout    time.Duration `yaml:"write-timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
	// MaxBodyBytes caps export request bodies, logo included.
	MaxBodyBytes int64 `yaml:"max-body-bytes"`
}

// AssetsConfig locates the default fonts and logo. Each entry is a file
// path or an http(s) URL; empty entries use the built-in fallbacks.
type AssetsConfig struct {
	BodyFont     string        `yaml:"body-font"`
	HeadingFont  string        `yaml:"heading-font"`
	Logo         string        `yaml:"logo"`
	FetchTimeout time.Duration `yaml:"fetch-timeout"`
	MaxSize      int64         `yaml:"max-size"`
}

// RenderConfig controls PDF output.
type RenderConfig struct {
	// Compression is the flate level, 0 (none) to 9, or -1 for the default.
	Compression   int    `yaml:"compression"`
	Producer      string `yaml:"producer"`
	Deterministic bool   `yaml:"deterministic"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Assets: AssetsConfig{
			FetchTimeout: 10 * time.Second,
			MaxSize:      16 << 20,
		},
		Letterhead: letter.DefaultLetterhead(),
		Render: RenderConfig{
			Compression: 6,
			Producer:    letter.DefaultProducer,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Message: err.Error(), Err: fmt.Errorf("%w: %v", ErrConfiguration, err)}
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Message: err.Error(), Err: fmt.Errorf("%w: %v", ErrConfiguration, err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return NewConfigError("server.addr", "required field is missing")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return NewConfigError("server", "timeouts must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return NewConfigError("server.max-body-bytes", "must be positive")
	}
	if c.Assets.FetchTimeout <= 0 {
		return NewConfigError("assets.fetch-timeout", "must be positive")
	}
	if c.Assets.MaxSize <= 0 {
		return NewConfigError("assets.max-size", "must be positive")
	}
	if c.Render.Compression < -1 || c.Render.Compression > 9 {
		return NewConfigError("render.compression", fmt.Sprintf("level %d out of range -1..9", c.Render.Compression))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return NewConfigError("log.level", err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return NewConfigError("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}
