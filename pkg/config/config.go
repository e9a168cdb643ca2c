package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds translator configuration
type Config struct {
	LogLevel         string        `json:"log_level" yaml:"log_level" default:"info"`
	PairingMaxGroups int           `json:"pairing_max_groups" yaml:"pairing_max_groups" default:"64"`
	PairingGroupTTL  time.Duration `json:"pairing_group_ttl" yaml:"pairing_group_ttl" default:"30s"`
	PumpBufferSize   uint32        `json:"pump_buffer_size" yaml:"pump_buffer_size" default:"256"`
	// ParseTrace records per-step diagnostics on every CharacteristicData
	ParseTrace bool `json:"parse_trace" yaml:"parse_trace" default:"true"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads YAML over the defaults; keys absent from r keep their default.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the translator cannot run with.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.PairingMaxGroups < 0 {
		return fmt.Errorf("invalid pairing_max_groups %d: must not be negative", c.PairingMaxGroups)
	}
	if c.PairingGroupTTL < 0 {
		return fmt.Errorf("invalid pairing_group_ttl %s: must not be negative", c.PairingGroupTTL)
	}
	if c.PumpBufferSize == 0 {
		return errors.New("invalid pump_buffer_size: must be positive")
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
