// Package config loads the reader's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/bigbag/seatalk-reader/internal/seatalk"
	"github.com/bigbag/seatalk-reader/internal/serial"
	"github.com/bigbag/seatalk-reader/internal/session"
)

// Output formats
const (
	FormatHex  = "hex"
	FormatJSON = "json"
)

// Config holds the reader settings loaded from YAML and command-line flags.
type Config struct {
	Device      string           `yaml:"device"`
	Baud        int              `yaml:"baud"`
	Transport   serial.Transport `yaml:"transport"`
	ReadTimeout time.Duration    `yaml:"read_timeout"`
	IdleTimeout time.Duration    `yaml:"idle_timeout"`
	BufferSize  int              `yaml:"buffer_size"`
	Format      string           `yaml:"format"`
	Annotate    bool             `yaml:"annotate"`
	Record      string           `yaml:"record"`
	LogLevel    string           `yaml:"log_level"`
	MQTT        struct {
		Broker string `yaml:"broker"`
	} `yaml:"mqtt"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Device:      seatalk.DefaultDevice,
		Baud:        seatalk.DefaultBaudRate,
		Transport:   serial.TransportMarked,
		ReadTimeout: serial.DefaultReadTimeout,
		BufferSize:  session.DefaultBufferSize,
		Format:      FormatHex,
		LogLevel:    "info",
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(contents, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the reader cannot run without.
func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device must be set")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Baud)
	}
	switch c.Transport {
	case serial.TransportMarked, serial.TransportPlain:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, serial.TransportMarked, serial.TransportPlain)
	}
	switch c.Format {
	case FormatHex, FormatJSON:
	default:
		return fmt.Errorf("unknown format %q (want %q or %q)", c.Format, FormatHex, FormatJSON)
	}
	if c.ReadTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid buffer size: %d", c.BufferSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
