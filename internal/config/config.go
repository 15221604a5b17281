// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package config loads the INI configuration file and watches it for changes.
//
// A Config is an immutable snapshot. It is re-read wholesale from disk after
// every change notification and never patched in place. The file path is
// taken from the INI_CONFIGURATION environment variable:
//
//	[DATABASE]
//	url = sqlite://data/yaiss.db
//	migrations_path = migrations
//
//	[SERVER]
//	address = 0.0.0.0
//	port = 3000
//
//	[IMAGE_SERVICE]
//	base_path = data/images
//
// Section and key names are case-insensitive.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/tomtom215/yaiss/internal/validation"
)

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "INI_CONFIGURATION"

// ErrConfigPathNotSet is returned when INI_CONFIGURATION is unset or empty.
var ErrConfigPathNotSet = errors.New("config: " + ConfigPathEnvVar + " is not set")

// Config is one parsed snapshot of the configuration file.
type Config struct {
	Database     DatabaseConfig     `koanf:"database"`
	Server       ServerConfig       `koanf:"server"`
	ImageService ImageServiceConfig `koanf:"image_service"`
	Logging      LoggingConfig      `koanf:"logging"`
	HTTP         HTTPConfig         `koanf:"http"`

	address netip.AddrPort
}

// DatabaseConfig is the [DATABASE] section.
type DatabaseConfig struct {
	URL            string `koanf:"url" validate:"required"`
	MigrationsPath string `koanf:"migrations_path" validate:"required"`
}

// ServerConfig is the [SERVER] section.
type ServerConfig struct {
	Address string `koanf:"address" validate:"required,ipv4"`

	// Port is parsed by Load as a required base-10 uint16.
	Port uint16 `koanf:"-"`
}

// ImageServiceConfig is the [IMAGE_SERVICE] section.
type ImageServiceConfig struct {
	BasePath string `koanf:"base_path" validate:"required"`
}

// LoggingConfig is the optional [LOGGING] section.
// LOG_LEVEL, LOG_FORMAT and LOG_CALLER override it.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// HTTPConfig is the optional [HTTP] section tuning the request router.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes" validate:"gte=1"`

	// MaxImagePixels caps width × height of each uploaded image.
	MaxImagePixels int64 `koanf:"max_image_pixels" validate:"gte=0"`

	// RateLimitRequests of 0 disables per-IP rate limiting of /api/v1.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			ReadHeaderTimeout: 10 * time.Second,
			MaxUploadBytes:    32 << 20,
			MaxImagePixels:    50_000_000,
			RateLimitWindow:   time.Minute,
		},
	}
}

// Validate checks required keys and value formats, then resolves the
// listen address.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	addr, err := netip.ParseAddr(c.Server.Address)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("config: SERVER.address %q is not a dotted-quad IPv4 address", c.Server.Address)
	}
	c.address = netip.AddrPortFrom(addr, c.Server.Port)
	return nil
}

// DatabaseURL returns DATABASE.url.
func (c *Config) DatabaseURL() string { return c.Database.URL }

// MigrationsPath returns DATABASE.migrations_path.
func (c *Config) MigrationsPath() string { return c.Database.MigrationsPath }

// Address returns SERVER.address and SERVER.port as a socket address.
func (c *Config) Address() netip.AddrPort { return c.address }

// ImagesBasePath returns IMAGE_SERVICE.base_path.
func (c *Config) ImagesBasePath() string { return c.ImageService.BasePath }
