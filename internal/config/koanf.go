// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Load reads the INI file at path into a validated Config.
//
// Layers, later ones winning:
//  1. Built-in defaults for optional sections
//  2. The INI file
//  3. LOG_LEVEL, LOG_FORMAT and LOG_CALLER
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), INIParser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	port, err := parsePort(k)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.Server.Port = port

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ErrPortRequired is returned when SERVER.port is absent or empty.
var ErrPortRequired = errors.New("config: SERVER.port is required")

// parsePort reads SERVER.port as a plain decimal number.
func parsePort(k *koanf.Koanf) (uint16, error) {
	raw := strings.TrimSpace(k.String("server.port"))
	if !k.Exists("server.port") || raw == "" {
		return 0, ErrPortRequired
	}
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("config: SERVER.port %q is not a decimal port number", raw)
	}
	return uint16(port), nil
}

// envTransformFunc maps the supported environment variables to koanf paths.
// Everything else is ignored; the file is the only source for the
// sections that drive the server.
func envTransformFunc(key string) string {
	switch strings.ToLower(key) {
	case "log_level":
		return "logging.level"
	case "log_format":
		return "logging.format"
	case "log_caller":
		return "logging.caller"
	default:
		return ""
	}
}
