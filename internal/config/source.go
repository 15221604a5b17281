// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/joho/godotenv"

	"github.com/tomtom215/yaiss/internal/metrics"
)

// Source owns the configuration file: the current snapshot and the watcher
// reporting modifications of the file.
type Source struct {
	path    string
	current atomic.Pointer[Config]
	watcher *Watcher
}

// NewSource resolves the file path with ResolvePath, loads the first
// snapshot and starts watching the file.
func NewSource() (*Source, error) {
	path, err := ResolvePath()
	if err != nil {
		return nil, err
	}
	return OpenSource(path)
}

// ResolvePath returns the configuration file path from INI_CONFIGURATION.
// A .env file in the working directory, if present, is applied to the
// environment first.
func ResolvePath() (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		return "", ErrConfigPathNotSet
	}
	return path, nil
}

// OpenSource loads path and starts watching it.
func OpenSource(path string) (*Source, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	w, err := NewWatcher(path)
	if err != nil {
		return nil, err
	}

	s := &Source{path: path, watcher: w}
	s.current.Store(cfg)
	return s, nil
}

// Path returns the watched file path.
func (s *Source) Path() string { return s.path }

// Config returns the most recently loaded snapshot.
func (s *Source) Config() *Config { return s.current.Load() }

// Reload re-reads the whole file. The current snapshot is replaced only when
// the new one loads and validates.
func (s *Source) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	metrics.RecordConfigReload(err)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// HasChange blocks until the file content is modified. See Watcher.HasChange.
func (s *Source) HasChange(ctx context.Context) error {
	return s.watcher.HasChange(ctx)
}

// Close stops watching the file.
func (s *Source) Close() error {
	return s.watcher.Close()
}
