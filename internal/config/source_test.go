// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewSource_EnvNotSet(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	if _, err := NewSource(); !errors.Is(err, ErrConfigPathNotSet) {
		t.Fatalf("NewSource() error = %v, want ErrConfigPathNotSet", err)
	}
}

func TestNewSource_FromEnv(t *testing.T) {
	path := writeConfig(t, validINI)
	t.Setenv(ConfigPathEnvVar, path)

	src, err := NewSource()
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	if src.Path() != path {
		t.Errorf("Path() = %q, want %q", src.Path(), path)
	}
	if src.Config().Address().Port() != 3000 {
		t.Errorf("Config().Address() = %v", src.Config().Address())
	}
}

func TestNewSource_InvalidFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, writeConfig(t, "[SERVER]\naddress = 127.0.0.1\n"))

	if _, err := NewSource(); err == nil {
		t.Fatal("NewSource() error = nil, want validation error")
	}
}

func TestSource_ChangeThenReload(t *testing.T) {
	path := writeConfig(t, validINI)
	src, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	changed := make(chan error, 1)
	go func() { changed <- src.HasChange(context.Background()) }()

	updated := strings.Replace(validINI, "port = 3000", "port = 4000", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case err := <-changed:
		if err != nil {
			t.Fatalf("HasChange() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("HasChange() did not fire after rewrite")
	}

	cfg, err := src.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Address().Port() != 4000 {
		t.Errorf("reloaded port = %d, want 4000", cfg.Address().Port())
	}
	if src.Config() != cfg {
		t.Error("Config() should return the reloaded snapshot")
	}
}

func TestSource_ReloadKeepsSnapshotOnError(t *testing.T) {
	path := writeConfig(t, validINI)
	src, err := OpenSource(path)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer func() { _ = src.Close() }()

	before := src.Config()
	if err := os.WriteFile(path, []byte("[SERVER]\nport = nope\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	if _, err := src.Reload(); err == nil {
		t.Fatal("Reload() error = nil, want error")
	}
	if src.Config() != before {
		t.Error("failed Reload() must not replace the current snapshot")
	}
}
