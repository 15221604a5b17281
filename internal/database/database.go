// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package database stores image records in SQLite.
//
// The pure Go modernc.org/sqlite driver is used so the binary builds without
// CGO. The pool is limited to a single connection: SQLite serializes writers
// anyway and one connection keeps in-memory databases consistent in tests.
// Schema changes are goose migrations loaded from a directory at runtime.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tomtom215/yaiss/internal/logging"
)

const memoryPath = ":memory:"

// connPragmas are applied to every connection the driver opens.
const connPragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("database: record not found")

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open connects to the database named by url. Accepted forms are
// "sqlite://path", "sqlite:path" and a bare path; ":memory:" opens a private
// in-memory database. The parent directory of a file database is created if
// missing.
func Open(ctx context.Context, url string) (*DB, error) {
	path, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path+"?"+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	logging.Debug().Str("path", path).Msg("SQLite database opened")
	return &DB{conn: conn, path: path}, nil
}

// ParseURL extracts the file path from a database URL. Query parameters are
// dropped; connection pragmas are fixed by Open.
func ParseURL(url string) (string, error) {
	path := strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = strings.TrimPrefix(path, "sqlite://")
	case strings.HasPrefix(path, "sqlite:"):
		path = strings.TrimPrefix(path, "sqlite:")
	case strings.Contains(path, "://"):
		return "", fmt.Errorf("unsupported database url %q: only sqlite is supported", url)
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", fmt.Errorf("database url %q has no path", url)
	}
	return path, nil
}

// Path returns the database file path, or ":memory:".
func (db *DB) Path() string { return db.path }

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB { return db.conn }

// Ping checks that the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return errors.New("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close closes the pool. In-flight queries finish first.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// closeQuietly closes a resource on an error path where the close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}
