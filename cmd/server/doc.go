// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

/*
Package main is the entry point for the Yaiss image upload service.

# Process Architecture

	RootSupervisor ("yaiss")
	└── APISupervisor ("api-layer")
	    └── accept loop for the current listener

The main goroutine owns the ServerSupervisor and runs a single select loop
over SIGTERM, SIGINT and configuration file changes. A change reloads the
configuration, builds a fresh application state (new database connection,
migrations applied) and hands both to the supervisor, which rebinds only when
the listen address changed. On a signal the loop ends, the server is stopped
once and drained, and the process exits.

# Configuration

	INI_CONFIGURATION=/etc/yaiss/yaiss.ini   # required
	LOG_LEVEL=info                           # overrides [LOGGING] level
	LOG_FORMAT=json                          # json or console
	LOG_CALLER=false

A .env file in the working directory is loaded first when present.

# Commands

	yaiss serve     run the service (default)
	yaiss migrate   apply pending database migrations and exit
	yaiss version   print the build version
*/
package main
