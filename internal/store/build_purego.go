//go:build !cgo_sqlite
// +build !cgo_sqlite

package store

// Compiled when building without the cgo_sqlite tag. The pure Go driver
// needs no C compiler and cross-compiles everywhere.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
