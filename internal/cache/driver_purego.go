//go:build !cgo_sqlite

package cache

// Pure Go SQLite, no C toolchain required.
//
//	CGO_ENABLED=0 go build ./...
import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver used by SQLiteStore
	DriverName = "sqlite"

	// BuildMode describes the SQLite build configuration
	BuildMode = "purego"
)
