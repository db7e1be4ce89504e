//go:build cgo_sqlite

package cache

// CGO SQLite via mattn/go-sqlite3.
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./...
import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver used by SQLiteStore
	DriverName = "sqlite3"

	// BuildMode describes the SQLite build configuration
	BuildMode = "cgo"
)
