//go:build !qfs_cgo

package store

import (
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo; the default build
)

// sqlDriver is the database/sql driver name registered for SQLite access.
// The pure-Go driver is the default so qfs cross-compiles without a C
// toolchain; build with -tags qfs_cgo to link mattn/go-sqlite3 instead.
const sqlDriver = "sqlite"

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}
