//go:build qfs_cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, built with -tags qfs_cgo
)

// sqlDriver is the database/sql driver name registered for SQLite access.
const sqlDriver = "sqlite3"

func sqliteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on"
}
