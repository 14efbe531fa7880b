package logging

import (
	"os"
	"path/filepath"
)

// DefaultCacheDir resolves the user cache directory QFS uses for its
// database file when the caller does not supply an explicit path, mirroring
// the teacher's ~/.amanmcp convention but rooted at os.UserCacheDir.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ".qfs"
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "qfs")
}

// DefaultDatabasePath is the default location of the QFS SQLite database.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultCacheDir(), "qfs.db")
}
