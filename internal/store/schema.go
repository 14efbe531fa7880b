package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// CurrentSchemaVersion is the schema version this build understands.
// v1: initial document/content/FTS/embeddings/collections/path_contexts schema.
const CurrentSchemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS content (
	hash TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	content_type TEXT NOT NULL,
	size INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	root_path TEXT NOT NULL,
	patterns TEXT NOT NULL,
	exclude TEXT NOT NULL DEFAULT '',
	context TEXT NOT NULL DEFAULT '',
	embeddings_enabled INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	path TEXT NOT NULL,
	title TEXT,
	hash TEXT NOT NULL REFERENCES content(hash),
	file_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	modified_at TEXT NOT NULL,
	indexed_at TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	UNIQUE(collection, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, active);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path, active);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	filepath,
	title,
	body,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS embeddings (
	hash TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	char_offset INTEGER NOT NULL,
	model TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (hash, chunk_index, model)
);

CREATE TABLE IF NOT EXISTS path_contexts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT,
	path_prefix TEXT NOT NULL,
	context TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(collection, path_prefix)
);

CREATE INDEX IF NOT EXISTS idx_path_contexts_collection ON path_contexts(collection);
`

// ensureSchema creates the schema on a fresh database, or forward-migrates
// an older one. Each CREATE TABLE IF NOT EXISTS / ALTER step is idempotent
// by construction, so ensureSchema is safe to call on every open.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	var tableExists bool
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='schema_version'`,
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if !tableExists {
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
		slog.Info("qfs_schema_created", slog.Int("version", CurrentSchemaVersion))
		return nil
	}

	var stored int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&stored); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if stored == CurrentSchemaVersion {
		return nil
	}
	if stored > CurrentSchemaVersion {
		return qerrors.SchemaTooNew(stored, CurrentSchemaVersion)
	}

	return migrate(ctx, db, stored)
}

// migrate applies forward steps from fromVersion to CurrentSchemaVersion.
// There are no prior versions shipped yet; when one is added, add a case
// here and re-run ensureSchema's idempotent table statements as needed.
func migrate(ctx context.Context, db *sql.DB, fromVersion int) error {
	slog.Info("qfs_schema_migrating", slog.Int("from", fromVersion), slog.Int("to", CurrentSchemaVersion))

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying forward schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE schema_version SET version = ?`, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("updating schema version: %w", err)
	}
	return nil
}
