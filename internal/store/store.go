package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// Store is the sole arbiter of QFS's persistent state: collections, content
// blobs, documents, the derived FTS and vector indices, and path contexts.
// All exported methods are safe for concurrent use; writes serialize at the
// database layer (WAL mode, single open connection pool of size 1).
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	lock *WriterLock // nil for an ephemeral in-memory database

	vecMu    sync.Mutex
	vecState vectorIndexState
	vecIndex *hnswIndex // present once vecState == vecReady
}

const timeLayout = time.RFC3339Nano

// Open opens or creates a QFS database at path, applying WAL journaling and
// running schema migration. Pass "" for an ephemeral in-memory database
// (used by tests).
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, qerrors.Database("creating database directory", err)
			}
		}
		dsn = sqliteDSN(path)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, qerrors.Database("opening database", err)
	}

	// A single writer connection avoids SQLITE_BUSY storms under WAL; readers
	// still observe a consistent snapshot per query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if path != "" {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, qerrors.Database("setting pragma", err)
			}
		}
	}

	var lock *WriterLock
	if path != "" {
		lock = NewWriterLock(filepath.Dir(path))
		if err := lock.Lock(); err != nil {
			_ = db.Close()
			return nil, qerrors.Database("acquiring writer lock", err)
		}
	}

	err = ensureSchema(ctx, db)
	if lock != nil {
		_ = lock.Unlock()
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, lock: lock}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nowString() string { return time.Now().UTC().Format(timeLayout) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// -----------------------------------------------------------------------
// Collections
// -----------------------------------------------------------------------

// CollectionOptions carries the optional fields AddCollection can set beyond
// the name/root/patterns every collection needs.
type CollectionOptions struct {
	ExcludePatterns   []string
	Context           string
	EmbeddingsEnabled bool
}

// AddCollection creates or replaces a collection definition.
func (s *Store) AddCollection(ctx context.Context, name, rootPath string, patterns []string, opts CollectionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, root_path, patterns, exclude, context, embeddings_enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   root_path = excluded.root_path, patterns = excluded.patterns,
		   exclude = excluded.exclude, context = excluded.context,
		   embeddings_enabled = excluded.embeddings_enabled`,
		name, rootPath, strings.Join(patterns, "\x1f"), strings.Join(opts.ExcludePatterns, "\x1f"),
		opts.Context, boolToInt(opts.EmbeddingsEnabled), nowString(),
	)
	if err != nil {
		return qerrors.Database("inserting collection", err)
	}
	return nil
}

const collectionColumns = `name, root_path, patterns, exclude, context, embeddings_enabled, created_at`

func scanCollectionRow(scan func(dest ...any) error) (*Collection, error) {
	var c Collection
	var patterns, exclude, createdAt string
	var embeddingsEnabled int
	if err := scan(&c.Name, &c.RootPath, &patterns, &exclude, &c.Context, &embeddingsEnabled, &createdAt); err != nil {
		return nil, err
	}
	c.Patterns = strings.Split(patterns, "\x1f")
	if exclude != "" {
		c.ExcludePatterns = strings.Split(exclude, "\x1f")
	}
	c.EmbeddingsEnabled = embeddingsEnabled != 0
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// GetCollection returns a collection by name.
func (s *Store) GetCollection(ctx context.Context, name string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE name = ?`, name)
	c, err := scanCollectionRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, qerrors.NotFound(fmt.Sprintf("collection %q", name))
	}
	if err != nil {
		return nil, qerrors.Database("querying collection", err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM collections ORDER BY name`)
	if err != nil {
		return nil, qerrors.Database("listing collections", err)
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		c, err := scanCollectionRow(rows.Scan)
		if err != nil {
			return nil, qerrors.Database("scanning collection", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RemoveCollection deletes a collection and deactivates (not erases) all of
// its documents; shared content blobs are left untouched.
func (s *Store) RemoveCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.Database("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM documents WHERE collection = ? AND active = 1`, name)
	if err != nil {
		return qerrors.Database("listing documents for collection removal", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return qerrors.Database("scanning document id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET active = 0 WHERE id = ?`, id); err != nil {
			return qerrors.Database("deactivating document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, id); err != nil {
			return qerrors.Database("removing fts row", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return qerrors.Database("deleting collection", err)
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------
// Content (content-addressable storage)
// -----------------------------------------------------------------------

// InsertContent inserts a content blob keyed by its precomputed SHA-256
// hash. Idempotent: a second call with the same hash is a no-op, even if
// the caller passes different bytes (the Store trusts the caller's hash).
func (s *Store) InsertContent(ctx context.Context, hash string, payload []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO content (hash, payload, content_type, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		hash, payload, contentType, len(payload), nowString(),
	)
	if err != nil {
		return qerrors.Database("inserting content", err)
	}
	return nil
}

// GetContent returns the content row for hash, or NotFound.
func (s *Store) GetContent(ctx context.Context, hash string) (*Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Content
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, payload, content_type, size, created_at FROM content WHERE hash = ?`, hash,
	).Scan(&c.Hash, &c.Payload, &c.ContentType, &c.Size, &createdAt)
	if err == sql.ErrNoRows {
		return nil, qerrors.NotFound(fmt.Sprintf("content %q", hash))
	}
	if err != nil {
		return nil, qerrors.Database("querying content", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// -----------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------

// UpsertDocument creates or updates the (collection, path) document,
// rewriting its FTS shadow row in the same transaction. Upsert always wins:
// re-activation happens implicitly.
func (s *Store) UpsertDocument(ctx context.Context, collection, path, title, hash, fileType, previewText string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, qerrors.Database("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowString()
	var titleArg any
	if title != "" {
		titleArg = title
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(collection, path) DO UPDATE SET
		   title = excluded.title,
		   hash = excluded.hash,
		   file_type = excluded.file_type,
		   modified_at = excluded.modified_at,
		   indexed_at = excluded.indexed_at,
		   active = 1`,
		collection, path, titleArg, hash, fileType, now, now, now,
	)
	if err != nil {
		return nil, qerrors.Database("upserting document", err)
	}

	var id int64
	id, err = res.LastInsertId()
	if err != nil || id == 0 {
		// ON CONFLICT DO UPDATE doesn't report LastInsertId on modernc.org/sqlite
		// for the updated row; look it up directly.
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM documents WHERE collection = ? AND path = ?`, collection, path,
		).Scan(&id); err != nil {
			return nil, qerrors.Database("resolving document id", err)
		}
	}

	filepathCol := collection + "/" + path
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, id); err != nil {
		return nil, qerrors.Database("clearing fts row", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (rowid, filepath, title, body) VALUES (?, ?, ?, ?)`,
		id, filepathCol, title, previewText,
	); err != nil {
		return nil, qerrors.Database("writing fts row", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, qerrors.Database("committing document upsert", err)
	}

	return &Document{
		ID: id, Collection: collection, Path: path, Title: title, Hash: hash, FileType: fileType,
		ModifiedAt: parseTime(now), IndexedAt: parseTime(now), Active: true,
	}, nil
}

// DeactivateDocument flips active to 0 and removes the document's FTS row.
// A subsequent upsert re-activates the document implicitly.
func (s *Store) DeactivateDocument(ctx context.Context, collection, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.Database("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE collection = ? AND path = ? AND active = 1`, collection, path,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil // already inactive or never existed: deactivation is idempotent
	}
	if err != nil {
		return qerrors.Database("finding document to deactivate", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET active = 0 WHERE id = ?`, id); err != nil {
		return qerrors.Database("deactivating document", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, id); err != nil {
		return qerrors.Database("removing fts row", err)
	}

	return tx.Commit()
}

// GetDocumentByPath returns the active document at (collection, path).
func (s *Store) GetDocumentByPath(ctx context.Context, collection, path string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanDocumentRow(ctx,
		`SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
		 FROM documents WHERE collection = ? AND path = ? AND active = 1`,
		collection, path)
}

// GetDocumentByID returns a document by its surrogate id, active or not.
func (s *Store) GetDocumentByID(ctx context.Context, id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanDocumentRow(ctx,
		`SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
		 FROM documents WHERE id = ?`, id)
}

func (s *Store) scanDocumentRow(ctx context.Context, query string, args ...any) (*Document, error) {
	var d Document
	var title sql.NullString
	var createdAt, modifiedAt, indexedAt string
	var active int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&d.ID, &d.Collection, &d.Path, &title, &d.Hash, &d.FileType,
		&createdAt, &modifiedAt, &indexedAt, &active,
	)
	if err == sql.ErrNoRows {
		return nil, qerrors.NotFound("document")
	}
	if err != nil {
		return nil, qerrors.Database("querying document", err)
	}
	d.Title = title.String
	d.CreatedAt = parseTime(createdAt)
	d.ModifiedAt = parseTime(modifiedAt)
	d.IndexedAt = parseTime(indexedAt)
	d.Active = active != 0
	return &d, nil
}

// NormalizeDocid strips surrounding quotes and one leading '#', trims
// whitespace, and lowercases s. It does not validate hex-ness or length;
// callers use it before GetDocumentByDocid.
func NormalizeDocid(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.TrimPrefix(s, "#")
	return strings.ToLower(strings.TrimSpace(s))
}

// isHexDocid reports whether s is a plausible normalized docid: at least 6
// characters, all in [0-9a-f].
func isHexDocid(s string) bool {
	if len(s) < 6 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

// GetDocumentByDocid resolves a short hex docid (the leading characters of a
// content hash) to its active document. When multiple documents share a
// hash prefix, the first-inserted match wins.
func (s *Store) GetDocumentByDocid(ctx context.Context, docid string) (*Document, error) {
	normalized := NormalizeDocid(docid)
	if !isHexDocid(normalized) {
		return nil, qerrors.InvalidQuery(fmt.Sprintf("docid %q is not a valid hex identifier of at least 6 characters", docid))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanDocumentRow(ctx,
		`SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
		 FROM documents WHERE hash LIKE ? || '%' AND active = 1 ORDER BY id ASC LIMIT 1`,
		normalized)
}

// ActiveDocumentPaths returns the set of active (collection, path) pairs for
// a collection, used by the Indexer to detect files that disappeared.
func (s *Store) ActiveDocumentPaths(ctx context.Context, collection string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, id FROM documents WHERE collection = ? AND active = 1`, collection)
	if err != nil {
		return nil, qerrors.Database("listing active documents", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var path string
		var id int64
		if err := rows.Scan(&path, &id); err != nil {
			return nil, qerrors.Database("scanning active document", err)
		}
		out[path] = id
	}
	return out, rows.Err()
}

// CountDocuments returns the number of active documents, optionally scoped
// to a collection.
func (s *Store) CountDocuments(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var err error
	if collection == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE active = 1`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE collection = ? AND active = 1`, collection).Scan(&count)
	}
	if err != nil {
		return 0, qerrors.Database("counting documents", err)
	}
	return count, nil
}

// CountEmbeddings returns the total number of embedding rows.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, qerrors.Database("counting embeddings", err)
	}
	return count, nil
}

// DatabaseSizeBytes returns the on-disk size of the database file, or 0 for
// an in-memory store.
func (s *Store) DatabaseSizeBytes() int64 {
	if s.path == "" {
		return 0
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
