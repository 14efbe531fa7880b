package store

import (
	"context"
	"database/sql"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// ListActiveDocuments returns every active document, ordered by insertion,
// optionally scoped to a collection. Used by glob resolution, which needs
// every candidate path to match against.
func (s *Store) ListActiveDocuments(ctx context.Context, collection string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
	          FROM documents WHERE active = 1`
	args := []any{}
	if collection != "" {
		query += " AND collection = ?"
		args = append(args, collection)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, qerrors.Database("listing active documents", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocumentRowFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocumentBySuffix returns the first-inserted active document whose path
// ends with suffix.
func (s *Store) GetDocumentBySuffix(ctx context.Context, suffix string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanDocumentRow(ctx,
		`SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
		 FROM documents WHERE path LIKE '%' || ? AND active = 1 ORDER BY id ASC LIMIT 1`,
		suffix)
}

func scanDocumentRowFromRows(rows *sql.Rows) (*Document, error) {
	var d Document
	var title sql.NullString
	var createdAt, modifiedAt, indexedAt string
	var active int
	if err := rows.Scan(&d.ID, &d.Collection, &d.Path, &title, &d.Hash, &d.FileType,
		&createdAt, &modifiedAt, &indexedAt, &active); err != nil {
		return nil, qerrors.Database("scanning document row", err)
	}
	d.Title = title.String
	d.CreatedAt = parseTime(createdAt)
	d.ModifiedAt = parseTime(modifiedAt)
	d.IndexedAt = parseTime(indexedAt)
	d.Active = active != 0
	return &d, nil
}
