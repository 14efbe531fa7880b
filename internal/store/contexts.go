package store

import (
	"context"
	"database/sql"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// SetPathContext inserts or replaces a path context description. A nil
// collection means the context applies globally, across all collections.
func (s *Store) SetPathContext(ctx context.Context, collection *string, pathPrefix, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowString()
	var collArg any
	if collection != nil {
		collArg = *collection
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO path_contexts (collection, path_prefix, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, path_prefix) DO UPDATE SET
		   context = excluded.context, updated_at = excluded.updated_at`,
		collArg, pathPrefix, description, now, now,
	)
	if err != nil {
		return qerrors.Database("setting path context", err)
	}
	return nil
}

// ContextsForLookup returns every path context row that could apply to
// collection: rows scoped to collection specifically, plus global rows
// (collection IS NULL). The longest-prefix ranking is left to the
// pathcontext package, which consumes these raw rows.
func (s *Store) ContextsForLookup(ctx context.Context, collection string) ([]PathContextRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection, path_prefix, context, created_at, updated_at
		 FROM path_contexts WHERE collection = ? OR collection IS NULL
		 ORDER BY collection IS NULL, path_prefix`,
		collection)
	if err != nil {
		return nil, qerrors.Database("listing path contexts", err)
	}
	defer rows.Close()

	var out []PathContextRow
	for rows.Next() {
		var r PathContextRow
		var collNull sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &collNull, &r.PathPrefix, &r.Context, &createdAt, &updatedAt); err != nil {
			return nil, qerrors.Database("scanning path context", err)
		}
		if collNull.Valid {
			v := collNull.String
			r.Collection = &v
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RemovePathContext deletes a single path context row.
func (s *Store) RemovePathContext(ctx context.Context, collection *string, pathPrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var collArg any
	if collection != nil {
		collArg = *collection
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM path_contexts WHERE (collection = ? OR (collection IS NULL AND ? IS NULL)) AND path_prefix = ?`,
		collArg, collArg, pathPrefix,
	)
	if err != nil {
		return qerrors.Database("removing path context", err)
	}
	return nil
}
