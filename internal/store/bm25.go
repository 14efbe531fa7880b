package store

import (
	"context"
	"strings"
	"unicode"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// sanitizeFTSQuery turns a free-text query into a safe FTS5 MATCH
// expression: split on whitespace, drop tokens that are pure punctuation
// (they can't be quoted into something meaningful), quote every surviving
// token, and join with an implicit AND. A token that already looks like a
// quoted phrase (starts and ends with '"') is preserved as one unit rather
// than split on its internal spaces.
func sanitizeFTSQuery(raw string) string {
	fields := splitPreservingQuotes(raw)

	var terms []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`) && len(f) >= 2 {
			inner := strings.Trim(f[1:len(f)-1], ` "`)
			if inner == "" {
				continue
			}
			terms = append(terms, `"`+strings.ReplaceAll(inner, `"`, `""`)+`"`)
			continue
		}
		if !hasSafeRune(f) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}

	return strings.Join(terms, " ")
}

// splitPreservingQuotes splits on whitespace but keeps a double-quoted
// phrase together as one field even if it contains spaces.
func splitPreservingQuotes(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			if inQuotes {
				cur.WriteRune(r)
			} else if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

// hasSafeRune reports whether f contains at least one alphanumeric rune,
// i.e. it isn't pure punctuation.
func hasSafeRune(f string) bool {
	for _, r := range f {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// SearchBM25 runs an FTS5 MATCH query and returns hits ordered by relevance.
// Scores are normalized so the best hit in the result set is 1.0: FTS5's
// native bm25() is negative with lower (more negative) meaning better, so
// normalized = best/raw for raw<0 (best is the most negative raw score in
// the set), and 0 for raw>=0.
func (s *Store) SearchBM25(ctx context.Context, opts BM25SearchOptions) ([]BM25Hit, error) {
	match := sanitizeFTSQuery(opts.Query)
	if match == "" {
		return nil, qerrors.InvalidQuery("query contains no searchable terms after sanitization")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT d.id, d.collection, d.path, d.title, d.hash, d.file_type, c.content_type,
		       bm25(documents_fts) AS raw_score,
		       snippet(documents_fts, 2, '<mark>', '</mark>', '...', 64)
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		JOIN content c ON c.hash = d.hash
		WHERE documents_fts MATCH ? AND d.active = 1`
	args := []any{match}

	if opts.Collection != "" {
		query += " AND d.collection = ?"
		args = append(args, opts.Collection)
	}

	query += " ORDER BY raw_score ASC LIMIT ?"
	args = append(args, limit*4) // over-fetch, since binary/min-score filters apply after

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, qerrors.Database("running bm25 search", err)
	}
	defer rows.Close()

	type rawHit struct {
		BM25Hit
		contentType string
	}
	var raw []rawHit
	for rows.Next() {
		var h rawHit
		if err := rows.Scan(&h.DocID, &h.Collection, &h.Path, &h.Title, &h.Hash, &h.FileType,
			&h.contentType, &h.RawScore, &h.Snippet); err != nil {
			return nil, qerrors.Database("scanning bm25 row", err)
		}
		if !opts.IncludeBinary && isBinaryContentType(h.contentType) {
			continue
		}
		raw = append(raw, h)
	}
	if err := rows.Err(); err != nil {
		return nil, qerrors.Database("iterating bm25 rows", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	best := raw[0].RawScore
	for _, h := range raw {
		if h.RawScore < best {
			best = h.RawScore
		}
	}

	hits := make([]BM25Hit, 0, len(raw))
	for _, h := range raw {
		score := 0.0
		if h.RawScore < 0 {
			score = best / h.RawScore
		}
		if score < opts.MinScore {
			continue
		}
		h.Score = score
		hits = append(hits, h.BM25Hit)
		if len(hits) >= limit {
			break
		}
	}

	return hits, nil
}

