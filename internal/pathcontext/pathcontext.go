// Package pathcontext resolves descriptive text for a document's virtual
// path by longest-prefix match over rows stored in the store's path_contexts
// table, scoped either to one collection or globally.
package pathcontext

import (
	"context"
	"sort"
	"strings"

	"github.com/qfs-dev/qfs/internal/store"
)

// Resolver answers context lookups for a given collection against the
// rows the Store returns; it holds no state of its own.
type Resolver struct {
	store *store.Store
}

// New builds a Resolver over st.
func New(st *store.Store) *Resolver {
	return &Resolver{store: st}
}

// match is a path_contexts row annotated with whether it applies to the
// exact collection (as opposed to being a global fallback).
type match struct {
	row            store.PathContextRow
	collectionSpec bool
}

// normalizePath ensures path begins with '/' and has no trailing slash
// (except for the root path itself).
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// isPrefixMatch reports whether prefix is a path-component prefix of path:
// either path equals prefix (after trimming a trailing slash from prefix),
// or path continues with '/' right after the prefix.
func isPrefixMatch(path, prefix string) bool {
	prefix = normalizePath(prefix)
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func (r *Resolver) matches(ctx context.Context, collection, filePath string) ([]match, error) {
	rows, err := r.store.ContextsForLookup(ctx, collection)
	if err != nil {
		return nil, err
	}

	normalized := normalizePath(filePath)

	var out []match
	for _, row := range rows {
		if !isPrefixMatch(normalized, row.PathPrefix) {
			continue
		}
		out = append(out, match{row: row, collectionSpec: row.Collection != nil})
	}
	return out, nil
}

// rank orders matches general->specific: global before collection-specific,
// and within the same scope, shorter prefix (more general) before longer.
// The most specific match therefore sorts last, which is the element
// FindContextForPath returns.
func rank(matches []match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].collectionSpec != matches[j].collectionSpec {
			return !matches[i].collectionSpec // global (false) sorts first
		}
		return len(normalizePath(matches[i].row.PathPrefix)) < len(normalizePath(matches[j].row.PathPrefix))
	})
}

// FindContextForPath returns the single best-ranked description for
// (collection, filePath): collection-specific beats global, and within the
// same scope the longest prefix wins. Returns ("", false) when nothing
// matches.
func (r *Resolver) FindContextForPath(ctx context.Context, collection, filePath string) (string, bool, error) {
	matches, err := r.matches(ctx, collection, filePath)
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	rank(matches)
	best := matches[len(matches)-1]
	return best.row.Context, true, nil
}

// AllContextsForPath returns every matching description for
// (collection, filePath), ordered general to specific and joined by two
// newlines for presentation.
func (r *Resolver) AllContextsForPath(ctx context.Context, collection, filePath string) (string, error) {
	matches, err := r.matches(ctx, collection, filePath)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	rank(matches)

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.row.Context
	}
	return strings.Join(parts, "\n\n"), nil
}
