// Package multiget resolves a single pattern string — a glob, a comma-list,
// a docid, or a bare path — to a bounded set of document payloads.
package multiget

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/qfs-dev/qfs/internal/store"
)

// DefaultMaxBytes is the per-document size cap used when Options.MaxBytes
// is unset.
const DefaultMaxBytes = 10240

// Options configures a Resolve call.
type Options struct {
	MaxBytes int
	// MaxLines caps the returned line count. 0 returns empty content with no
	// truncation marker; negative means unbounded.
	MaxLines int
}

// Item is one resolved document, either its (possibly truncated) content or
// a reason it was skipped.
type Item struct {
	Docid      string
	Collection string
	Path       string
	Title      string
	Content    string
	Skipped    bool
	SkipReason string
}

// Engine resolves multi-get patterns against a Store.
type Engine struct {
	store *store.Store
}

// New builds an Engine over st.
func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Resolve classifies pattern (glob, comma-list, or single value) and
// returns the matched documents in discovery order.
func (e *Engine) Resolve(ctx context.Context, pattern string, opts Options) ([]Item, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	var docs []*store.Document
	var err error

	switch {
	case isGlob(pattern):
		docs, err = e.resolveGlob(ctx, pattern)
	case strings.Contains(pattern, ","):
		docs, err = e.resolveCommaList(ctx, pattern)
	default:
		d, rerr := e.resolveOne(ctx, strings.TrimSpace(pattern))
		err = rerr
		if d != nil {
			docs = []*store.Document{d}
		}
	}
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, e.toItem(ctx, d, opts))
	}
	return items, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// resolveGlob matches pattern against every active document's
// collection/path, bare path, and qfs://collection/path forms.
func (e *Engine) resolveGlob(ctx context.Context, pattern string) ([]*store.Document, error) {
	all, err := e.store.ListActiveDocuments(ctx, "")
	if err != nil {
		return nil, err
	}

	var matched []*store.Document
	for _, d := range all {
		forms := []string{
			d.Collection + "/" + d.Path,
			d.Path,
			"qfs://" + d.Collection + "/" + d.Path,
		}
		hit := false
		for _, f := range forms {
			if ok, _ := path.Match(pattern, f); ok {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func (e *Engine) resolveCommaList(ctx context.Context, pattern string) ([]*store.Document, error) {
	var docs []*store.Document
	for _, elem := range strings.Split(pattern, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		d, err := e.resolveOne(ctx, elem)
		if err != nil {
			return nil, err
		}
		if d != nil {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// ResolveOne resolves a single element (not a glob or comma-list) via the
// same cascade multi_get uses for one value: exact collection/path, docid,
// then suffix match. Exposed for the get() tool operation, which takes a
// single path-or-docid argument.
func (e *Engine) ResolveOne(ctx context.Context, elem string) (*store.Document, error) {
	return e.resolveOne(ctx, strings.TrimPrefix(strings.TrimSpace(elem), "qfs://"))
}

// resolveOne tries, in order: exact collection/path, docid, suffix match.
func (e *Engine) resolveOne(ctx context.Context, elem string) (*store.Document, error) {
	elem = strings.TrimPrefix(elem, "qfs://")

	if collection, p, ok := strings.Cut(elem, "/"); ok {
		if d, err := e.store.GetDocumentByPath(ctx, collection, p); err == nil {
			return d, nil
		}
	}

	if d, err := e.store.GetDocumentByDocid(ctx, elem); err == nil {
		return d, nil
	}

	if d, err := e.store.GetDocumentBySuffix(ctx, elem); err == nil {
		return d, nil
	}

	return nil, nil
}

func (e *Engine) toItem(ctx context.Context, d *store.Document, opts Options) Item {
	item := Item{Docid: d.Docid(), Collection: d.Collection, Path: d.Path, Title: d.Title}

	content, err := e.store.GetContent(ctx, d.Hash)
	if err != nil {
		item.Skipped = true
		item.SkipReason = fmt.Sprintf("content unavailable: %v", err)
		return item
	}

	if content.Size > int64(opts.MaxBytes) {
		item.Skipped = true
		item.SkipReason = fmt.Sprintf("content size %d exceeds max_bytes %d", content.Size, opts.MaxBytes)
		return item
	}

	text := decodeUTF8Lenient(content.Payload)
	item.Content = truncateLines(text, opts.MaxLines)
	return item
}

func decodeUTF8Lenient(b []byte) string {
	if isValidUTF8(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func isValidUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "") == string(b)
}

func truncateLines(text string, maxLines int) string {
	if maxLines == 0 {
		return ""
	}
	if maxLines < 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	truncated := len(lines) - maxLines
	kept := strings.Join(lines[:maxLines], "\n")
	return fmt.Sprintf("%s\n[... truncated %d more lines]", kept, truncated)
}
