// Package engine exposes QFS's six tool-surface operations — search,
// vsearch, query, get, multi_get, and status — as plain functions over the
// Store, Searcher, context resolver, and multi-get engine. A JSON-RPC or
// CLI front-end wires these to its own transport; this package has no
// transport concerns of its own.
package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/qfs-dev/qfs/internal/multiget"
	"github.com/qfs-dev/qfs/internal/pathcontext"
	"github.com/qfs-dev/qfs/internal/qerrors"
	"github.com/qfs-dev/qfs/internal/search"
	"github.com/qfs-dev/qfs/internal/store"
)

// Engine wires together the components needed to answer the tool surface.
type Engine struct {
	store      *store.Store
	searcher   *search.Searcher
	pathctx    *pathcontext.Resolver
	multi      *multiget.Engine
	defaultLim int
}

// New builds an Engine. defaultLimit backs every operation's limit=20 default.
func New(st *store.Store, searcher *search.Searcher, pathctx *pathcontext.Resolver, multi *multiget.Engine, defaultLimit int) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Engine{store: st, searcher: searcher, pathctx: pathctx, multi: multi, defaultLim: defaultLimit}
}

// SearchResult is one ranked hit returned by search, vsearch, and query.
type SearchResult struct {
	Docid      string
	Collection string
	Path       string
	Title      string
	Score      float64
	Snippet    string
	Context    string
}

func (e *Engine) attachContext(ctx context.Context, results []search.Result) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		resolved, _ := e.resolveContext(ctx, r.Collection, r.Path)
		out[i] = SearchResult{
			Docid: r.Docid, Collection: r.Collection, Path: r.Path, Title: r.Title,
			Score: r.Score, Snippet: r.Snippet, Context: resolved,
		}
	}
	return out
}

func (e *Engine) resolveContext(ctx context.Context, collection, path string) (string, error) {
	if e.pathctx == nil {
		return "", nil
	}
	desc, _, err := e.pathctx.FindContextForPath(ctx, collection, path)
	return desc, err
}

// Search runs lexical BM25 search.
func (e *Engine) Search(ctx context.Context, query, collection string, limit int, minScore float64, includeBinary bool) ([]SearchResult, error) {
	if limit <= 0 {
		limit = e.defaultLim
	}
	hits, err := e.searcher.BM25(ctx, query, collection, includeBinary, limit, minScore)
	if err != nil {
		return nil, err
	}
	return e.attachContext(ctx, hits), nil
}

// VSearch runs dense vector search.
func (e *Engine) VSearch(ctx context.Context, query, collection string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = e.defaultLim
	}
	hits, _, err := e.searcher.Vector(ctx, query, collection, limit)
	if err != nil {
		return nil, err
	}
	return e.attachContext(ctx, hits), nil
}

// Query runs hybrid reciprocal-rank-fusion search.
func (e *Engine) Query(ctx context.Context, query, collection string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = e.defaultLim
	}
	hits, err := e.searcher.Hybrid(ctx, query, collection, limit)
	if err != nil {
		return nil, err
	}
	return e.attachContext(ctx, hits), nil
}

// GetResult is the response shape for the get() operation.
type GetResult struct {
	Collection string
	Path       string
	Title      string
	Content    string
	FromLine   int
	LineCount  int
}

// Get resolves pathOrDocid (which may carry a ":linenum" suffix, overridden
// by an explicit fromLine) and returns its content, optionally sliced to a
// 1-indexed line range.
func (e *Engine) Get(ctx context.Context, pathOrDocid string, fromLine, maxLines int, includeContent bool) (*GetResult, error) {
	target, suffixLine := splitLineSuffix(pathOrDocid)
	if fromLine == 0 {
		fromLine = suffixLine
	}

	doc, err := e.multi.ResolveOne(ctx, target)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, qerrors.NotFound("no document matches " + pathOrDocid)
	}

	result := &GetResult{Collection: doc.Collection, Path: doc.Path, Title: doc.Title}

	if !includeContent {
		return result, nil
	}

	content, err := e.store.GetContent(ctx, doc.Hash)
	if err != nil {
		return nil, err
	}

	text := string(content.Payload)
	sliced, from, lineCount := sliceLines(text, fromLine, maxLines)
	result.Content = sliced
	result.FromLine = from
	result.LineCount = lineCount
	return result, nil
}

// splitLineSuffix splits a trailing ":N" line number off path, returning 0
// when absent or not a valid positive integer.
func splitLineSuffix(pathOrDocid string) (string, int) {
	idx := strings.LastIndex(pathOrDocid, ":")
	if idx < 0 || idx == len(pathOrDocid)-1 {
		return pathOrDocid, 0
	}
	n, err := strconv.Atoi(pathOrDocid[idx+1:])
	if err != nil || n < 0 {
		return pathOrDocid, 0
	}
	return pathOrDocid[:idx], n
}

// sliceLines returns the 1-indexed line range [fromLine, fromLine+maxLines)
// from text, saturating fromLine=0 to 1 and returning empty content (not an
// error) when fromLine is past EOF. maxLines=0 returns empty content with no
// truncation marker; a negative maxLines means unbounded.
func sliceLines(text string, fromLine, maxLines int) (string, int, int) {
	if fromLine <= 0 {
		fromLine = 1
	}
	if maxLines == 0 {
		return "", fromLine, 0
	}

	lines := strings.Split(text, "\n")
	startIdx := fromLine - 1
	if startIdx >= len(lines) {
		return "", fromLine, 0
	}

	endIdx := len(lines)
	if maxLines > 0 && startIdx+maxLines < endIdx {
		endIdx = startIdx + maxLines
	}

	selected := lines[startIdx:endIdx]
	result := strings.Join(selected, "\n")
	if maxLines > 0 && endIdx < len(lines) {
		result += "\n[... truncated " + strconv.Itoa(len(lines)-endIdx) + " more lines]"
	}
	return result, fromLine, len(selected)
}

// MultiGetResult mirrors multiget.Item for the multi_get tool operation.
type MultiGetResult = multiget.Item

// MultiGet resolves pattern (glob, comma-list, docid, or bare path) to a
// bounded set of document payloads.
func (e *Engine) MultiGet(ctx context.Context, pattern string, maxBytes, maxLines int) ([]MultiGetResult, error) {
	return e.multi.Resolve(ctx, pattern, multiget.Options{MaxBytes: maxBytes, MaxLines: maxLines})
}

// StatusResult is the response shape for the status() operation.
type StatusResult struct {
	Collections   []string
	Documents     int
	Embeddings    int
	SchemaVersion int
}

// Status reports corpus-wide counts.
func (e *Engine) Status(ctx context.Context) (*StatusResult, error) {
	collections, err := e.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.Name
	}

	documents, err := e.store.CountDocuments(ctx, "")
	if err != nil {
		return nil, err
	}
	embeddings, err := e.store.CountEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		Collections: names, Documents: documents, Embeddings: embeddings,
		SchemaVersion: store.CurrentSchemaVersion,
	}, nil
}
