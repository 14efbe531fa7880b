// Package index implements the Indexer: it walks a collection's scanned
// files, computes content hashes, upserts blobs and documents, and
// deactivates rows for files that disappeared. Generating embeddings is a
// separate, explicit operation (Indexer.Embed), not part of the scan/hash/
// commit pipeline.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/qfs-dev/qfs/internal/embed"
	"github.com/qfs-dev/qfs/internal/qerrors"
	"github.com/qfs-dev/qfs/internal/scanner"
	"github.com/qfs-dev/qfs/internal/store"
)

// previewBodyBytes bounds the text stored in the FTS shadow's body column.
const previewBodyBytes = 4096

// Result summarizes one indexing run over a collection. RunID identifies the
// run in logs so a scan's file-skip warnings can be correlated with its
// completion summary.
type Result struct {
	RunID       string
	Scanned     int
	Upserted    int
	Unchanged   int
	Deactivated int
	Skipped     int
}

// Indexer drives the scan/hash/commit pipeline for a single collection at a
// time; a Store is the sole writer target, an Embedder optionally backs Embed.
type Indexer struct {
	store    *store.Store
	embedder embed.Embedder
}

// New builds an Indexer. embedder may be nil if the caller never calls Embed.
func New(st *store.Store, embedder embed.Embedder) *Indexer {
	return &Indexer{store: st, embedder: embedder}
}

// Run scans collection's root directory for files matching its patterns,
// hashes and commits each one, and deactivates any previously active
// document whose path no longer appears in this scan.
func (ix *Indexer) Run(ctx context.Context, collection store.Collection) (*Result, error) {
	results, err := scanner.Scan(ctx, scanner.Options{
		RootDir: collection.RootPath, Patterns: collection.Patterns, ExcludePatterns: collection.ExcludePatterns,
	})
	if err != nil {
		return nil, qerrors.IO("starting scan", err)
	}

	runID := uuid.NewString()
	seen := make(map[string]bool)
	res := &Result{RunID: runID}

	activePaths, err := ix.store.ActiveDocumentPaths(ctx, collection.Name)
	if err != nil {
		return nil, err
	}

	for r := range results {
		if r.Err != nil {
			slog.Warn("qfs_index_file_skipped", slog.String("run_id", runID), slog.String("collection", collection.Name),
				slog.String("path", r.Path), slog.String("error", r.Err.Error()))
			res.Skipped++
			continue
		}

		res.Scanned++
		seen[r.File.Path] = true

		changed, err := ix.commitFile(ctx, collection.Name, r.File)
		if err != nil {
			return nil, err // database errors abort and propagate
		}
		if changed {
			res.Upserted++
		} else {
			res.Unchanged++
		}
	}

	for p := range activePaths {
		if seen[p] {
			continue
		}
		if err := ix.store.DeactivateDocument(ctx, collection.Name, p); err != nil {
			return nil, err
		}
		res.Deactivated++
	}

	slog.Info("qfs_index_run_complete", slog.String("run_id", runID), slog.String("collection", collection.Name),
		slog.Int("scanned", res.Scanned), slog.Int("upserted", res.Upserted),
		slog.Int("unchanged", res.Unchanged), slog.Int("deactivated", res.Deactivated),
		slog.Int("skipped", res.Skipped))

	return res, nil
}

// commitFile hashes one scanned file and upserts it unless its content hash
// already matches the active document at that path. The filesystem mtime is
// not part of the comparison: it has no relation to modified_at, which is
// the store's own write-time clock and is reset on every upsert.
func (ix *Indexer) commitFile(ctx context.Context, collection string, f *scanner.File) (bool, error) {
	hash := hashBytes(f.Content)

	existing, err := ix.store.GetDocumentByPath(ctx, collection, f.Path)
	if err == nil && existing.Hash == hash {
		return false, nil
	}
	if err != nil && !qerrors.Is(err, qerrors.KindNotFound) {
		return false, err
	}

	if err := ix.store.InsertContent(ctx, hash, f.Content, f.ContentType); err != nil {
		return false, err
	}

	title := extractTitle(f.Path, f.Content)
	preview := previewBody(f.Content)
	fileType := strings.TrimPrefix(path.Ext(f.Path), ".")

	if _, err := ix.store.UpsertDocument(ctx, collection, f.Path, title, hash, fileType, preview); err != nil {
		return false, err
	}
	return true, nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// extractTitle pulls a title from the first markdown H1 line, falling back
// to the file's base name for non-markdown or H1-less files.
func extractTitle(filePath string, content []byte) string {
	if strings.HasSuffix(strings.ToLower(filePath), ".md") || strings.HasSuffix(strings.ToLower(filePath), ".markdown") {
		for _, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "# ") {
				return strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			}
		}
	}
	return path.Base(filePath)
}

// previewBody truncates content to a bounded prefix suitable for the FTS
// shadow's body column.
func previewBody(content []byte) string {
	text := string(content)
	if len(text) > previewBodyBytes {
		text = text[:previewBodyBytes]
	}
	return text
}

// chunkSizeChars bounds a single embedding chunk; content longer than this
// is split on chunk boundaries before embedding.
const chunkSizeChars = 2000

// Embed walks every active document in collection and generates embeddings
// for its content through the Indexer's Embedder, chunking long content.
// Embeddings are keyed by content hash, so a changed file's new hash simply
// gets new embeddings; nothing needs invalidating.
func (ix *Indexer) Embed(ctx context.Context, collectionName string) (int, error) {
	if ix.embedder == nil {
		return 0, qerrors.NoEmbeddings("no embedder configured")
	}

	col, err := ix.store.GetCollection(ctx, collectionName)
	if err != nil {
		return 0, err
	}
	if !col.EmbeddingsEnabled {
		slog.Info("qfs_embed_skipped_disabled", slog.String("collection", collectionName))
		return 0, nil
	}

	paths, err := ix.store.ActiveDocumentPaths(ctx, collectionName)
	if err != nil {
		return 0, err
	}

	count := 0
	for p := range paths {
		doc, err := ix.store.GetDocumentByPath(ctx, collectionName, p)
		if err != nil {
			continue
		}
		content, err := ix.store.GetContent(ctx, doc.Hash)
		if err != nil {
			continue
		}

		chunks := chunkText(string(content.Payload), chunkSizeChars)
		vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			slog.Warn("qfs_embed_failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}

		offset := 0
		for i, vec := range vectors {
			if err := ix.store.InsertEmbedding(ctx, doc.Hash, i, offset, ix.embedder.ModelName(), vec); err != nil {
				return count, err
			}
			offset += len(chunks[i])
			count++
		}
	}

	return count, nil
}

func chunkText(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
