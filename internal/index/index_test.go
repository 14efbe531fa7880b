package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qfs-dev/qfs/internal/embed"
	"github.com/qfs-dev/qfs/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRunIndexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# Title\nbody text")

	st := newTestStore(t)
	ix := New(st, nil)

	result, err := ix.Run(context.Background(), store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, 1, result.Scanned)
	require.Equal(t, 1, result.Upserted)
	require.Equal(t, 0, result.Unchanged)

	doc, err := st.GetDocumentByPath(context.Background(), "docs", "a.md")
	require.NoError(t, err)
	require.Equal(t, "Title", doc.Title)
}

func TestRunSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "content")

	st := newTestStore(t)
	ix := New(st, nil)
	ctx := context.Background()

	_, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)

	result, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)
	require.Equal(t, 0, result.Upserted)
	require.Equal(t, 1, result.Unchanged)
}

func TestRunDeactivatesRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "content")

	st := newTestStore(t)
	ix := New(st, nil)
	ctx := context.Background()

	_, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.md")))

	result, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)
	require.Equal(t, 1, result.Deactivated)

	_, err = st.GetDocumentByPath(ctx, "docs", "a.md")
	require.Error(t, err)
}

func TestExtractTitleFallsBackToBaseName(t *testing.T) {
	require.Equal(t, "notes.txt", extractTitle("dir/notes.txt", []byte("no heading here")))
	require.Equal(t, "Overview", extractTitle("readme.md", []byte("# Overview\nmore text")))
}

func TestChunkTextSplitsLongText(t *testing.T) {
	text := make([]byte, 0, 10)
	for i := 0; i < 10; i++ {
		text = append(text, 'a')
	}
	chunks := chunkText(string(text), 4)
	require.Equal(t, []string{"aaaa", "aaaa", "aa"}, chunks)
}

func TestEmbedWithoutEmbedderErrors(t *testing.T) {
	st := newTestStore(t)
	ix := New(st, nil)
	_, err := ix.Embed(context.Background(), "docs")
	require.Error(t, err)
}

func TestEmbedGeneratesEmbeddingsForActiveDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "async task scheduling engine")

	st := newTestStore(t)
	embedder := embed.NewStaticEmbedder()
	ix := New(st, embedder)
	ctx := context.Background()

	require.NoError(t, st.AddCollection(ctx, "docs", dir, nil, store.CollectionOptions{EmbeddingsEnabled: true}))

	_, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)

	n, err := ix.Embed(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	count, err := st.CountEmbeddings(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestEmbedSkippedWhenCollectionOptsOut(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "async task scheduling engine")

	st := newTestStore(t)
	embedder := embed.NewStaticEmbedder()
	ix := New(st, embedder)
	ctx := context.Background()

	require.NoError(t, st.AddCollection(ctx, "docs", dir, nil, store.CollectionOptions{EmbeddingsEnabled: false}))
	_, err := ix.Run(ctx, store.Collection{Name: "docs", RootPath: dir})
	require.NoError(t, err)

	n, err := ix.Embed(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	count, err := st.CountEmbeddings(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
