package multiget

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qfs-dev/qfs/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedDoc(t *testing.T, st *store.Store, collection, path, hash string, content []byte) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InsertContent(ctx, hash, content, "text/plain"))
	_, err := st.UpsertDocument(ctx, collection, path, path, hash, "md", string(content))
	require.NoError(t, err)
}

func TestResolveSingleByExactPath(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "h1", []byte("hello"))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/a.md", Options{MaxLines: -1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "hello", items[0].Content)
}

func TestResolveSingleByDocid(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "a1b2c3deadbeef", []byte("hello"))

	e := New(st)
	items, err := e.Resolve(context.Background(), "#A1B2C3", Options{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "a.md", items[0].Path)
}

func TestResolveSingleBySuffix(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "nested/a.md", "h1", []byte("hello"))

	e := New(st)
	items, err := e.Resolve(context.Background(), "a.md", Options{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "nested/a.md", items[0].Path)
}

func TestResolveCommaListPreservesOrder(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "h1", []byte("A"))
	seedDoc(t, st, "docs", "b.md", "h2", []byte("B"))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/a.md, docs/b.md", Options{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "a.md", items[0].Path)
	require.Equal(t, "b.md", items[1].Path)
}

func TestResolveGlobMatchesAllCollectionDocuments(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "h1", []byte("A"))
	seedDoc(t, st, "docs", "b.md", "h2", []byte("B"))
	seedDoc(t, st, "other", "c.md", "h3", []byte("C"))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/*.md", Options{})
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestResolveOversizeContentIsSkipped(t *testing.T) {
	st := newTestStore(t)
	big := strings.Repeat("x", 20000)
	seedDoc(t, st, "docs", "small.md", "h1", []byte("small"))
	seedDoc(t, st, "docs", "big.md", "h2", []byte(big))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/small.md, docs/big.md", Options{MaxBytes: 10240})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.False(t, items[0].Skipped)
	require.True(t, items[1].Skipped)
	require.NotEmpty(t, items[1].SkipReason)
}

func TestResolveTruncatesLinesWithMarker(t *testing.T) {
	st := newTestStore(t)
	content := strings.Join([]string{"l1", "l2", "l3", "l4", "l5"}, "\n")
	seedDoc(t, st, "docs", "a.md", "h1", []byte(content))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/a.md", Options{MaxLines: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Contains(t, items[0].Content, "l1\nl2")
	require.Contains(t, items[0].Content, "[... truncated 3 more lines]")
}

func TestResolveMaxLinesZeroReturnsEmptyContent(t *testing.T) {
	st := newTestStore(t)
	content := strings.Join([]string{"l1", "l2", "l3"}, "\n")
	seedDoc(t, st, "docs", "a.md", "h1", []byte(content))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/a.md", Options{MaxLines: 0})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].Skipped)
	require.Equal(t, "", items[0].Content)
}

func TestResolveMaxLinesNegativeIsUnbounded(t *testing.T) {
	st := newTestStore(t)
	content := strings.Join([]string{"l1", "l2", "l3"}, "\n")
	seedDoc(t, st, "docs", "a.md", "h1", []byte(content))

	e := New(st)
	items, err := e.Resolve(context.Background(), "docs/a.md", Options{MaxLines: -1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, content, items[0].Content)
}

func TestResolveOneStripsQfsScheme(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "h1", []byte("hello"))

	e := New(st)
	doc, err := e.ResolveOne(context.Background(), "qfs://docs/a.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, "a.md", doc.Path)
}
