package search

import (
	"context"
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

func seedDoc(t *testing.T, st *store.Store, collection, path, hash string, content string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InsertContent(ctx, hash, []byte(content), "text/plain"))
	_, err := st.UpsertDocument(ctx, collection, path, path, hash, "md", content)
	require.NoError(t, err)
}

func TestDocidFromHash(t *testing.T) {
	require.Equal(t, "a1b2c3", docidFromHash("a1b2c3deadbeef"))
	require.Equal(t, "ab", docidFromHash("ab"))
}

func TestFetchLimitHasAFloor(t *testing.T) {
	require.Equal(t, 20, fetchLimit(1))
	require.Equal(t, 40, fetchLimit(20))
}

func TestBM25DelegatesToStoreAndAttachesDocid(t *testing.T) {
	st := newTestStore(t)
	seedDoc(t, st, "docs", "a.md", "a1b2c3deadbeef", "async task runner")

	s := New(st, nil, 0)
	results, err := s.BM25(context.Background(), "async", "", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a1b2c3", results[0].Docid)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestVectorRequiresEmbedder(t *testing.T) {
	st := newTestStore(t)
	s := New(st, nil, 0)
	_, _, err := s.Vector(context.Background(), "query", "", 10)
	require.Error(t, err)
}

func TestVectorRanksMatchingDocumentFirst(t *testing.T) {
	st := newTestStore(t)
	embedder := embed.NewStaticEmbedder()
	ctx := context.Background()

	seedDoc(t, st, "docs", "a.md", "h1", "the quick brown fox jumps")
	seedDoc(t, st, "docs", "b.md", "h2", "totally unrelated banking regulations")

	for _, d := range []struct{ hash, text string }{{"h1", "the quick brown fox jumps"}, {"h2", "totally unrelated banking regulations"}} {
		vec, err := embedder.Embed(ctx, d.text)
		require.NoError(t, err)
		require.NoError(t, st.InsertEmbedding(ctx, d.hash, 0, 0, embedder.ModelName(), vec))
	}

	s := New(st, embedder, 0)
	results, _, err := s.Vector(ctx, "the quick brown fox jumps", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "a.md", results[0].Path)
}

func TestHybridFusesBothModes(t *testing.T) {
	st := newTestStore(t)
	embedder := embed.NewStaticEmbedder()
	ctx := context.Background()

	docs := []struct{ path, hash, text string }{
		{"a.md", "h1", "async task scheduling engine"},
		{"b.md", "h2", "async task scheduling engine extra words"},
		{"c.md", "h3", "completely different subject: gardening"},
	}
	for _, d := range docs {
		seedDoc(t, st, "docs", d.path, d.hash, d.text)
		vec, err := embedder.Embed(ctx, d.text)
		require.NoError(t, err)
		require.NoError(t, st.InsertEmbedding(ctx, d.hash, 0, 0, embedder.ModelName(), vec))
	}

	s := New(st, embedder, 60)
	results, err := s.Hybrid(ctx, "async task scheduling engine", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "a.md", results[0].Path)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestHybridEmptyCorpusReturnsEmptyNotError(t *testing.T) {
	st := newTestStore(t)
	embedder := embed.NewStaticEmbedder()
	s := New(st, embedder, 0)

	results, err := s.Hybrid(context.Background(), "anything", "", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
