package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

func TestSanitizeFTSQuery(t *testing.T) {
	require.Equal(t, `"async"`, sanitizeFTSQuery("async"))
	require.Equal(t, `"async" "tasks"`, sanitizeFTSQuery("async tasks"))
	require.Equal(t, `"async tasks"`, sanitizeFTSQuery(`"async tasks"`))
	require.Equal(t, "", sanitizeFTSQuery("---"))
	require.Equal(t, `"hello"`, sanitizeFTSQuery("hello ??? !!!"))
}

func TestSearchBM25EmptyQueryIsInvalid(t *testing.T) {
	st := newTestStore(t)
	_, err := st.SearchBM25(context.Background(), BM25SearchOptions{Query: "---"})
	require.True(t, qerrors.Is(err, qerrors.KindInvalidQuery))
}

func TestSearchBM25EmptyCorpusReturnsEmptySlice(t *testing.T) {
	st := newTestStore(t)
	hits, err := st.SearchBM25(context.Background(), BM25SearchOptions{Query: "async"})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearchBM25BestHitScoresOne(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertContent(ctx, "h1", []byte("this handles async tasks well"), "text/plain"))
	_, err := st.UpsertDocument(ctx, "docs", "a.md", "A", "h1", "md", "this handles async tasks well")
	require.NoError(t, err)

	require.NoError(t, st.InsertContent(ctx, "h2", []byte("this briefly mentions async once"), "text/plain"))
	_, err = st.UpsertDocument(ctx, "docs", "b.md", "B", "h2", "md", "this briefly mentions async once")
	require.NoError(t, err)

	hits, err := st.SearchBM25(ctx, BM25SearchOptions{Query: "async"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.InDelta(t, 1.0, hits[0].Score, 1e-9)
	require.Contains(t, strings.ToLower(hits[0].Snippet), "async")
}

func TestSearchBM25ExcludesBinaryByDefault(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertContent(ctx, "h1", []byte("\x89PNGasync"), "image/png"))
	_, err := st.UpsertDocument(ctx, "assets", "a.png", "A", "h1", "png", "async")
	require.NoError(t, err)

	hits, err := st.SearchBM25(ctx, BM25SearchOptions{Query: "async"})
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = st.SearchBM25(ctx, BM25SearchOptions{Query: "async", IncludeBinary: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearchBM25MinScoreFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertContent(ctx, "h1", []byte("async async async handler"), "text/plain"))
	_, err := st.UpsertDocument(ctx, "docs", "a.md", "A", "h1", "md", "async async async handler")
	require.NoError(t, err)

	hits, err := st.SearchBM25(ctx, BM25SearchOptions{Query: "async", MinScore: 1.1})
	require.NoError(t, err)
	require.Empty(t, hits)
}
