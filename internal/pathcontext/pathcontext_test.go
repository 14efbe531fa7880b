package pathcontext

import (
	"context"
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

func strptr(s string) *string { return &s }

func TestFindContextForPathLongestPrefixWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetPathContext(ctx, nil, "/docs", "General documentation"))
	require.NoError(t, st.SetPathContext(ctx, nil, "/api", "API reference"))
	require.NoError(t, st.SetPathContext(ctx, nil, "/api/v2", "API v2 reference"))

	r := New(st)

	desc, ok, err := r.FindContextForPath(ctx, "", "/api/v2/users.md")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "API v2 reference", desc)

	desc, ok, err = r.FindContextForPath(ctx, "", "/api/v1/users.md")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "API reference", desc)
}

func TestFindContextForPathCollectionSpecificBeatsGlobal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetPathContext(ctx, nil, "/", "Global catch-all"))
	require.NoError(t, st.SetPathContext(ctx, strptr("docs"), "/", "Docs collection root"))

	r := New(st)
	desc, ok, err := r.FindContextForPath(ctx, "docs", "/readme.md")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Docs collection root", desc)
}

func TestFindContextForPathNoMatchReturnsFalse(t *testing.T) {
	st := newTestStore(t)
	r := New(st)
	_, ok, err := r.FindContextForPath(context.Background(), "docs", "/readme.md")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAllContextsForPathOrdersGeneralToSpecific(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetPathContext(ctx, nil, "/docs", "General documentation"))
	require.NoError(t, st.SetPathContext(ctx, nil, "/docs/api", "API documentation"))

	r := New(st)
	combined, err := r.AllContextsForPath(ctx, "", "/docs/api/v2.md")
	require.NoError(t, err)
	require.Equal(t, "General documentation\n\nAPI documentation", combined)
}
