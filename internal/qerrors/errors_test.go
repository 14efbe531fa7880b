package qerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	require.Equal(t, "not_found", KindNotFound.String())
	require.Equal(t, "invalid_query", KindInvalidQuery.String())
	require.Equal(t, "no_embeddings", KindNoEmbeddings.String())
	require.Equal(t, "schema_too_new", KindSchemaTooNew.String())
	require.Equal(t, "database", KindDatabase.String())
	require.Equal(t, "io", KindIO.String())
	require.Equal(t, "unknown", Kind(99).String())
}

func TestErrorMessageIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("disk full")
	err := Database("writing document", cause)
	require.Equal(t, "database: writing document: disk full", err.Error())

	noCause := NotFound("document missing")
	require.Equal(t, "not_found: document missing", noCause.Error())
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := IO("reading file", cause)
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesByKindNotMessage(t *testing.T) {
	err := NotFound("document x")
	require.True(t, Is(err, KindNotFound))
	require.False(t, Is(err, KindDatabase))
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("context: %w", InvalidQuery("bad docid"))
	require.True(t, Is(err, KindInvalidQuery))
}

func TestErrorsIsWorksAcrossDistinctMessages(t *testing.T) {
	a := NotFound("collection missing")
	b := NotFound("document missing")
	require.True(t, errors.Is(a, b))
}

func TestSchemaTooNewFormatsVersions(t *testing.T) {
	err := SchemaTooNew(5, 3)
	require.Contains(t, err.Message, "5")
	require.Contains(t, err.Message, "3")
	require.Equal(t, KindSchemaTooNew, err.Kind)
}

func TestIsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), KindNotFound))
}
