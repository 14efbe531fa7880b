// Package qerrors defines the tagged-sum error kinds QFS surfaces across
// store, index, and search operations.
package qerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the six error kinds the core propagates.
type Kind int

const (
	// KindNotFound indicates a document, content blob, or collection is missing.
	KindNotFound Kind = iota
	// KindInvalidQuery indicates a malformed docid, empty sanitized FTS query,
	// or bad glob syntax.
	KindInvalidQuery
	// KindNoEmbeddings indicates a vector/hybrid search was requested but the
	// store has no embeddings matching the filter.
	KindNoEmbeddings
	// KindSchemaTooNew indicates the on-disk schema version exceeds the
	// version this build understands.
	KindSchemaTooNew
	// KindDatabase indicates an underlying storage failure.
	KindDatabase
	// KindIO indicates a per-file read failure during indexing.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidQuery:
		return "invalid_query"
	case KindNoEmbeddings:
		return "no_embeddings"
	case KindSchemaTooNew:
		return "schema_too_new"
	case KindDatabase:
		return "database"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is QFS's structured error type. It carries a Kind so callers can
// branch on errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by Kind, so errors.Is(err, qerrors.NotFound("")) works without
// caring about the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func new_(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error { return new_(KindNotFound, message, nil) }

// InvalidQuery builds a KindInvalidQuery error.
func InvalidQuery(message string) *Error { return new_(KindInvalidQuery, message, nil) }

// NoEmbeddings builds a KindNoEmbeddings error.
func NoEmbeddings(message string) *Error { return new_(KindNoEmbeddings, message, nil) }

// SchemaTooNew builds a KindSchemaTooNew error.
func SchemaTooNew(stored, expected int) *Error {
	return new_(KindSchemaTooNew, fmt.Sprintf("on-disk schema version %d is newer than supported version %d", stored, expected), nil)
}

// Database wraps an underlying storage failure as KindDatabase.
func Database(message string, cause error) *Error { return new_(KindDatabase, message, cause) }

// IO wraps a per-file read failure as KindIO.
func IO(message string, cause error) *Error { return new_(KindIO, message, cause) }

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
