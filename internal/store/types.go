// Package store is QFS's persistence layer: collections, content blobs,
// documents, the derived FTS index, the derived vector index, and path
// contexts. It is the sole arbiter of persistent state — every mutation of
// documents, content, or the FTS/vector shadows funnels through here.
package store

import "time"

// Collection is a named root directory plus an ordered set of glob patterns.
type Collection struct {
	Name     string
	RootPath string
	Patterns []string

	// ExcludePatterns are glob patterns matched against a candidate path
	// before Patterns; a match skips the file regardless of Patterns.
	ExcludePatterns []string
	// Context is a free-text description stored with the collection. Path
	// context lookups (package pathcontext) read only path_contexts rows and
	// do not consult this field.
	Context string
	// EmbeddingsEnabled gates Indexer.Embed; a collection can opt out of the
	// embedding step entirely without changing BM25 search over it.
	EmbeddingsEnabled bool

	CreatedAt time.Time
}

// Content is raw file bytes addressed by the lowercase hex SHA-256 of the
// bytes. Blobs are immutable and shared across documents.
type Content struct {
	Hash        string
	Payload     []byte
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Document binds a (collection, relative path) pair to a content hash.
type Document struct {
	ID         int64
	Collection string
	Path       string
	Title      string
	Hash       string
	FileType   string
	CreatedAt  time.Time
	ModifiedAt time.Time
	IndexedAt  time.Time
	Active     bool
}

// Docid returns the first 6 hex characters of the document's content hash,
// the short handle used by get()/docid lookup.
func (d *Document) Docid() string {
	if len(d.Hash) < 6 {
		return d.Hash
	}
	return d.Hash[:6]
}

// Embedding is a fixed-dimension (D=384) vector associated with a content
// hash and chunk index within that content.
type Embedding struct {
	Hash       string
	ChunkIndex int
	CharOffset int
	Model      string
	Vector     []float32
	CreatedAt  time.Time
}

// Dimensions is the fixed embedding width the schema and vector index are
// built around.
const Dimensions = 384

// PathContextRow is a raw (collection_or_global, path_prefix, description)
// row as stored; the longest-prefix ranking logic lives in package
// pathcontext, which consumes these.
type PathContextRow struct {
	ID         int64
	Collection *string // nil means global
	PathPrefix string
	Context    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BM25Hit is one row returned by the Store's BM25 search primitive, before
// the Searcher attaches docid/context metadata.
type BM25Hit struct {
	DocID      int64
	Collection string
	Path       string
	Title      string
	Hash       string
	FileType   string
	RawScore   float64 // native FTS5 bm25() value: negative, lower is better
	Score      float64 // normalized to [0,1], 1.0 for the best hit
	Snippet    string
}

// VectorHit is one row returned by the Store's native or legacy vector
// search primitive.
type VectorHit struct {
	DocID      int64
	Collection string
	Path       string
	Title      string
	Hash       string
	FileType   string
	Similarity float64 // cosine similarity in [0,1]
}

// BM25SearchOptions configures Store.SearchBM25.
type BM25SearchOptions struct {
	Query         string
	Collection    string // empty means no filter
	IncludeBinary bool
	Limit         int
	MinScore      float64
}

// VectorSearchOptions configures Store.SearchVector.
type VectorSearchOptions struct {
	Query      []float32
	Collection string
	Limit      int
}

// binaryContentTypePrefixes lists the content_type prefixes the Store
// treats as binary for the include_binary filter.
var binaryContentTypePrefixes = []string{
	"image/", "audio/", "video/", "application/octet-stream", "application/zip",
	"application/pdf", "application/x-",
}

func isBinaryContentType(ct string) bool {
	for _, p := range binaryContentTypePrefixes {
		if len(ct) >= len(p) && ct[:len(p)] == p {
			return true
		}
	}
	return false
}
