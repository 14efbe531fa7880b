package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/coder/hnsw"

	"github.com/qfs-dev/qfs/internal/qerrors"
)

// vectorIndexState tracks the lazily-built native ANN index. It starts
// Unknown, moves to Ready on first successful build, or Failed on a build
// error. Failed is only re-evaluated after a new embedding is inserted,
// rather than retried on every search.
type vectorIndexState int

const (
	vecUnknown vectorIndexState = iota
	vecReady
	vecFailed
)

// hnswIndex is the native ANN index: a coder/hnsw graph keyed by the
// embedding's (hash, chunk_index, model) identity, using cosine distance.
type hnswIndex struct {
	graph   *hnsw.Graph[string]
	keyDocs map[string]int64 // embedding key -> owning document id
}

func embeddingKey(hash string, chunkIndex int, model string) string {
	return hash + "\x1f" + fmt.Sprint(chunkIndex) + "\x1f" + model
}

// buildVectorIndex loads every embedding row for model and constructs a
// fresh in-memory HNSW graph. Called lazily on first vector search and
// again after InsertEmbedding invalidates a Failed state.
func (s *Store) buildVectorIndex(ctx context.Context, model string) (*hnswIndex, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.hash, e.chunk_index, e.embedding, d.id
		 FROM embeddings e
		 JOIN documents d ON d.hash = e.hash AND d.active = 1
		 WHERE e.model = ?`, model)
	if err != nil {
		return nil, qerrors.Database("loading embeddings for vector index", err)
	}
	defer rows.Close()

	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance

	idx := &hnswIndex{graph: graph, keyDocs: make(map[string]int64)}
	count := 0
	for rows.Next() {
		var hash string
		var chunkIndex int
		var blob []byte
		var docID int64
		if err := rows.Scan(&hash, &chunkIndex, &blob, &docID); err != nil {
			return nil, qerrors.Database("scanning embedding row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, qerrors.Database("decoding embedding vector", err)
		}
		key := embeddingKey(hash, chunkIndex, model)
		graph.Add(hnsw.MakeNode(key, vec))
		idx.keyDocs[key] = docID
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, qerrors.Database("iterating embedding rows", err)
	}

	if count == 0 {
		return nil, qerrors.NoEmbeddings(fmt.Sprintf("no embeddings found for model %q", model))
	}

	slog.Debug("qfs_vector_index_built", slog.String("model", model), slog.Int("vectors", count))
	return idx, nil
}

// ensureVectorIndex returns the current native index, (re)building it if the
// state is Unknown. A Failed state is returned as-is without retrying
// until InsertEmbedding resets it.
func (s *Store) ensureVectorIndex(ctx context.Context, model string) (*hnswIndex, error) {
	s.vecMu.Lock()
	defer s.vecMu.Unlock()

	switch s.vecState {
	case vecReady:
		return s.vecIndex, nil
	case vecFailed:
		return nil, qerrors.NoEmbeddings("native vector index previously failed to build")
	}

	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return nil, qerrors.Database("acquiring writer lock for vector index build", err)
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	idx, err := s.buildVectorIndex(ctx, model)
	if err != nil {
		s.vecState = vecFailed
		return nil, err
	}
	s.vecState = vecReady
	s.vecIndex = idx
	return idx, nil
}

// InsertEmbedding stores an embedding row and invalidates a Failed vector
// index state so the next search retries building it.
func (s *Store) InsertEmbedding(ctx context.Context, hash string, chunkIndex, charOffset int, model string, vector []float32) error {
	if len(vector) != Dimensions {
		return qerrors.InvalidQuery(fmt.Sprintf("embedding has %d dimensions, want %d", len(vector), Dimensions))
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embeddings (hash, chunk_index, char_offset, model, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash, chunk_index, model) DO UPDATE SET
		   char_offset = excluded.char_offset, embedding = excluded.embedding`,
		hash, chunkIndex, charOffset, model, encodeVector(vector), nowString(),
	)
	s.mu.Unlock()
	if err != nil {
		return qerrors.Database("inserting embedding", err)
	}

	s.vecMu.Lock()
	if s.vecState == vecFailed {
		s.vecState = vecUnknown
		s.vecIndex = nil
	} else {
		// A new vector invalidates an already-built index too; the cheapest
		// correct move is to force a rebuild on next search.
		s.vecState = vecUnknown
		s.vecIndex = nil
	}
	s.vecMu.Unlock()

	return nil
}

// SearchVector runs a nearest-neighbor search over embeddings for the
// query's model, preferring the native HNSW index and falling back to an
// exact brute-force cosine scan when the native index is unavailable. The
// fallback is guaranteed to rank identically to the native index when both
// are operational, since both use cosine similarity over the same vectors.
func (s *Store) SearchVector(ctx context.Context, model string, opts VectorSearchOptions) ([]VectorHit, bool, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	idx, err := s.ensureVectorIndex(ctx, model)
	if err == nil {
		hits, herr := s.searchNative(ctx, idx, opts, limit)
		if herr == nil {
			return hits, true, nil
		}
		err = herr
	}

	hits, legacyErr := s.searchLegacy(ctx, model, opts, limit)
	if legacyErr != nil {
		if err != nil {
			return nil, false, err
		}
		return nil, false, legacyErr
	}
	return hits, false, nil
}

func (s *Store) searchNative(ctx context.Context, idx *hnswIndex, opts VectorSearchOptions, limit int) ([]VectorHit, error) {
	results := idx.graph.Search(opts.Query, limit*4)

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]VectorHit, 0, limit)
	for _, r := range results {
		docID, ok := idx.keyDocs[r.Key]
		if !ok {
			continue
		}
		doc, err := s.scanDocumentRow(ctx,
			`SELECT id, collection, path, title, hash, file_type, created_at, modified_at, indexed_at, active
			 FROM documents WHERE id = ? AND active = 1`, docID)
		if err != nil {
			continue
		}
		if opts.Collection != "" && doc.Collection != opts.Collection {
			continue
		}
		distance := idx.graph.Distance(opts.Query, r.Value)
		hits = append(hits, VectorHit{
			DocID: doc.ID, Collection: doc.Collection, Path: doc.Path, Title: doc.Title,
			Hash: doc.Hash, FileType: doc.FileType,
			Similarity: clampSimilarity(1 - float64(distance)), // coder/hnsw cosine distance is 1 - cosine similarity
		})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// searchLegacy brute-force scans every embedding row for model, decoding
// its vector and computing cosine similarity directly. Used when the native
// index has not been built or failed to build.
func (s *Store) searchLegacy(ctx context.Context, model string, opts VectorSearchOptions, limit int) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT d.id, d.collection, d.path, d.title, d.hash, d.file_type, e.embedding
		FROM embeddings e
		JOIN documents d ON d.hash = e.hash AND d.active = 1
		WHERE e.model = ?`
	args := []any{model}
	if opts.Collection != "" {
		query += " AND d.collection = ?"
		args = append(args, opts.Collection)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, qerrors.Database("running legacy vector scan", err)
	}
	defer rows.Close()

	type scored struct {
		VectorHit
		seen bool
	}
	best := make(map[int64]scored)

	for rows.Next() {
		var h VectorHit
		var blob []byte
		if err := rows.Scan(&h.DocID, &h.Collection, &h.Path, &h.Title, &h.Hash, &h.FileType, &blob); err != nil {
			return nil, qerrors.Database("scanning legacy vector row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, qerrors.Database("decoding legacy vector", err)
		}
		sim := clampSimilarity(cosineSimilarity(opts.Query, vec))
		if prev, ok := best[h.DocID]; !ok || sim > prev.Similarity {
			h.Similarity = sim
			best[h.DocID] = scored{VectorHit: h, seen: true}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, qerrors.Database("iterating legacy vector rows", err)
	}

	if len(best) == 0 {
		return nil, qerrors.NoEmbeddings(fmt.Sprintf("no embeddings found for model %q", model))
	}

	hits := make([]VectorHit, 0, len(best))
	for _, b := range best {
		hits = append(hits, b.VectorHit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Collection != hits[j].Collection {
			return hits[i].Collection < hits[j].Collection
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// clampSimilarity bounds a cosine-derived score to [0,1], per spec.md
// §4.1: floating-point error in the HNSW distance or in the legacy dot
// product can otherwise push the raw value just outside that range.
func clampSimilarity(sim float64) float64 {
	return math.Max(0, math.Min(1, sim))
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// encodeVector packs a float32 vector as little-endian bytes, 4 bytes per
// component, matching the legacy scan's decode path exactly.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
