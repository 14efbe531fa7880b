// Package search implements QFS's three query modes — BM25, vector, and
// reciprocal-rank-fusion hybrid — over the documents a Store holds.
package search

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/qfs-dev/qfs/internal/embed"
	"github.com/qfs-dev/qfs/internal/qerrors"
	"github.com/qfs-dev/qfs/internal/store"
)

// previewBytes bounds the fallback snippet taken from a document's raw
// content when BM25 didn't produce one (vector-only and hybrid-without-BM25
// hits).
const previewBytes = 240

// Result is one ranked hit, independent of which mode produced it.
type Result struct {
	Docid      string
	Collection string
	Path       string
	Title      string
	Hash       string
	FileType   string
	Score      float64
	Snippet    string
}

// Searcher runs BM25, vector, and hybrid queries against a Store, embedding
// query text through an Embedder for the vector and hybrid paths.
type Searcher struct {
	store       *store.Store
	embedder    embed.Embedder
	rrfConstant int
}

// New builds a Searcher. rrfConstant is the k smoothing term used by Hybrid;
// pass 0 to use the spec default of 60.
func New(st *store.Store, embedder embed.Embedder, rrfConstant int) *Searcher {
	if rrfConstant <= 0 {
		rrfConstant = 60
	}
	return &Searcher{store: st, embedder: embedder, rrfConstant: rrfConstant}
}

func bm25HitToResult(h store.BM25Hit) Result {
	return Result{
		Docid: docidFromHash(h.Hash), Collection: h.Collection, Path: h.Path,
		Title: h.Title, Hash: h.Hash, FileType: h.FileType, Score: h.Score, Snippet: h.Snippet,
	}
}

func docidFromHash(hash string) string {
	if len(hash) < 6 {
		return hash
	}
	return hash[:6]
}

// BM25 runs a lexical full-text search.
func (s *Searcher) BM25(ctx context.Context, query, collection string, includeBinary bool, limit int, minScore float64) ([]Result, error) {
	hits, err := s.store.SearchBM25(ctx, store.BM25SearchOptions{
		Query: query, Collection: collection, IncludeBinary: includeBinary, Limit: limit, MinScore: minScore,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, bm25HitToResult(h))
	}
	return out, nil
}

// Vector runs a semantic search over embeddings, embedding the query text
// through the Searcher's Embedder first. usedNative reports whether the
// native ANN index served the search, as opposed to the legacy brute-force
// fallback.
func (s *Searcher) Vector(ctx context.Context, query, collection string, limit int) ([]Result, bool, error) {
	if s.embedder == nil {
		return nil, false, qerrors.NoEmbeddings("no embedder configured")
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, false, qerrors.Database("embedding query", err)
	}

	hits, usedNative, err := s.store.SearchVector(ctx, s.embedder.ModelName(), store.VectorSearchOptions{
		Query: vec, Collection: collection, Limit: limit,
	})
	if err != nil {
		return nil, false, err
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{
			Docid: docidFromHash(h.Hash), Collection: h.Collection, Path: h.Path,
			Title: h.Title, Hash: h.Hash, FileType: h.FileType, Score: h.Similarity,
			Snippet: s.fallbackSnippet(ctx, h.Hash),
		})
	}
	return out, usedNative, nil
}

func (s *Searcher) fallbackSnippet(ctx context.Context, hash string) string {
	content, err := s.store.GetContent(ctx, hash)
	if err != nil {
		return ""
	}
	text := string(content.Payload)
	if len(text) > previewBytes {
		text = text[:previewBytes]
	}
	return text
}

// fetchLimit widens the per-mode result set fed into RRF fusion so rank
// beyond the caller's requested limit is still available to contribute.
func fetchLimit(limit int) int {
	fl := limit * 2
	if fl < 20 {
		fl = 20
	}
	return fl
}

type docKey struct {
	collection string
	path       string
}

type fused struct {
	key           docKey
	result        Result
	score         float64
	bm25Contrib   float64
	hasBM25       bool
}

// Hybrid runs BM25 and vector search in parallel and fuses them with
// unweighted reciprocal rank fusion: contribution(doc) = 1/(k+rank), rank
// 1-based, summed per distinct (collection, path). Ties break by BM25
// contribution (descending), then ascending (collection, path).
func (s *Searcher) Hybrid(ctx context.Context, query, collection string, limit int) ([]Result, error) {
	fl := fetchLimit(limit)

	var bm25Results, vectorResults []Result
	var bm25Err, vectorErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bm25Results, bm25Err = s.BM25(gctx, query, collection, false, fl, 0)
		return nil
	})
	g.Go(func() error {
		vectorResults, _, vectorErr = s.Vector(gctx, query, collection, fl)
		return nil
	})
	_ = g.Wait()

	if bm25Err != nil && vectorErr != nil {
		return nil, qerrors.NoEmbeddings("both bm25 and vector search failed to produce results")
	}

	scores := make(map[docKey]*fused)

	addRanked := func(results []Result, isBM25 bool) {
		for rank, r := range results {
			key := docKey{collection: r.Collection, path: r.Path}
			contribution := 1.0 / float64(s.rrfConstant+rank+1)
			entry, ok := scores[key]
			if !ok {
				entry = &fused{key: key, result: r}
				scores[key] = entry
			} else if entry.result.Snippet == "" && r.Snippet != "" {
				entry.result.Snippet = r.Snippet
			}
			entry.score += contribution
			if isBM25 {
				entry.bm25Contrib = contribution
				entry.hasBM25 = true
			}
		}
	}

	if bm25Err == nil {
		addRanked(bm25Results, true)
	}
	if vectorErr == nil {
		addRanked(vectorResults, false)
	}

	out := make([]fused, 0, len(scores))
	for _, f := range scores {
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bm25Contrib != out[j].bm25Contrib {
			return out[i].bm25Contrib > out[j].bm25Contrib
		}
		if out[i].key.collection != out[j].key.collection {
			return out[i].key.collection < out[j].key.collection
		}
		return out[i].key.path < out[j].key.path
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	results := make([]Result, len(out))
	for i, f := range out {
		f.result.Score = f.score
		results[i] = f.result
	}
	return results, nil
}
