// Package index is the embedding index client used by ingestion and
// retrieval. It owns the embedder, caches collection handles and merges
// multi-text queries into a single ranked result.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/tomes/pkg/embeddings"
	"github.com/papercomputeco/tomes/pkg/splitter"
	"github.com/papercomputeco/tomes/pkg/vector"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "material"

// Config holds the collaborators of an Index.
type Config struct {
	Driver   vector.Driver
	Embedder embeddings.Embedder

	// Splitter splits questions in QueryQuestion. It should match the
	// splitter used at ingestion. Defaults to splitter.New().
	Splitter *splitter.Splitter

	Logger *zap.Logger
}

// Index wraps a vector driver and an embedder.
type Index struct {
	driver   vector.Driver
	embedder embeddings.Embedder
	splitter *splitter.Splitter
	logger   *zap.Logger

	mu          sync.RWMutex
	collections map[string]vector.Collection
	group       singleflight.Group
}

// Hit is a single ranked document.
type Hit struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Score    float32 `json:"score"`
}

// Result is a ranked retrieval result, most similar first.
type Result struct {
	Documents []string `json:"documents"`
	Hits      []Hit    `json:"hits"`
}

// New creates an Index.
func New(cfg Config) (*Index, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Splitter == nil {
		cfg.Splitter = splitter.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Index{
		driver:      cfg.Driver,
		embedder:    cfg.Embedder,
		splitter:    cfg.Splitter,
		logger:      cfg.Logger,
		collections: make(map[string]vector.Collection),
	}, nil
}

// GetOrCreateCollection returns a cached handle for name, resolving it with
// the driver on first use. Concurrent first calls share one driver call. The
// shared call is detached from any single caller's cancellation; each caller
// stops waiting when its own ctx is done.
func (i *Index) GetOrCreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	i.mu.RLock()
	c, ok := i.collections[name]
	i.mu.RUnlock()
	if ok {
		return c, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := i.group.DoChan(name, func() (any, error) {
		i.mu.RLock()
		c, ok := i.collections[name]
		i.mu.RUnlock()
		if ok {
			return c, nil
		}

		c, err := i.driver.GetOrCreateCollection(shared, name)
		if err != nil {
			return nil, err
		}

		i.mu.Lock()
		i.collections[name] = c
		i.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, &RetrievalError{Collection: name, Op: "collection", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &RetrievalError{Collection: name, Op: "collection", Err: res.Err}
		}
		return res.Val.(vector.Collection), nil
	}
}

// Upsert embeds documents and writes them under ids. Existing ids are
// replaced.
func (i *Index) Upsert(ctx context.Context, collection string, ids, documents []string) error {
	if len(ids) != len(documents) {
		return &RetrievalError{
			Collection: collection,
			Op:         "upsert",
			Err:        fmt.Errorf("%w: %d ids, %d documents", ErrLengthMismatch, len(ids), len(documents)),
		}
	}
	if len(ids) == 0 {
		return nil
	}

	coll, err := i.GetOrCreateCollection(ctx, collection)
	if err != nil {
		return err
	}

	embs, err := embeddings.EmbedAll(ctx, i.embedder, documents)
	if err != nil {
		return &RetrievalError{Collection: collection, Op: "embed", Err: err}
	}
	if len(embs) != len(documents) {
		return &RetrievalError{
			Collection: collection,
			Op:         "embed",
			Err:        fmt.Errorf("%w: expected %d embeddings, got %d", vector.ErrEmbedding, len(documents), len(embs)),
		}
	}

	records := make([]vector.Record, len(ids))
	for n := range ids {
		records[n] = vector.Record{ID: ids[n], Document: documents[n], Embedding: embs[n]}
	}

	if err := coll.Upsert(ctx, records); err != nil {
		return &RetrievalError{Collection: collection, Op: "upsert", Err: err}
	}

	i.logger.Debug("upserted documents",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
	)
	return nil
}

// Delete removes records by id.
func (i *Index) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	coll, err := i.GetOrCreateCollection(ctx, collection)
	if err != nil {
		return err
	}
	if err := coll.Delete(ctx, ids); err != nil {
		return &RetrievalError{Collection: collection, Op: "delete", Err: err}
	}
	return nil
}

// Query runs a nearest-neighbour query per text and merges the hits by
// document text: a document reached by several texts, or stored under several
// ids by repeated ingestion of identical text, yields one hit with its best
// score and that score's id. At most topK documents are returned.
func (i *Index) Query(ctx context.Context, collection string, texts []string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	result := &Result{Documents: []string{}, Hits: []Hit{}}
	if len(texts) == 0 {
		return result, nil
	}

	coll, err := i.GetOrCreateCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	embs, err := embeddings.EmbedAll(ctx, i.embedder, texts)
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Op: "embed", Err: err}
	}

	best := make(map[string]int)
	for _, emb := range embs {
		results, err := coll.Query(ctx, emb, topK)
		if err != nil {
			return nil, &RetrievalError{Collection: collection, Op: "query", Err: err}
		}

		for _, r := range results {
			if n, seen := best[r.Document]; seen {
				if r.Score > result.Hits[n].Score {
					result.Hits[n].Score = r.Score
					result.Hits[n].ID = r.ID
				}
				continue
			}
			best[r.Document] = len(result.Hits)
			result.Hits = append(result.Hits, Hit{ID: r.ID, Document: r.Document, Score: r.Score})
		}
	}

	sort.SliceStable(result.Hits, func(a, b int) bool {
		return result.Hits[a].Score > result.Hits[b].Score
	})
	if len(result.Hits) > topK {
		result.Hits = result.Hits[:topK]
	}
	for _, h := range result.Hits {
		result.Documents = append(result.Documents, h.Document)
	}

	i.logger.Debug("queried index",
		zap.String("collection", collection),
		zap.Int("texts", len(texts)),
		zap.Int("results", len(result.Hits)),
	)
	return result, nil
}

// QueryQuestion splits question the way ingested text is split and queries
// with every segment.
func (i *Index) QueryQuestion(ctx context.Context, collection, question string, topK int) (*Result, error) {
	return i.Query(ctx, collection, i.splitter.Split(question), topK)
}

// Close closes the underlying driver and embedder.
func (i *Index) Close() error {
	embErr := i.embedder.Close()
	if err := i.driver.Close(); err != nil {
		return err
	}
	return embErr
}
