// Package ingest turns material items into indexed chunks.
//
// A run extracts and splits the item's source, then writes the segments to
// the embedding index in fixed-size batches. File and link chunks are also
// recorded in the chunk store, batch by batch, right after each index write.
// A batch whose rows cannot be stored has its index records removed again, so
// the store never references a record that was not indexed.
// Batches run strictly in sequence and each is followed by a randomized
// throttle delay.
package ingest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/eventstream"
	"github.com/papercomputeco/tomes/pkg/extract"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/storage"
)

const (
	// DefaultBatchSize is the number of chunks written per index call.
	DefaultBatchSize = 10

	// DefaultMaxDelay bounds the throttle delay after each batch.
	DefaultMaxDelay = time.Second

	// maxIDAttempts bounds redraws of an id already used in the run.
	maxIDAttempts = 16
)

// Indexer is the part of the embedding index ingestion writes to.
type Indexer interface {
	Upsert(ctx context.Context, collection string, ids, documents []string) error
	Delete(ctx context.Context, collection string, ids []string) error
}

// Config holds the collaborators and tuning of a Coordinator.
type Config struct {
	Extractor *extract.Extractor
	Index     Indexer
	Store     storage.ChunkStore

	// Publisher receives a synced event after each successful run.
	// Defaults to no publishing.
	Publisher eventstream.Publisher

	// Collection defaults to index.DefaultCollection.
	Collection string

	// BatchSize defaults to DefaultBatchSize.
	BatchSize int

	// MaxDelay bounds the throttle delay. Zero uses DefaultMaxDelay and a
	// negative value disables throttling.
	MaxDelay time.Duration

	// IDs defaults to RandomIDs.
	IDs IDGenerator

	// Jitter picks a delay in [0, max]. Defaults to a uniform draw.
	Jitter func(max time.Duration) time.Duration

	Logger *zap.Logger
}

// Coordinator runs ingestion. It holds no per-run state and is safe for
// concurrent use.
type Coordinator struct {
	extractor  *extract.Extractor
	index      Indexer
	store      storage.ChunkStore
	publisher  eventstream.Publisher
	collection string
	batchSize  int
	maxDelay   time.Duration
	ids        IDGenerator
	jitter     func(time.Duration) time.Duration
	logger     *zap.Logger
}

// Report summarizes a successful run.
type Report struct {
	MaterialID string   `json:"material_id"`
	Source     string   `json:"source"`
	Collection string   `json:"collection"`
	Chunks     int      `json:"chunks"`
	Batches    int      `json:"batches"`
	IDs        []string `json:"ids"`
}

// RemoveReport summarizes a Remove call.
type RemoveReport struct {
	Source  material.SourceRef `json:"source"`
	Chunks  int                `json:"chunks"`
	Records int                `json:"records"`
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("chunk store is required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.Collection == "" {
		cfg.Collection = index.DefaultCollection
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}
	if cfg.IDs == nil {
		cfg.IDs = RandomIDs{}
	}
	if cfg.Jitter == nil {
		cfg.Jitter = uniformJitter
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Coordinator{
		extractor:  cfg.Extractor,
		index:      cfg.Index,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		collection: cfg.Collection,
		batchSize:  cfg.BatchSize,
		maxDelay:   cfg.MaxDelay,
		ids:        cfg.IDs,
		jitter:     cfg.Jitter,
		logger:     cfg.Logger,
	}, nil
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

// Collection returns the collection written to.
func (c *Coordinator) Collection() string { return c.collection }

// Sync ingests a single item.
func (c *Coordinator) Sync(ctx context.Context, item material.Item) (*Report, error) {
	started := time.Now()
	source := item.Describe()

	fail := func(stage Stage, batches, chunks int, err error) (*Report, error) {
		c.logger.Error("ingestion failed",
			zap.String("material_id", item.MaterialID),
			zap.String("source", source),
			zap.String("stage", string(stage)),
			zap.Int("committed_batches", batches),
			zap.Int("committed_chunks", chunks),
			zap.Error(err),
		)
		return nil, &IngestionError{
			Stage:            stage,
			Source:           source,
			CommittedBatches: batches,
			CommittedChunks:  chunks,
			Err:              err,
		}
	}

	if err := item.Validate(); err != nil {
		return fail(StageExtract, 0, 0, err)
	}

	segments, err := c.segments(ctx, item)
	if err != nil {
		return fail(StageExtract, 0, 0, err)
	}

	ref, hasRef := item.Ref()
	sourceID := ref.String()
	if !hasRef {
		sourceID = textDigest(item.Source.(material.TextSource).Text)
	}

	report := &Report{
		MaterialID: item.MaterialID,
		Source:     source,
		Collection: c.collection,
		IDs:        make([]string, 0, len(segments)),
	}
	seen := make(map[string]bool, len(segments))

	for start := 0; start < len(segments); start += c.batchSize {
		end := min(start+c.batchSize, len(segments))
		batch := segments[start:end]

		ids := make([]string, len(batch))
		for n := range batch {
			id, err := c.uniqueID(seen, IDSeed{MaterialID: item.MaterialID, SourceID: sourceID, Index: start + n})
			if err != nil {
				return fail(StageUpsert, report.Batches, report.Chunks, err)
			}
			ids[n] = id
		}

		if err := c.index.Upsert(ctx, c.collection, ids, batch); err != nil {
			return fail(StageUpsert, report.Batches, report.Chunks, err)
		}

		if hasRef {
			chunks := make([]material.Chunk, len(batch))
			for n, text := range batch {
				chunks[n] = material.Chunk{
					RecordID:   ids[n],
					MaterialID: item.MaterialID,
					Text:       text,
					Source:     ref,
					Index:      start + n,
				}
			}
			if _, err := c.store.CreateMany(ctx, chunks); err != nil {
				c.rollback(ctx, source, ids)
				return fail(StageStore, report.Batches, report.Chunks, err)
			}
		}

		report.Batches++
		report.Chunks += len(batch)
		report.IDs = append(report.IDs, ids...)

		c.logger.Debug("wrote batch",
			zap.String("source", source),
			zap.Int("batch", report.Batches),
			zap.Int("size", len(batch)),
		)

		if err := c.throttle(ctx); err != nil {
			return fail(StageThrottle, report.Batches, report.Chunks, err)
		}
	}

	c.logger.Info("synced material item",
		zap.String("material_id", item.MaterialID),
		zap.String("source", source),
		zap.Int("chunks", report.Chunks),
		zap.Int("batches", report.Batches),
		zap.Duration("took", time.Since(started)),
	)

	c.publish(ctx, item, report, time.Since(started))
	return report, nil
}

// SyncMaterial syncs every item of m in order, stopping at the first failure.
// Reports of the items synced so far are returned with the error.
func (c *Coordinator) SyncMaterial(ctx context.Context, m material.Material) ([]*Report, error) {
	reports := make([]*Report, 0, len(m.Items))
	for _, item := range m.Items {
		if item.MaterialID == "" {
			item.MaterialID = m.ID
		}
		report, err := c.Sync(ctx, item)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Remove deletes the chunks of a file or link along with the index records
// they were written as.
func (c *Coordinator) Remove(ctx context.Context, ref material.SourceRef) (*RemoveReport, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var (
		chunks []material.Chunk
		err    error
	)
	if ref.Kind == material.KindFile {
		chunks, err = c.store.FindByFile(ctx, ref.ID)
	} else {
		chunks, err = c.store.FindByLink(ctx, ref.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing chunks for %s: %w", ref, err)
	}

	recordIDs := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if ch.RecordID != "" {
			recordIDs = append(recordIDs, ch.RecordID)
		}
	}
	if err := c.index.Delete(ctx, c.collection, recordIDs); err != nil {
		return nil, fmt.Errorf("deleting records for %s: %w", ref, err)
	}

	n, err := c.store.DeleteBySource(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("deleting chunks for %s: %w", ref, err)
	}

	c.logger.Info("removed material source",
		zap.String("source", ref.String()),
		zap.Int("chunks", n),
		zap.Int("records", len(recordIDs)),
	)
	return &RemoveReport{Source: ref, Chunks: n, Records: len(recordIDs)}, nil
}

// segments extracts the item's text and drops blank segments.
func (c *Coordinator) segments(ctx context.Context, item material.Item) ([]string, error) {
	var (
		raw []string
		err error
	)
	switch src := item.Source.(type) {
	case material.TextSource:
		raw, err = c.extractor.FromText(src.Text)
	case material.FileSource:
		raw, err = c.extractor.FromFile(ctx, src.Path)
	case material.LinkSource:
		raw, err = c.extractor.FromURL(ctx, src.URL)
	default:
		return nil, material.ErrInvalidItem
	}
	if err != nil {
		return nil, err
	}

	out := raw[:0]
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Coordinator) uniqueID(seen map[string]bool, seed IDSeed) (string, error) {
	for range maxIDAttempts {
		id, err := c.ids.NewID(seed)
		if err != nil {
			return "", err
		}
		if !seen[id] {
			seen[id] = true
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique id for chunk %d", seed.Index)
}

// rollback removes the index records of a batch whose chunk rows could not
// be stored. A failed rollback is logged and leaves the records orphaned.
func (c *Coordinator) rollback(ctx context.Context, source string, ids []string) {
	if err := c.index.Delete(context.WithoutCancel(ctx), c.collection, ids); err != nil {
		c.logger.Warn("could not roll back index records",
			zap.String("source", source),
			zap.Int("records", len(ids)),
			zap.Error(err),
		)
	}
}

// throttle waits a random delay, returning early with ctx's error.
func (c *Coordinator) throttle(ctx context.Context) error {
	d := c.jitter(c.maxDelay)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Coordinator) publish(ctx context.Context, item material.Item, report *Report, took time.Duration) {
	if c.publisher == nil {
		return
	}

	src := eventstream.EventSource{Kind: item.Source.Kind()}
	if ref, ok := item.Ref(); ok {
		src.ID = ref.ID
	}

	event := eventstream.NewMaterialSyncedEvent(item.MaterialID, src, c.collection, report.Chunks, report.Batches, took)
	if err := c.publisher.PublishMaterialSynced(ctx, event); err != nil {
		c.logger.Warn("failed to publish synced event",
			zap.String("material_id", item.MaterialID),
			zap.Error(err),
		)
	}
}
