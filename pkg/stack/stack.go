// Package stack builds the tomes components from a config.Config: the chunk
// store, the embedding index, the chat model client, the event publisher and
// the coordinators layered on them.
package stack

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/config"
	"github.com/papercomputeco/tomes/pkg/dispatch"
	embeddingutils "github.com/papercomputeco/tomes/pkg/embeddings/utils"
	"github.com/papercomputeco/tomes/pkg/eventstream"
	"github.com/papercomputeco/tomes/pkg/eventstream/kafka"
	"github.com/papercomputeco/tomes/pkg/eventstream/nop"
	"github.com/papercomputeco/tomes/pkg/extract"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/llm"
	llmutils "github.com/papercomputeco/tomes/pkg/llm/utils"
	"github.com/papercomputeco/tomes/pkg/rag"
	"github.com/papercomputeco/tomes/pkg/splitter"
	"github.com/papercomputeco/tomes/pkg/storage"
	"github.com/papercomputeco/tomes/pkg/storage/inmemory"
	"github.com/papercomputeco/tomes/pkg/storage/postgres"
	"github.com/papercomputeco/tomes/pkg/storage/sqlite"
	vectorutils "github.com/papercomputeco/tomes/pkg/vector/utils"
)

const (
	// ChunkDBName is the chunk store file created in the data dir when
	// storage.sqlite_path is unset.
	ChunkDBName = "tomes.db"

	// VectorDBName is the sqlite-vec file created in the data dir when
	// vector_store.target is unset.
	VectorDBName = "vectors.db"
)

// Supported chunk store and event providers.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageInMemory = "inmemory"

	EventsNop   = "nop"
	EventsKafka = "kafka"
)

// Options configures New.
type Options struct {
	Config *config.Config

	// DataDir holds the default SQLite files, usually the resolved .tomes dir.
	DataDir string

	Logger *zap.Logger
}

// Stack holds every constructed component. Close releases them all.
type Stack struct {
	Config     *config.Config
	Splitter   *splitter.Splitter
	Store      storage.ChunkStore
	Index      *index.Index
	LLM        llm.Client
	Publisher  eventstream.Publisher
	Ingest     *ingest.Coordinator
	Pipeline   *rag.Pipeline
	Dispatcher *dispatch.Dispatcher

	logger *zap.Logger
}

// New builds a Stack. Components built before a failure are closed.
func New(ctx context.Context, o Options) (s *Stack, err error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s = &Stack{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	s.Splitter = splitter.New(
		splitter.WithChunkSize(cfg.Ingest.ChunkSize),
		splitter.WithChunkOverlap(cfg.Ingest.ChunkOverlap),
	)

	s.Store, err = NewChunkStore(ctx, cfg.Storage, o.DataDir, logger)
	if err != nil {
		return nil, err
	}

	s.Index, err = newIndex(cfg, o.DataDir, s.Splitter, logger)
	if err != nil {
		return nil, err
	}

	s.LLM, err = llmutils.NewClient(&llmutils.NewClientOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
		APIKey:       cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	s.Publisher, err = NewPublisher(cfg.Events, logger)
	if err != nil {
		return nil, err
	}

	ids, err := ingest.NewIDGenerator(cfg.Ingest.IDScheme)
	if err != nil {
		return nil, err
	}

	// Ingestion and question splitting share one splitter.
	s.Ingest, err = ingest.New(ingest.Config{
		Extractor:  extract.New(extract.WithSplitter(s.Splitter)),
		Index:      s.Index,
		Store:      s.Store,
		Publisher:  s.Publisher,
		Collection: cfg.VectorStore.Collection,
		BatchSize:  cfg.Ingest.BatchSize,
		MaxDelay:   maxDelay(cfg.Ingest),
		IDs:        ids,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ingestion coordinator: %w", err)
	}

	s.Pipeline, err = rag.New(rag.Config{
		Retriever:  s.Index,
		Client:     s.LLM,
		Collection: cfg.VectorStore.Collection,
		TopK:       cfg.Retrieval.TopK,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	s.Dispatcher, err = dispatch.New(dispatch.Config{
		Client: s.LLM,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	return s, nil
}

// maxDelay maps ingest.max_delay_ms onto ingest.Config.MaxDelay. A zero
// setting disables the throttle.
func maxDelay(c config.IngestConfig) time.Duration {
	if c.MaxDelayMs == 0 {
		return -1
	}
	return c.MaxDelay()
}

// NewChunkStore opens the configured chunk store.
func NewChunkStore(ctx context.Context, c config.StorageConfig, dataDir string, logger *zap.Logger) (storage.ChunkStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch c.Provider {
	case StorageSQLite, "":
		path := c.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, ChunkDBName)
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite chunk store: %w", err)
		}
		logger.Info("using SQLite chunk store", zap.String("path", path))
		return driver, nil

	case StoragePostgres:
		if c.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres chunk store")
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL chunk store: %w", err)
		}
		logger.Info("using PostgreSQL chunk store")
		return driver, nil

	case StorageInMemory:
		logger.Info("using in-memory chunk store")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}
}

func newIndex(cfg *config.Config, dataDir string, sp *splitter.Splitter, logger *zap.Logger) (*index.Index, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	target := cfg.VectorStore.Target
	if target == "" && cfg.VectorStore.Provider == vectorutils.ProviderSQLiteVec {
		target = filepath.Join(dataDir, VectorDBName)
	}

	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    target,
		APIKey:       cfg.VectorStore.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	idx, err := index.New(index.Config{
		Driver:   driver,
		Embedder: embedder,
		Splitter: sp,
		Logger:   logger,
	})
	if err != nil {
		_ = driver.Close()
		_ = embedder.Close()
		return nil, err
	}
	return idx, nil
}

// NewPublisher creates the configured event publisher.
func NewPublisher(c config.EventsConfig, logger *zap.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case EventsNop, "":
		return nop.NewPublisher(), nil
	case EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.BrokerList(),
			Topic:   c.Topic,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", c.Provider)
	}
}

// Close releases every component that was built.
func (s *Stack) Close() error {
	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
