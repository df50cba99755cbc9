package config

import (
	"github.com/papercomputeco/tomes/pkg/eventstream/kafka"
	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/ingest"
	"github.com/papercomputeco/tomes/pkg/rag"
	"github.com/papercomputeco/tomes/pkg/splitter"
)

const (
	defaultStorageProvider = "sqlite"
	defaultVectorProvider  = "sqlite"

	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3.2"

	defaultAPIListen         = ":8081"
	defaultAPIRequestTimeout = "120s"

	defaultEventsProvider = "nop"
	defaultEventsBrokers  = "localhost:9092"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: index.DefaultCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultLLMModel,
		},
		Ingest: IngestConfig{
			ChunkSize:    splitter.DefaultChunkSize,
			ChunkOverlap: splitter.DefaultChunkOverlap,
			BatchSize:    ingest.DefaultBatchSize,
			MaxDelayMs:   int(ingest.DefaultMaxDelay.Milliseconds()),
			IDScheme:     ingest.IDSchemeRandom,
		},
		Retrieval: RetrievalConfig{
			TopK: rag.DefaultTopK,
		},
		API: APIConfig{
			Listen:         defaultAPIListen,
			RequestTimeout: defaultAPIRequestTimeout,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    kafka.DefaultTopic,
		},
	}
}
