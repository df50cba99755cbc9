package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent tomes configuration stored as config.toml
// in the .tomes/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Ingest      IngestConfig      `toml:"ingest"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	API         APIConfig         `toml:"api"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig selects the chunk store.
type StorageConfig struct {
	// Provider is one of "sqlite", "postgres" or "inmemory".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds the chat model used for answering and dispatch.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// IngestConfig controls chunking and batched writes.
type IngestConfig struct {
	ChunkSize    int    `toml:"chunk_size,omitempty"`
	ChunkOverlap int    `toml:"chunk_overlap,omitempty"`
	BatchSize    int    `toml:"batch_size,omitempty"`
	MaxDelayMs   int    `toml:"max_delay_ms,omitempty"`
	IDScheme     string `toml:"id_scheme,omitempty"`
	FileRoot     string `toml:"file_root,omitempty"`
}

// MaxDelay returns MaxDelayMs as a duration.
func (c IngestConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// RetrievalConfig controls question answering.
type RetrievalConfig struct {
	TopK int `toml:"top_k,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// RequestTimeout is a Go duration string, e.g. "60s".
	RequestTimeout string `toml:"request_timeout,omitempty"`
}

// Timeout parses RequestTimeout, returning 0 when it is empty.
func (c APIConfig) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api.request_timeout: %w", err)
	}
	return d, nil
}

// EventsConfig selects the event publisher.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers on commas, dropping blanks.
func (c EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key":  stringKey(func(c *Config) *string { return &c.LLM.APIKey }),

	"ingest.chunk_size":    intKey("ingest.chunk_size", func(c *Config) *int { return &c.Ingest.ChunkSize }),
	"ingest.chunk_overlap": intKey("ingest.chunk_overlap", func(c *Config) *int { return &c.Ingest.ChunkOverlap }),
	"ingest.batch_size":    intKey("ingest.batch_size", func(c *Config) *int { return &c.Ingest.BatchSize }),
	"ingest.max_delay_ms":  intKey("ingest.max_delay_ms", func(c *Config) *int { return &c.Ingest.MaxDelayMs }),
	"ingest.id_scheme":     stringKey(func(c *Config) *string { return &c.Ingest.IDScheme }),
	"ingest.file_root":     stringKey(func(c *Config) *string { return &c.Ingest.FileRoot }),

	"retrieval.top_k": intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.request_timeout": {
		get: func(c *Config) string { return c.API.RequestTimeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for api.request_timeout: %w", err)
			}
			c.API.RequestTimeout = v
			return nil
		},
	},

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.api_key",
	"vector_store.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key",
	"ingest.chunk_size",
	"ingest.chunk_overlap",
	"ingest.batch_size",
	"ingest.max_delay_ms",
	"ingest.id_scheme",
	"ingest.file_root",
	"retrieval.top_k",
	"api.listen",
	"api.request_timeout",
	"events.provider",
	"events.brokers",
	"events.topic",
}

// secretKeys are masked by the CLI when listing.
var secretKeys = map[string]bool{
	"llm.api_key":          true,
	"vector_store.api_key": true,
	"storage.postgres_dsn": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
