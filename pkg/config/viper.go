package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/tomes/pkg/dotdir"
)

// EnvPrefix is prepended to every environment variable, e.g. TOMES_LLM_MODEL.
const EnvPrefix = "TOMES"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TOMES_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TOMES_API_LISTEN, TOMES_LLM_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. Every key is registered, even ones with an empty
// default, so AutomaticEnv and Unmarshal can see them.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range orderedKeys {
		switch key {
		case "embedding.dimensions":
			v.SetDefault(key, d.Embedding.Dimensions)
		case "ingest.chunk_size":
			v.SetDefault(key, d.Ingest.ChunkSize)
		case "ingest.chunk_overlap":
			v.SetDefault(key, d.Ingest.ChunkOverlap)
		case "ingest.batch_size":
			v.SetDefault(key, d.Ingest.BatchSize)
		case "ingest.max_delay_ms":
			v.SetDefault(key, d.Ingest.MaxDelayMs)
		case "retrieval.top_k":
			v.SetDefault(key, d.Retrieval.TopK)
		default:
			v.SetDefault(key, configKeys[key].get(d))
		}
	}
}

// FromViper builds a Config from v, honouring flag, env, file and default
// precedence.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			APIKey:     v.GetString("vector_store.api_key"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
		},
		Ingest: IngestConfig{
			ChunkSize:    v.GetInt("ingest.chunk_size"),
			ChunkOverlap: v.GetInt("ingest.chunk_overlap"),
			BatchSize:    v.GetInt("ingest.batch_size"),
			MaxDelayMs:   v.GetInt("ingest.max_delay_ms"),
			IDScheme:     v.GetString("ingest.id_scheme"),
			FileRoot:     v.GetString("ingest.file_root"),
		},
		Retrieval: RetrievalConfig{
			TopK: v.GetInt("retrieval.top_k"),
		},
		API: APIConfig{
			Listen:         v.GetString("api.listen"),
			RequestTimeout: v.GetString("api.request_timeout"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}
