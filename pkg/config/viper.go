package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/gleaner/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the GLEANER_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (GLEANER_API_LISTEN, GLEANER_REASONING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
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

	// 3. Environment variables: GLEANER_API_LISTEN, GLEANER_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("GLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Reasoning
	v.SetDefault("reasoning.provider", d.Reasoning.Provider)
	v.SetDefault("reasoning.target", d.Reasoning.Target)
	v.SetDefault("reasoning.model", d.Reasoning.Model)
	v.SetDefault("reasoning.requests_per_second", d.Reasoning.RequestsPerSecond)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_ttl", d.Embedding.CacheTTL)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Pipeline
	v.SetDefault("pipeline.duplicate_threshold", d.Pipeline.DuplicateThreshold)
	v.SetDefault("pipeline.conflict_threshold", d.Pipeline.ConflictThreshold)
	v.SetDefault("pipeline.suggestion_capacity", d.Pipeline.SuggestionCapacity)
	v.SetDefault("pipeline.poll_interval", d.Pipeline.PollInterval)

	// Event stream
	v.SetDefault("event_stream.provider", d.EventStream.Provider)
	v.SetDefault("event_stream.brokers", d.EventStream.Brokers)
	v.SetDefault("event_stream.topic", d.EventStream.Topic)
}

// StringList reads a list-valued key that may come from a TOML array, a
// comma separated env var or a string flag.
func StringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return SplitList(raw)
	case nil:
		return nil
	default:
		return SplitList(strings.Join(v.GetStringSlice(key), ","))
	}
}
