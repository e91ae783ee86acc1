package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent gleaner configuration stored as config.toml
// in the .gleaner/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Reasoning   ReasoningConfig   `toml:"reasoning"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	EventStream EventStreamConfig `toml:"event_stream"`
}

// StorageConfig selects the durable memory backend.
type StorageConfig struct {
	// Provider is one of "memory", "sqlite" or "postgres".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ReasoningConfig holds the language model used for extraction and
// conflict detection. API keys are read from the environment only.
type ReasoningConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	Model             string  `toml:"model,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`

	// CacheTTL is a duration string such as "10m". Empty disables caching.
	CacheTTL string `toml:"cache_ttl,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// PipelineConfig tunes the extraction pipeline.
type PipelineConfig struct {
	DuplicateThreshold float64 `toml:"duplicate_threshold,omitempty"`
	ConflictThreshold  float64 `toml:"conflict_threshold,omitempty"`
	SuggestionCapacity int     `toml:"suggestion_capacity,omitempty"`
	PollInterval       string  `toml:"poll_interval,omitempty"`
}

// EventStreamConfig selects where pipeline events are published.
type EventStreamConfig struct {
	// Provider is "none" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"reasoning.provider": {
		get: func(c *Config) string { return c.Reasoning.Provider },
		set: func(c *Config, v string) error { c.Reasoning.Provider = v; return nil },
	},
	"reasoning.target": {
		get: func(c *Config) string { return c.Reasoning.Target },
		set: func(c *Config, v string) error { c.Reasoning.Target = v; return nil },
	},
	"reasoning.model": {
		get: func(c *Config) string { return c.Reasoning.Model },
		set: func(c *Config, v string) error { c.Reasoning.Model = v; return nil },
	},
	"reasoning.requests_per_second": {
		get: func(c *Config) string { return formatFloat(c.Reasoning.RequestsPerSecond) },
		set: func(c *Config, v string) error {
			return parseFloat("reasoning.requests_per_second", v, &c.Reasoning.RequestsPerSecond)
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
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
	"embedding.cache_ttl": {
		get: func(c *Config) string { return c.Embedding.CacheTTL },
		set: func(c *Config, v string) error {
			return parseDuration("embedding.cache_ttl", v, &c.Embedding.CacheTTL)
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"pipeline.duplicate_threshold": {
		get: func(c *Config) string { return formatFloat(c.Pipeline.DuplicateThreshold) },
		set: func(c *Config, v string) error {
			return parseThreshold("pipeline.duplicate_threshold", v, &c.Pipeline.DuplicateThreshold)
		},
	},
	"pipeline.conflict_threshold": {
		get: func(c *Config) string { return formatFloat(c.Pipeline.ConflictThreshold) },
		set: func(c *Config, v string) error {
			return parseThreshold("pipeline.conflict_threshold", v, &c.Pipeline.ConflictThreshold)
		},
	},
	"pipeline.suggestion_capacity": {
		get: func(c *Config) string {
			if c.Pipeline.SuggestionCapacity == 0 {
				return ""
			}
			return strconv.Itoa(c.Pipeline.SuggestionCapacity)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for pipeline.suggestion_capacity: %w", err)
			}
			if n < 1 {
				return fmt.Errorf("invalid value for pipeline.suggestion_capacity: must be at least 1, got %d", n)
			}
			c.Pipeline.SuggestionCapacity = n
			return nil
		},
	},
	"pipeline.poll_interval": {
		get: func(c *Config) string { return c.Pipeline.PollInterval },
		set: func(c *Config, v string) error {
			return parseDuration("pipeline.poll_interval", v, &c.Pipeline.PollInterval)
		},
	},
	"event_stream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"event_stream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error { c.EventStream.Brokers = SplitList(v); return nil },
	},
	"event_stream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

// SplitList splits a comma separated value, dropping blank entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(key, v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if f < 0 {
		return fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	*dst = f
	return nil
}

func parseThreshold(key, v string, dst *float64) error {
	var f float64
	if err := parseFloat(key, v, &f); err != nil {
		return err
	}
	if f > 1 {
		return fmt.Errorf("invalid value for %s: must be within [0, 1], got %s", key, v)
	}
	*dst = f
	return nil
}

func parseDuration(key, v string, dst *string) error {
	if v == "" {
		*dst = ""
		return nil
	}
	if _, err := time.ParseDuration(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = v
	return nil
}
