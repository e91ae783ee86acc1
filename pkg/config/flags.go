package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "gleaner serve", "gleaner ingest" and "gleaner watch").
type Flag struct {
	// Name is the long flag name (e.g. "sqlite").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.sqlite_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen        = "api-listen"
	FlagStorageProvider  = "storage-provider"
	FlagSQLite           = "sqlite"
	FlagPostgresDSN      = "postgres-dsn"
	FlagReasoningProv    = "reasoning-provider"
	FlagReasoningTgt     = "reasoning-target"
	FlagReasoningModel   = "reasoning-model"
	FlagEmbeddingProv    = "embedding-provider"
	FlagEmbeddingTgt     = "embedding-target"
	FlagEmbeddingModel   = "embedding-model"
	FlagEmbeddingDims    = "embedding-dimensions"
	FlagVectorStoreProv  = "vector-store-provider"
	FlagVectorStoreTgt   = "vector-store-target"
	FlagEventStreamProv  = "event-stream-provider"
	FlagEventStreamTopic = "event-stream-topic"
	FlagKafkaBrokers     = "kafka-brokers"
)

// PipelineFlags is the registry shared by every command that builds a
// pipeline.
var PipelineFlags = FlagSet{
	FlagStorageProvider:  {Name: "storage-provider", ViperKey: "storage.provider", Description: "Storage backend (memory, sqlite, postgres)"},
	FlagSQLite:           {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgresDSN:      {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagReasoningProv:    {Name: "reasoning-provider", ViperKey: "reasoning.provider", Description: "Reasoning provider (ollama, openai, disabled)"},
	FlagReasoningTgt:     {Name: "reasoning-target", ViperKey: "reasoning.target", Description: "Reasoning provider URL"},
	FlagReasoningModel:   {Name: "reasoning-model", ViperKey: "reasoning.model", Description: "Reasoning model name"},
	FlagEmbeddingProv:    {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:     {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:   {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:    {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagVectorStoreProv:  {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlite, qdrant, none)"},
	FlagVectorStoreTgt:   {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store URL or path"},
	FlagEventStreamProv:  {Name: "event-stream-provider", ViperKey: "event_stream.provider", Description: "Event stream provider (none, kafka)"},
	FlagEventStreamTopic: {Name: "event-stream-topic", ViperKey: "event_stream.topic", Description: "Topic for published events"},
	FlagKafkaBrokers:     {Name: "kafka-brokers", ViperKey: "event_stream.brokers", Description: "Comma separated Kafka broker addresses"},
}

// PipelineFlagKeys lists every registry key in PipelineFlags in display order.
func PipelineFlagKeys() []string {
	return []string{
		FlagStorageProvider, FlagSQLite, FlagPostgresDSN,
		FlagReasoningProv, FlagReasoningTgt, FlagReasoningModel,
		FlagEmbeddingProv, FlagEmbeddingTgt, FlagEmbeddingModel, FlagEmbeddingDims,
		FlagVectorStoreProv, FlagVectorStoreTgt,
		FlagEventStreamProv, FlagEventStreamTopic, FlagKafkaBrokers,
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	if viperKey == "event_stream.brokers" {
		return strings.Join(StringList(v, viperKey), ",")
	}
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
