package config

const (
	defaultStorageProvider = "sqlite"
	defaultAPIListen       = ":8081"

	defaultOllamaTarget = "http://localhost:11434"

	defaultReasoningProvider = "ollama"
	defaultReasoningModel    = "llama3.2"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingCacheTTL   = "10m"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "gleaner"

	defaultDuplicateThreshold = 0.9
	defaultConflictThreshold  = 0.7
	defaultSuggestionCapacity = 3
	defaultPollInterval       = "250ms"

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "gleaner.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Reasoning: ReasoningConfig{
			Provider: defaultReasoningProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultReasoningModel,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			CacheTTL:   defaultEmbeddingCacheTTL,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Pipeline: PipelineConfig{
			DuplicateThreshold: defaultDuplicateThreshold,
			ConflictThreshold:  defaultConflictThreshold,
			SuggestionCapacity: defaultSuggestionCapacity,
			PollInterval:       defaultPollInterval,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
