// Package stack builds the storage, model and transport backends a
// gleaner command needs from resolved configuration.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/config"
	"github.com/papercomputeco/gleaner/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/gleaner/pkg/embeddings/utils"
	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/eventstream/kafka"
	"github.com/papercomputeco/gleaner/pkg/eventstream/nop"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/memory/local"
	"github.com/papercomputeco/gleaner/pkg/memory/postgres"
	"github.com/papercomputeco/gleaner/pkg/memory/sqlite"
	"github.com/papercomputeco/gleaner/pkg/reasoning"
	"github.com/papercomputeco/gleaner/pkg/vector"
	vectorutils "github.com/papercomputeco/gleaner/pkg/vector/utils"
)

const defaultQdrantPort = 6334

// Stack holds every backend a pipeline runs on.
type Stack struct {
	Memory    memory.Driver
	Embedder  embeddings.Embedder
	Reasoning reasoning.Service
	Vectors   vector.Driver
	Events    eventstream.Publisher

	settings settings
	logger   *slog.Logger
}

type settings struct {
	duplicateThreshold float64
	conflictThreshold  float64
	suggestionCapacity int
	pollInterval       time.Duration
}

// New builds a Stack from v. Backends opened before a failure are closed
// again.
func New(ctx context.Context, v *viper.Viper, configDir string, logger *slog.Logger) (*Stack, error) {
	s := &Stack{logger: logger}

	var err error
	s.settings, err = readSettings(v)
	if err != nil {
		return nil, err
	}

	s.Memory, err = newMemory(ctx, v, configDir, logger)
	if err != nil {
		return nil, err
	}

	s.Embedder, err = newEmbedder(v)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Reasoning, err = reasoning.NewService(reasoning.CallerConfig{
		Provider:          v.GetString("reasoning.provider"),
		Model:             v.GetString("reasoning.model"),
		BaseURL:           v.GetString("reasoning.target"),
		RequestsPerSecond: v.GetFloat64("reasoning.requests_per_second"),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating reasoning service: %w", err)
	}

	s.Vectors, err = newVectors(ctx, v, configDir, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Events, err = newEvents(v, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// PipelineConfig returns a pipeline configuration over the stack's backends.
func (s *Stack) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Memory:             s.Memory,
		Embedder:           s.Embedder,
		Extractor:          s.Reasoning,
		Conflicts:          s.Reasoning,
		Vectors:            s.Vectors,
		Events:             s.Events,
		DuplicateThreshold: s.settings.duplicateThreshold,
		ConflictThreshold:  s.settings.conflictThreshold,
		SuggestionCapacity: s.settings.suggestionCapacity,
		PollInterval:       s.settings.pollInterval,
	}
}

// Close releases every backend that was opened.
func (s *Stack) Close() error {
	var errs []error
	if s.Events != nil {
		errs = append(errs, s.Events.Close())
	}
	if s.Vectors != nil {
		errs = append(errs, s.Vectors.Close())
	}
	if s.Embedder != nil {
		errs = append(errs, s.Embedder.Close())
	}
	if s.Memory != nil {
		errs = append(errs, s.Memory.Close())
	}
	return errors.Join(errs...)
}

func readSettings(v *viper.Viper) (settings, error) {
	poll, err := parseDuration("pipeline.poll_interval", v.GetString("pipeline.poll_interval"))
	if err != nil {
		return settings{}, err
	}
	return settings{
		duplicateThreshold: v.GetFloat64("pipeline.duplicate_threshold"),
		conflictThreshold:  v.GetFloat64("pipeline.conflict_threshold"),
		suggestionCapacity: v.GetInt("pipeline.suggestion_capacity"),
		pollInterval:       poll,
	}, nil
}

func newMemory(ctx context.Context, v *viper.Viper, configDir string, logger *slog.Logger) (memory.Driver, error) {
	switch provider := v.GetString("storage.provider"); provider {
	case "memory":
		logger.Info("using in-memory storage")
		return local.NewDriver(), nil

	case "sqlite", "":
		path, err := ResolveSQLitePath(v.GetString("storage.sqlite_path"), configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite memory driver: %w", err)
		}
		logger.Info("using SQLite storage", "path", path)
		return driver, nil

	case "postgres":
		dsn := v.GetString("storage.postgres_dsn")
		if dsn == "" {
			return nil, errors.New("postgres storage requires storage.postgres_dsn")
		}
		driver, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL memory driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", provider)
	}
}

func newEmbedder(v *viper.Viper) (embeddings.Embedder, error) {
	ttl, err := parseDuration("embedding.cache_ttl", v.GetString("embedding.cache_ttl"))
	if err != nil {
		return nil, err
	}

	e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		Dimensions:   v.GetInt("embedding.dimensions"),
		CacheTTL:     ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return e, nil
}

func newVectors(ctx context.Context, v *viper.Viper, configDir string, logger *slog.Logger) (vector.Driver, error) {
	opts := &vectorutils.NewVectorDriverOpts{
		Collection: v.GetString("vector_store.collection"),
		Dimensions: v.GetUint("embedding.dimensions"),
		Logger:     logger,
	}

	switch provider := v.GetString("vector_store.provider"); provider {
	case "none", "":
		return nil, nil

	case "sqlite":
		path, err := ResolveVectorPath(v.GetString("vector_store.target"), configDir)
		if err != nil {
			return nil, err
		}
		opts.ProviderType = provider
		opts.Target = path

	case "qdrant":
		host, port, err := splitHostPort(v.GetString("vector_store.target"))
		if err != nil {
			return nil, err
		}
		opts.ProviderType = provider
		opts.Target = host
		opts.Port = port
		opts.APIKey = os.Getenv("QDRANT_API_KEY")

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", provider)
	}

	d, err := vectorutils.NewVectorDriver(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	logger.Info("using vector store", "provider", opts.ProviderType, "target", opts.Target)
	return d, nil
}

func newEvents(v *viper.Viper, logger *slog.Logger) (eventstream.Publisher, error) {
	switch provider := v.GetString("event_stream.provider"); provider {
	case "none", "":
		return nop.NewPublisher(), nil

	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers:  config.StringList(v, "event_stream.brokers"),
			Topic:    v.GetString("event_stream.topic"),
			ClientID: "gleaner",
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", provider)
	}
}

// splitHostPort accepts "host" or "host:port".
func splitHostPort(target string) (string, int, error) {
	if target == "" {
		return "localhost", defaultQdrantPort, nil
	}

	if !strings.Contains(target, ":") {
		return target, defaultQdrantPort, nil
	}

	host, rawPort, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("invalid vector store target %q: %w", target, err)
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return "", 0, fmt.Errorf("invalid vector store port %q: %w", rawPort, err)
	}
	return host, port, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
