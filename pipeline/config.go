package pipeline

import (
	"time"

	"github.com/papercomputeco/gleaner/pkg/agents"
	"github.com/papercomputeco/gleaner/pkg/embeddings"
	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/reasoning"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// Config is the pipeline configuration.
type Config struct {
	// Memory is the durable store for claims, actions and review items.
	Memory memory.Driver

	// Embedder turns claim texts and action titles into vectors for
	// similarity checks.
	Embedder embeddings.Embedder

	// Extractor derives proposals from turns. If nil, nothing is extracted.
	Extractor reasoning.Extractor

	// Conflicts judges related items. If nil, related items are never
	// flagged for review.
	Conflicts reasoning.ConflictDetector

	// Vectors is an optional index of persisted embeddings used by Search.
	Vectors vector.Driver

	// Events is an optional event stream publisher.
	Events eventstream.Publisher

	// OnSuggestion is called for every action surfaced to the user, after
	// it has been pushed onto the suggestion queue.
	OnSuggestion agents.Sink

	// DuplicateThreshold and ConflictThreshold default to 0.9 and 0.7.
	DuplicateThreshold float64
	ConflictThreshold  float64

	// SuggestionCapacity bounds the backlog behind the current suggestion
	// (defaults to 3).
	SuggestionCapacity int

	// PollInterval is how often idle agents re-check the queue.
	PollInterval time.Duration
}
