// Package pipeline wires the task queue, the extraction, validation and
// publish agents and the suggestion queue into one running unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/gleaner/pkg/agents"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/suggest"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// Pipeline owns the queue and agents for one process.
type Pipeline struct {
	config Config
	logger *slog.Logger

	queue       *taskqueue.Queue
	extraction  *agents.ExtractionAgent
	validation  *agents.ValidationAgent
	publish     *agents.PublishAgent
	suggestions *suggest.Queue
}

// New creates a stopped pipeline.
func New(c Config, logger *slog.Logger) (*Pipeline, error) {
	if c.Memory == nil {
		return nil, errors.New("memory driver is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := taskqueue.New()

	suggestions := suggest.New(suggest.Config{
		Capacity:  c.SuggestionCapacity,
		Decisions: q,
		Logger:    logger,
	})

	validation, err := agents.NewValidationAgent(agents.ValidationConfig{
		Embedder:           c.Embedder,
		Memory:             c.Memory,
		Conflicts:          c.Conflicts,
		Events:             c.Events,
		DuplicateThreshold: c.DuplicateThreshold,
		ConflictThreshold:  c.ConflictThreshold,
		PollInterval:       c.PollInterval,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create validation agent: %w", err)
	}

	p := &Pipeline{
		config:      c,
		logger:      logger,
		queue:       q,
		validation:  validation,
		suggestions: suggestions,
		extraction: agents.NewExtractionAgent(agents.ExtractionConfig{
			Extractor:    c.Extractor,
			PollInterval: c.PollInterval,
			Logger:       logger,
		}),
	}

	p.publish, err = agents.NewPublishAgent(agents.PublishConfig{
		Memory:       c.Memory,
		Sink:         p.surface,
		Vectors:      c.Vectors,
		Events:       c.Events,
		PollInterval: c.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create publish agent: %w", err)
	}

	return p, nil
}

// Start starts all agents, downstream first.
func (p *Pipeline) Start() error {
	if err := p.publish.Start(p.queue); err != nil {
		return err
	}
	if err := p.validation.Start(p.queue); err != nil {
		p.publish.Stop()
		return err
	}
	if err := p.extraction.Start(p.queue); err != nil {
		p.validation.Stop()
		p.publish.Stop()
		return err
	}

	p.logger.Info("pipeline started")
	return nil
}

// Stop stops all agents, upstream first. Tasks left in the queue stay
// pending until the next Start.
func (p *Pipeline) Stop() {
	p.extraction.Stop()
	p.validation.Stop()
	p.publish.Stop()
	p.logger.Info("pipeline stopped")
}

// Ingest enqueues a conversation turn. A zero timestamp is set to now.
func (p *Pipeline) Ingest(ctx context.Context, conversationID string, turn taskqueue.Turn) (taskqueue.Task, error) {
	if err := ctx.Err(); err != nil {
		return taskqueue.Task{}, err
	}
	if turn.TimestampMs == 0 {
		turn.TimestampMs = time.Now().UnixMilli()
	}

	task, err := p.queue.Enqueue(conversationID, taskqueue.TurnIngest{Turn: turn})
	if err != nil {
		return taskqueue.Task{}, err
	}

	p.logger.Debug("turn ingested",
		"conversation_id", conversationID,
		"task_id", task.ID,
		"speaker", turn.Speaker,
	)
	return task, nil
}

// Drain waits until every queued task, including the proposals spawned by
// ingested turns, has been processed.
func (p *Pipeline) Drain(ctx context.Context, timeout time.Duration) error {
	return p.queue.Drain(ctx, timeout)
}

// Suggestions returns the queue of actions awaiting a user decision.
func (p *Pipeline) Suggestions() *suggest.Queue {
	return p.suggestions
}

// Queue returns the task queue.
func (p *Pipeline) Queue() *taskqueue.Queue {
	return p.queue
}

// Memory returns the durable store.
func (p *Pipeline) Memory() memory.Driver {
	return p.config.Memory
}

func (p *Pipeline) surface(a agents.SuggestedAction) {
	entry := p.suggestions.Push(a.ConversationID, a.Title, a.DueWindow)
	p.logger.Debug("suggestion surfaced",
		"conversation_id", a.ConversationID,
		"suggestion_id", entry.ID,
		"title", a.Title,
	)
	if p.config.OnSuggestion != nil {
		p.config.OnSuggestion(a)
	}
}
