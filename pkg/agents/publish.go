package agents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// SuggestedAction is what the UI sink receives for each validated action.
type SuggestedAction struct {
	ConversationID string
	Title          string
	DueWindow      memory.DueWindow
	Evidence       []string
}

// Sink displays a suggested action. It is called on the publish lane and
// must not block.
type Sink func(SuggestedAction)

// PublishConfig configures a PublishAgent.
type PublishConfig struct {
	Memory memory.Driver
	Sink   Sink

	// Vectors optionally indexes the embeddings of persisted items.
	Vectors vector.Driver

	// Events optionally receives one event per persisted item.
	Events eventstream.Publisher

	PollInterval time.Duration
	Logger       *slog.Logger
}

// PublishAgent persists validated items and user decisions. Storage failures
// are logged and not retried.
type PublishAgent struct {
	runner

	memory  memory.Driver
	sink    Sink
	vectors vector.Driver
	events  eventstream.Publisher
}

// NewPublishAgent creates a stopped publish agent.
func NewPublishAgent(c PublishConfig) (*PublishAgent, error) {
	if c.Memory == nil {
		return nil, errors.New("publish agent requires a memory driver")
	}
	return &PublishAgent{
		runner:  newRunner("publish", c.PollInterval, c.Logger),
		memory:  c.Memory,
		sink:    c.Sink,
		vectors: c.Vectors,
		events:  c.Events,
	}, nil
}

// Start begins consuming validated items and user decisions from q.
func (a *PublishAgent) Start(q *taskqueue.Queue) error {
	return a.start(q, []lane{{
		name: "publish",
		match: kinds(
			taskqueue.KindClaimValidated,
			taskqueue.KindActionValidated,
			taskqueue.KindActionUserDecision,
		),
		handle: a.handle,
	}}, nil)
}

// Stop halts polling and waits for the in-flight task.
func (a *PublishAgent) Stop() {
	a.stop()
}

// Running reports whether the agent is started.
func (a *PublishAgent) Running() bool {
	return a.running()
}

func (a *PublishAgent) handle(ctx context.Context, _ *taskqueue.Queue, task taskqueue.Task) {
	log := a.logger.With("conversation_id", task.ConversationID, "task_id", task.ID)

	switch p := task.Payload.(type) {
	case taskqueue.ActionValidated:
		a.publishAction(ctx, task.ConversationID, p.Action, log)
	case taskqueue.ClaimValidated:
		a.publishClaim(ctx, task.ConversationID, p.Claim, log)
	case taskqueue.ActionUserDecision:
		a.recordDecision(ctx, task.ConversationID, p.Decision, log)
	default:
		log.Warn("unexpected task kind", "kind", task.Kind())
	}
}

func (a *PublishAgent) publishAction(ctx context.Context, convID string, action memory.Action, log *slog.Logger) {
	if a.sink != nil {
		a.sink(SuggestedAction{
			ConversationID: convID,
			Title:          action.Title,
			DueWindow:      action.DueWindow,
			Evidence:       action.Evidence,
		})
	}

	action.Status = memory.ActionSuggested
	if action.Source == "" {
		action.Source = memory.SourceConversation
	}
	if action.ConversationID == "" {
		action.ConversationID = convID
	}

	id, err := a.memory.CreateAction(ctx, action)
	if err != nil {
		log.Error("failed to persist action", "action", action.Title, "error", err)
		return
	}
	action.ID = id

	if err := a.memory.AppendConversationAction(ctx, convID, id); err != nil {
		log.Error("failed to link action to conversation", "action_id", id, "error", err)
	}

	log.Info("published action", "action_id", id, "action", action.Title, "due_window", action.DueWindow)

	a.index(ctx, vector.KindAction, convID, id, action.Embedding, log)
	if a.events != nil {
		event := eventstream.NewEvent(eventstream.EventTypeActionSuggested, convID)
		action.Embedding = nil
		event.Action = &action
		publish(ctx, a.events, event, log)
	}
}

func (a *PublishAgent) publishClaim(ctx context.Context, convID string, claim memory.Claim, log *slog.Logger) {
	if claim.Status == "" {
		claim.Status = memory.ClaimInferred
	}
	if claim.ConversationID == "" {
		claim.ConversationID = convID
	}

	id, err := a.memory.UpsertClaim(ctx, claim)
	if err != nil {
		log.Error("failed to persist claim", "claim", claim.Text, "error", err)
		return
	}
	claim.ID = id

	if err := a.memory.AppendConversationClaim(ctx, convID, id); err != nil {
		log.Error("failed to link claim to conversation", "claim_id", id, "error", err)
	}

	log.Info("published claim", "claim_id", id, "claim", claim.Text)

	a.index(ctx, vector.KindClaim, convID, id, claim.Embedding, log)
	if a.events != nil {
		event := eventstream.NewEvent(eventstream.EventTypeClaimPublished, convID)
		claim.Embedding = nil
		event.Claim = &claim
		publish(ctx, a.events, event, log)
	}
}

func (a *PublishAgent) recordDecision(ctx context.Context, convID string, d taskqueue.Decision, log *slog.Logger) {
	if !d.Accepted {
		log.Debug("suggestion dismissed", "action", d.Title)
		return
	}

	action := memory.Action{
		Title:          d.Title,
		DueWindow:      d.DueWindow,
		Source:         memory.SourceUser,
		Status:         memory.ActionApproved,
		ConversationID: convID,
	}
	id, err := a.memory.CreateAction(ctx, action)
	if err != nil {
		log.Error("failed to persist approved action", "action", d.Title, "error", err)
		return
	}
	action.ID = id

	if err := a.memory.AppendConversationAction(ctx, convID, id); err != nil {
		log.Error("failed to link approved action to conversation", "action_id", id, "error", err)
	}

	log.Info("recorded approved action", "action_id", id, "action", d.Title)

	if a.events != nil {
		event := eventstream.NewEvent(eventstream.EventTypeActionApproved, convID)
		event.Action = &action
		publish(ctx, a.events, event, log)
	}
}

// index stores the embedding of a persisted item. Failures are logged.
func (a *PublishAgent) index(ctx context.Context, kind, convID, id string, embedding []float32, log *slog.Logger) {
	if a.vectors == nil || len(embedding) == 0 {
		return
	}
	doc := vector.Document{
		ID:             id,
		Kind:           kind,
		ConversationID: convID,
		Embedding:      embedding,
	}
	if err := a.vectors.Add(ctx, []vector.Document{doc}); err != nil {
		log.Warn("failed to index embedding", "id", id, "kind", kind, "error", err)
	}
}

// eventTimeout caps how long a slow event backend can hold up a lane.
const eventTimeout = 5 * time.Second

func publish(ctx context.Context, p eventstream.Publisher, event *eventstream.Event, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if err := p.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
