package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/gleaner/pkg/embeddings"
	"github.com/papercomputeco/gleaner/pkg/eventstream"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/reasoning"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

const (
	DefaultDuplicateThreshold = 0.9
	DefaultConflictThreshold  = 0.7
)

// ValidationConfig configures a ValidationAgent.
type ValidationConfig struct {
	Embedder  embeddings.Embedder
	Memory    memory.Driver
	Conflicts reasoning.ConflictDetector

	// Events optionally receives review.created events.
	Events eventstream.Publisher

	// DuplicateThreshold is the similarity at or above which a proposal is
	// dropped as a duplicate.
	DuplicateThreshold float64

	// ConflictThreshold is the similarity at or above which a proposal is
	// checked for contradiction.
	ConflictThreshold float64

	PollInterval time.Duration
	Logger       *slog.Logger
}

// ValidationAgent compares proposals with what is already known. Claims and
// actions run in two independent sequential lanes.
type ValidationAgent struct {
	runner

	embedder  embeddings.Embedder
	memory    memory.Driver
	conflicts reasoning.ConflictDetector
	events    eventstream.Publisher

	duplicateThreshold float64
	conflictThreshold  float64

	// inflight holds accepted proposals, keyed by their *.validated task ID,
	// until the publish stage completes that task.
	mu       sync.Mutex
	inflight map[string]candidate
}

// candidate is something a proposal can collide with.
type candidate struct {
	kind      string
	id        string
	text      string
	embedding []float32
	createdAt time.Time
}

// NewValidationAgent creates a stopped validation agent.
func NewValidationAgent(c ValidationConfig) (*ValidationAgent, error) {
	if c.Embedder == nil {
		return nil, errors.New("validation agent requires an embedder")
	}
	if c.Memory == nil {
		return nil, errors.New("validation agent requires a memory driver")
	}

	conflicts := c.Conflicts
	if conflicts == nil {
		conflicts = reasoning.Disabled{}
	}

	dup := c.DuplicateThreshold
	if dup <= 0 {
		dup = DefaultDuplicateThreshold
	}
	soft := c.ConflictThreshold
	if soft <= 0 {
		soft = DefaultConflictThreshold
	}
	if soft > dup {
		return nil, fmt.Errorf("conflict threshold %.2f above duplicate threshold %.2f", soft, dup)
	}

	return &ValidationAgent{
		runner:             newRunner("validation", c.PollInterval, c.Logger),
		embedder:           c.Embedder,
		memory:             c.Memory,
		conflicts:          conflicts,
		events:             c.Events,
		duplicateThreshold: dup,
		conflictThreshold:  soft,
		inflight:           make(map[string]candidate),
	}, nil
}

// Start begins consuming claim.proposed and action.proposed tasks from q.
func (a *ValidationAgent) Start(q *taskqueue.Queue) error {
	return a.start(q, []lane{
		{name: "claims", match: kinds(taskqueue.KindClaimProposed), handle: a.handle},
		{name: "actions", match: kinds(taskqueue.KindActionProposed), handle: a.handle},
	}, a.observe)
}

// Stop halts polling and waits for in-flight proposals.
func (a *ValidationAgent) Stop() {
	a.stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.inflight)
}

// Running reports whether the agent is started.
func (a *ValidationAgent) Running() bool {
	return a.running()
}

// InFlight returns how many accepted proposals await persistence.
func (a *ValidationAgent) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inflight)
}

// observe releases in-flight entries once their validated task is done.
func (a *ValidationAgent) observe(ev taskqueue.Event) {
	if ev.Type != taskqueue.EventCompleted {
		return
	}
	switch ev.Task.Kind() {
	case taskqueue.KindClaimValidated, taskqueue.KindActionValidated:
		a.mu.Lock()
		delete(a.inflight, ev.Task.ID)
		a.mu.Unlock()
	}
}

func (a *ValidationAgent) handle(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task) {
	switch p := task.Payload.(type) {
	case taskqueue.ClaimProposed:
		a.validateClaim(ctx, q, task, p.Claim)
	case taskqueue.ActionProposed:
		a.validateAction(ctx, q, task, p.Action)
	default:
		a.logger.Warn("unexpected task kind", "task_id", task.ID, "kind", task.Kind())
	}
}

func (a *ValidationAgent) validateClaim(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task, claim memory.Claim) {
	log := a.logger.With("conversation_id", task.ConversationID, "task_id", task.ID, "claim", claim.Text)

	// Storage IDs are assigned here so in-flight matches can be referenced.
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}

	emit := func() {
		a.emit(q, task.ConversationID, taskqueue.ClaimValidated{Claim: claim}, candidate{
			kind:      vector.KindClaim,
			id:        claim.ID,
			text:      claim.Text,
			embedding: claim.Embedding,
		}, log)
	}

	emb, err := a.embed(ctx, claim.Embedding, claim.Text)
	if err != nil {
		log.Warn("embedding failed, accepting claim unchecked", "error", err)
		emit()
		return
	}
	claim.Embedding = emb

	existing, err := a.memory.ListClaims(ctx, nil)
	if err != nil {
		log.Warn("listing claims failed, accepting claim unchecked", "error", err)
		emit()
		return
	}

	candidates := make([]candidate, 0, len(existing))
	for _, c := range existing {
		ce, err := a.embed(ctx, c.Embedding, c.Text)
		if err != nil {
			log.Debug("skipping claim without embedding", "existing_id", c.ID, "error", err)
			continue
		}
		candidates = append(candidates, candidate{kind: vector.KindClaim, id: c.ID, text: c.Text, embedding: ce, createdAt: c.CreatedAt})
	}

	verdict := a.judge(ctx, vector.KindClaim, claim.Text, emb, candidates, log)
	switch verdict.outcome {
	case outcomeDuplicate:
		log.Info("dropping duplicate claim", "existing_id", verdict.match.id, "similarity", verdict.score)
		return
	case outcomeConflict:
		a.review(ctx, task.ConversationID, memory.ReviewItem{
			Title:    "Possible conflicting claim: " + claim.Text,
			Summary:  conflictSummary(claim.Text, verdict),
			ClaimIDs: nonEmpty(verdict.match.id),
		}, log)
	}
	emit()
}

func (a *ValidationAgent) validateAction(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task, action memory.Action) {
	log := a.logger.With("conversation_id", task.ConversationID, "task_id", task.ID, "action", action.Title)

	if action.ID == "" {
		action.ID = uuid.NewString()
	}

	emit := func() {
		a.emit(q, task.ConversationID, taskqueue.ActionValidated{Action: action}, candidate{
			kind:      vector.KindAction,
			id:        action.ID,
			text:      action.Title,
			embedding: action.Embedding,
		}, log)
	}

	emb, err := a.embed(ctx, action.Embedding, action.Title)
	if err != nil {
		log.Warn("embedding failed, accepting action unchecked", "error", err)
		emit()
		return
	}
	action.Embedding = emb

	existing, err := a.memory.ListActions(ctx)
	if err != nil {
		log.Warn("listing actions failed, accepting action unchecked", "error", err)
		emit()
		return
	}

	candidates := make([]candidate, 0, len(existing))
	for _, e := range existing {
		ee, err := a.embed(ctx, e.Embedding, e.Title)
		if err != nil {
			log.Debug("skipping action without embedding", "existing_id", e.ID, "error", err)
			continue
		}
		candidates = append(candidates, candidate{kind: vector.KindAction, id: e.ID, text: e.Title, embedding: ee, createdAt: e.CreatedAt})
	}

	verdict := a.judge(ctx, vector.KindAction, action.Title, emb, candidates, log)
	switch verdict.outcome {
	case outcomeDuplicate:
		log.Info("dropping duplicate action", "existing_id", verdict.match.id, "similarity", verdict.score)
		return
	case outcomeConflict:
		a.review(ctx, task.ConversationID, memory.ReviewItem{
			Title:     "Possible conflicting action: " + action.Title,
			Summary:   conflictSummary(action.Title, verdict),
			ActionIDs: nonEmpty(verdict.match.id),
		}, log)
	}
	emit()
}

func (a *ValidationAgent) embed(ctx context.Context, have []float32, text string) ([]float32, error) {
	if len(have) > 0 {
		return have, nil
	}
	return a.embedder.Embed(ctx, text)
}

type outcome int

const (
	outcomeAccept outcome = iota
	outcomeDuplicate
	outcomeConflict
)

type verdict struct {
	outcome outcome
	match   candidate
	score   float64
}

// judge scores a proposal against persisted candidates and in-flight
// acceptances of the same kind.
func (a *ValidationAgent) judge(ctx context.Context, kind, text string, emb []float32, persisted []candidate, log *slog.Logger) verdict {
	a.mu.Lock()
	for _, c := range a.inflight {
		if c.kind == kind {
			persisted = append(persisted, c)
		}
	}
	a.mu.Unlock()

	match, score, ok := closest(emb, persisted)
	if !ok || score < a.conflictThreshold {
		return verdict{outcome: outcomeAccept}
	}
	if score >= a.duplicateThreshold {
		return verdict{outcome: outcomeDuplicate, match: match, score: score}
	}

	conflict, err := a.conflicts.DetectConflict(ctx, reasoning.ConflictRequest{
		Kind:     kind,
		Existing: match.text,
		Proposed: text,
	})
	switch {
	case errors.Is(err, reasoning.ErrDisabled):
		return verdict{outcome: outcomeAccept}
	case err != nil:
		log.Warn("conflict check failed, accepting without review", "error", err)
		return verdict{outcome: outcomeAccept}
	case conflict:
		return verdict{outcome: outcomeConflict, match: match, score: score}
	}
	return verdict{outcome: outcomeAccept}
}

// closest returns the most similar candidate. Ties go to the most recently
// created candidate, then to the greatest ID.
func closest(emb []float32, candidates []candidate) (candidate, float64, bool) {
	var (
		best      candidate
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		score := vector.CosineSimilarity(emb, c.embedding)
		if !found || score > bestScore || (score == bestScore && newer(c, best)) {
			best, bestScore, found = c, score, true
		}
	}
	return best, bestScore, found
}

func newer(a, b candidate) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.After(b.createdAt)
	}
	return a.id > b.id
}

func (a *ValidationAgent) emit(q *taskqueue.Queue, convID string, payload taskqueue.Payload, c candidate, log *slog.Logger) {
	// Hold the lock across Enqueue so a fast completion cannot race the
	// in-flight insert.
	a.mu.Lock()
	defer a.mu.Unlock()

	task, err := q.Enqueue(convID, payload)
	if err != nil {
		log.Warn("failed to enqueue validated item", "error", err)
		return
	}
	if len(c.embedding) > 0 {
		c.createdAt = time.Now()
		a.inflight[task.ID] = c
	}
}

func (a *ValidationAgent) review(ctx context.Context, convID string, item memory.ReviewItem, log *slog.Logger) {
	item.Status = memory.ReviewPending
	id, err := a.memory.CreateReviewItem(ctx, item)
	if err != nil {
		log.Warn("failed to create review item", "error", err)
		return
	}
	item.ID = id
	log.Info("flagged possible conflict for review", "review_id", id)

	if a.events != nil {
		event := eventstream.NewEvent(eventstream.EventTypeReviewCreated, convID)
		event.ReviewItem = &item
		publish(ctx, a.events, event, log)
	}
}

func conflictSummary(proposed string, v verdict) string {
	return fmt.Sprintf("%q may contradict %q (similarity %.2f)", proposed, v.match.text, v.score)
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
