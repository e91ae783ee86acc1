package agents

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/reasoning"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// ExtractionConfig configures an ExtractionAgent.
type ExtractionConfig struct {
	Extractor    reasoning.Extractor
	PollInterval time.Duration
	Logger       *slog.Logger
}

// ExtractionAgent turns conversation turns into claim and action proposals.
// Turns are processed strictly one at a time in enqueue order because each
// call threads the continuity token returned by the previous one.
type ExtractionAgent struct {
	runner
	extractor reasoning.Extractor

	mu    sync.Mutex
	state map[string]*continuity
}

// continuity is the per-conversation memory carried between turns.
type continuity struct {
	token string

	claims      map[string]struct{}
	claimOrder  []string
	actions     map[string]struct{}
	actionOrder []string
}

func newContinuity() *continuity {
	return &continuity{
		claims:  make(map[string]struct{}),
		actions: make(map[string]struct{}),
	}
}

// NewExtractionAgent creates a stopped extraction agent.
func NewExtractionAgent(c ExtractionConfig) *ExtractionAgent {
	extractor := c.Extractor
	if extractor == nil {
		extractor = reasoning.Disabled{}
	}
	return &ExtractionAgent{
		runner:    newRunner("extraction", c.PollInterval, c.Logger),
		extractor: extractor,
		state:     make(map[string]*continuity),
	}
}

// Start begins consuming turn.ingest tasks from q.
func (a *ExtractionAgent) Start(q *taskqueue.Queue) error {
	return a.start(q, []lane{{
		name:   "turns",
		match:  kinds(taskqueue.KindTurnIngest),
		handle: a.handle,
	}}, nil)
}

// Stop halts polling, waits for the in-flight turn and then forgets every
// continuity token and dedup set.
func (a *ExtractionAgent) Stop() {
	a.stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.state)
}

// Running reports whether the agent is started.
func (a *ExtractionAgent) Running() bool {
	return a.running()
}

// ContinuityToken returns the token that will accompany the next turn of the
// conversation.
func (a *ExtractionAgent) ContinuityToken(conversationID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.state[conversationID]; ok {
		return st.token
	}
	return ""
}

func (a *ExtractionAgent) handle(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task) {
	switch p := task.Payload.(type) {
	case taskqueue.TurnIngest:
		a.extract(ctx, q, task, p.Turn)
	default:
		a.logger.Warn("unexpected task kind", "task_id", task.ID, "kind", task.Kind())
	}
}

func (a *ExtractionAgent) extract(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task, turn taskqueue.Turn) {
	convID := task.ConversationID

	a.mu.Lock()
	st, ok := a.state[convID]
	if !ok {
		st = newContinuity()
		a.state[convID] = st
	}
	req := reasoning.ExtractRequest{
		TurnText:        turn.Text,
		ContinuityToken: st.token,
		AlreadyExtracted: reasoning.AlreadyExtracted{
			Claims:  append([]string(nil), st.claimOrder...),
			Actions: append([]string(nil), st.actionOrder...),
		},
	}
	a.mu.Unlock()

	result, err := a.extractor.Extract(ctx, req)
	if err != nil {
		a.logger.Warn("extraction failed, treating turn as empty",
			"conversation_id", convID,
			"task_id", task.ID,
			"error", err,
		)
		return
	}
	if result == nil {
		result = &reasoning.ExtractResult{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st.token = result.ContinuityToken

	for _, pc := range result.Claims {
		claim, ok := a.toClaim(convID, pc)
		if !ok {
			continue
		}
		key := memory.Normalize(claim.Text)
		if _, seen := st.claims[key]; seen {
			a.logger.Debug("skipping already extracted claim", "conversation_id", convID, "claim", key)
			continue
		}
		if _, err := q.Enqueue(convID, taskqueue.ClaimProposed{Claim: claim}); err != nil {
			a.logger.Warn("failed to enqueue claim proposal", "conversation_id", convID, "error", err)
			continue
		}
		st.claims[key] = struct{}{}
		st.claimOrder = append(st.claimOrder, key)
	}

	for _, pa := range result.Actions {
		action, ok := a.toAction(convID, pa)
		if !ok {
			continue
		}
		key := memory.Normalize(action.Title)
		if _, seen := st.actions[key]; seen {
			a.logger.Debug("skipping already extracted action", "conversation_id", convID, "action", key)
			continue
		}
		if _, err := q.Enqueue(convID, taskqueue.ActionProposed{Action: action}); err != nil {
			a.logger.Warn("failed to enqueue action proposal", "conversation_id", convID, "error", err)
			continue
		}
		st.actions[key] = struct{}{}
		st.actionOrder = append(st.actionOrder, key)
	}

	a.logger.Debug("turn extracted",
		"conversation_id", convID,
		"task_id", task.ID,
		"claims", len(result.Claims),
		"actions", len(result.Actions),
	)
}

func (a *ExtractionAgent) toClaim(convID string, pc reasoning.ProposedClaim) (memory.Claim, bool) {
	text := strings.TrimSpace(pc.Text)
	if text == "" {
		a.logger.Debug("dropping claim with empty text", "conversation_id", convID)
		return memory.Claim{}, false
	}
	if pc.Confidence < 0 || pc.Confidence > 1 {
		a.logger.Debug("dropping claim with confidence outside [0,1]",
			"conversation_id", convID,
			"claim", text,
			"confidence", pc.Confidence,
		)
		return memory.Claim{}, false
	}
	return memory.Claim{
		Text:           text,
		Category:       strings.TrimSpace(pc.Category),
		Confidence:     pc.Confidence,
		Evidence:       pc.Evidence,
		Status:         memory.ClaimInferred,
		ConversationID: convID,
	}, true
}

func (a *ExtractionAgent) toAction(convID string, pa reasoning.ProposedAction) (memory.Action, bool) {
	title := strings.TrimSpace(pa.Title)
	if title == "" {
		a.logger.Debug("dropping action with empty title", "conversation_id", convID)
		return memory.Action{}, false
	}
	due, known := memory.ParseDueWindow(pa.DueWindow)
	if !known && pa.DueWindow != "" {
		a.logger.Debug("unknown due window", "conversation_id", convID, "due_window", pa.DueWindow)
	}
	return memory.Action{
		Title:          title,
		DueWindow:      due,
		Source:         memory.SourceConversation,
		Reminder:       pa.Reminder,
		Status:         memory.ActionSuggested,
		ConversationID: convID,
		Evidence:       pa.Evidence,
	}, true
}
