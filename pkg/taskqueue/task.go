package taskqueue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/gleaner/pkg/memory"
)

// ErrInvalidTask is returned by Enqueue for payloads that fail validation.
var ErrInvalidTask = errors.New("invalid task")

// Kind identifies the payload variant carried by a Task.
type Kind string

const (
	KindTurnIngest         Kind = "turn.ingest"
	KindClaimProposed      Kind = "claim.proposed"
	KindActionProposed     Kind = "action.proposed"
	KindClaimValidated     Kind = "claim.validated"
	KindActionValidated    Kind = "action.validated"
	KindActionUserDecision Kind = "action.user_decision"
)

// Payload is the closed set of task bodies. Only the types in this package
// implement it.
type Payload interface {
	Kind() Kind
	Validate() error

	sealed()
}

// Task is an immutable unit of work. The queue tracks its status privately.
type Task struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Payload        Payload   `json:"payload"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// Kind returns the kind of the task's payload.
func (t Task) Kind() Kind {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Kind()
}

// Turn is a single utterance in a conversation.
type Turn struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// Decision is the user's verdict on a suggested action.
type Decision struct {
	Title     string           `json:"title"`
	DueWindow memory.DueWindow `json:"due_window"`
	Accepted  bool             `json:"accepted"`
}

type TurnIngest struct {
	Turn Turn `json:"turn"`
}

type ClaimProposed struct {
	Claim memory.Claim `json:"claim"`
}

type ActionProposed struct {
	Action memory.Action `json:"action"`
}

type ClaimValidated struct {
	Claim memory.Claim `json:"claim"`
}

type ActionValidated struct {
	Action memory.Action `json:"action"`
}

type ActionUserDecision struct {
	Decision Decision `json:"decision"`
}

func (TurnIngest) Kind() Kind         { return KindTurnIngest }
func (ClaimProposed) Kind() Kind      { return KindClaimProposed }
func (ActionProposed) Kind() Kind     { return KindActionProposed }
func (ClaimValidated) Kind() Kind     { return KindClaimValidated }
func (ActionValidated) Kind() Kind    { return KindActionValidated }
func (ActionUserDecision) Kind() Kind { return KindActionUserDecision }

func (TurnIngest) sealed()         {}
func (ClaimProposed) sealed()      {}
func (ActionProposed) sealed()     {}
func (ClaimValidated) sealed()     {}
func (ActionValidated) sealed()    {}
func (ActionUserDecision) sealed() {}

func (p TurnIngest) Validate() error {
	if strings.TrimSpace(p.Turn.Text) == "" {
		return fmt.Errorf("%s: empty turn text", p.Kind())
	}
	return nil
}

func (p ClaimProposed) Validate() error  { return validateClaim(p.Kind(), p.Claim) }
func (p ClaimValidated) Validate() error { return validateClaim(p.Kind(), p.Claim) }

func (p ActionProposed) Validate() error  { return validateAction(p.Kind(), p.Action) }
func (p ActionValidated) Validate() error { return validateAction(p.Kind(), p.Action) }

func (p ActionUserDecision) Validate() error {
	if strings.TrimSpace(p.Decision.Title) == "" {
		return fmt.Errorf("%s: empty title", p.Kind())
	}
	if !p.Decision.DueWindow.Valid() {
		return fmt.Errorf("%s: unknown due window %q", p.Kind(), p.Decision.DueWindow)
	}
	return nil
}

func validateClaim(kind Kind, c memory.Claim) error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%s: empty claim text", kind)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%s: confidence %v outside [0,1]", kind, c.Confidence)
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("%s: unknown claim status %q", kind, c.Status)
	}
	return nil
}

func validateAction(kind Kind, a memory.Action) error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%s: empty action title", kind)
	}
	if !a.DueWindow.Valid() {
		return fmt.Errorf("%s: unknown due window %q", kind, a.DueWindow)
	}
	return nil
}
