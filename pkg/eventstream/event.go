package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/gleaner/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeClaimPublished is emitted after a validated claim is persisted.
	EventTypeClaimPublished = "gleaner.claim.published"

	// EventTypeActionSuggested is emitted after a validated action is
	// persisted and surfaced to the user.
	EventTypeActionSuggested = "gleaner.action.suggested"

	// EventTypeActionApproved is emitted after the user accepts a suggestion.
	EventTypeActionApproved = "gleaner.action.approved"

	// EventTypeReviewCreated is emitted when a possible conflict is flagged.
	EventTypeReviewCreated = "gleaner.review.created"
)

// Event is a transport-neutral payload describing one persisted record.
// Exactly one of Claim, Action or ReviewItem is set.
type Event struct {
	SchemaVersion  int                `json:"schema_version"`
	EventType      string             `json:"event_type"`
	EventID        string             `json:"event_id"`
	EmittedAt      time.Time          `json:"emitted_at"`
	ConversationID string             `json:"conversation_id"`
	Claim          *memory.Claim      `json:"claim,omitempty"`
	Action         *memory.Action     `json:"action,omitempty"`
	ReviewItem     *memory.ReviewItem `json:"review_item,omitempty"`
}

// NewEvent stamps an event of the given type with a fresh ID and time.
func NewEvent(eventType, conversationID string) *Event {
	return &Event{
		SchemaVersion:  SchemaVersionV1,
		EventType:      eventType,
		EventID:        "evt_" + uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: conversationID,
	}
}
