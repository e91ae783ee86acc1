// Package memory provides the durable memory layer for gleaner.
//
// Claims are structured facts inferred about the user from conversation text.
// Actions are follow-up commitments inferred from the same text. Review items
// hold claims or actions whose relationship to existing data is ambiguous and
// needs a human decision.
//
// The [Driver] interface is the storage contract consumed by the pipeline's
// validation and publish agents. How a record is physically stored is up to
// the driver:
//
//	[storage]
//	provider = "memory"   # or "sqlite", "postgres"
package memory

import "context"

// Driver persists and lists claims, actions and review items.
type Driver interface {
	// ListClaims returns persisted claims, oldest first. A nil status lists
	// claims of every status. Each claim carries its embedding if one was
	// computed before it was persisted.
	ListClaims(ctx context.Context, status *ClaimStatus) ([]Claim, error)

	// ListActions returns persisted actions, oldest first.
	ListActions(ctx context.Context) ([]Action, error)

	// UpsertClaim inserts a claim when its ID is empty, otherwise replaces
	// the claim with the same ID. Returns the claim ID.
	UpsertClaim(ctx context.Context, claim Claim) (string, error)

	// CreateAction inserts a new action and returns its ID. A preassigned
	// ID is kept; an empty one is generated.
	CreateAction(ctx context.Context, action Action) (string, error)

	// AppendConversationClaim links a persisted claim to a conversation.
	AppendConversationClaim(ctx context.Context, conversationID, claimID string) error

	// AppendConversationAction links a persisted action to a conversation.
	AppendConversationAction(ctx context.Context, conversationID, actionID string) error

	// CreateReviewItem inserts a review item and returns its ID.
	CreateReviewItem(ctx context.Context, item ReviewItem) (string, error)

	// ListReviewItems returns review items, oldest first. A nil status lists
	// every item.
	ListReviewItems(ctx context.Context, status *ReviewStatus) ([]ReviewItem, error)

	// ConversationItems returns the claims and actions linked to a
	// conversation, in link order.
	ConversationItems(ctx context.Context, conversationID string) (*ConversationItems, error)

	// Close releases driver resources.
	Close() error
}

// ConversationItems groups the records linked to one conversation.
type ConversationItems struct {
	ConversationID string   `json:"conversation_id"`
	Claims         []Claim  `json:"claims"`
	Actions        []Action `json:"actions"`
}
