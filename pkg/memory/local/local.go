// Package local provides an in-memory implementation of the memory.Driver interface.
//
// Records live for the lifetime of the process. This is the local-dev story
// and the backing store for tests; durable deployments use the sqlite or
// postgres drivers.
package local

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/gleaner/pkg/memory"
)

// Driver implements memory.Driver using in-process data structures.
type Driver struct {
	mu sync.RWMutex

	claims  []memory.Claim
	actions []memory.Action
	reviews []memory.ReviewItem

	// links maps conversation ID -> linked record IDs, in link order.
	claimLinks  map[string][]string
	actionLinks map[string][]string

	now func() time.Time
}

// NewDriver creates a local in-memory memory driver.
func NewDriver() *Driver {
	return &Driver{
		claimLinks:  make(map[string][]string),
		actionLinks: make(map[string][]string),
		now:         time.Now,
	}
}

// ListClaims returns copies of the stored claims, optionally filtered by status.
func (d *Driver) ListClaims(_ context.Context, status *memory.ClaimStatus) ([]memory.Claim, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]memory.Claim, 0, len(d.claims))
	for _, c := range d.claims {
		if status != nil && c.Status != *status {
			continue
		}
		result = append(result, copyClaim(c))
	}
	return result, nil
}

// ListActions returns copies of the stored actions.
func (d *Driver) ListActions(_ context.Context) ([]memory.Action, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]memory.Action, 0, len(d.actions))
	for _, a := range d.actions {
		result = append(result, copyAction(a))
	}
	return result, nil
}

// UpsertClaim inserts or replaces a claim.
func (d *Driver) UpsertClaim(_ context.Context, claim memory.Claim) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	claim = copyClaim(claim)
	if claim.Status == "" {
		claim.Status = memory.ClaimInferred
	}

	if claim.ID != "" {
		for i := range d.claims {
			if d.claims[i].ID == claim.ID {
				claim.CreatedAt = d.claims[i].CreatedAt
				d.claims[i] = claim
				return claim.ID, nil
			}
		}
	} else {
		claim.ID = uuid.NewString()
	}

	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = d.now()
	}
	d.claims = append(d.claims, claim)
	return claim.ID, nil
}

// CreateAction inserts a new action with a fresh ID.
func (d *Driver) CreateAction(_ context.Context, action memory.Action) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	action = copyAction(action)
	if action.ID == "" {
		action.ID = uuid.NewString()
	} else if slices.ContainsFunc(d.actions, func(a memory.Action) bool { return a.ID == action.ID }) {
		return "", memory.ErrDuplicateID
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = d.now()
	}
	d.actions = append(d.actions, action)
	return action.ID, nil
}

// AppendConversationClaim links a claim to a conversation.
func (d *Driver) AppendConversationClaim(_ context.Context, conversationID, claimID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.ContainsFunc(d.claims, func(c memory.Claim) bool { return c.ID == claimID }) {
		return memory.ErrNotFound
	}
	d.claimLinks[conversationID] = appendUnique(d.claimLinks[conversationID], claimID)
	return nil
}

// AppendConversationAction links an action to a conversation.
func (d *Driver) AppendConversationAction(_ context.Context, conversationID, actionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.ContainsFunc(d.actions, func(a memory.Action) bool { return a.ID == actionID }) {
		return memory.ErrNotFound
	}
	d.actionLinks[conversationID] = appendUnique(d.actionLinks[conversationID], actionID)
	return nil
}

// CreateReviewItem inserts a review item with a fresh ID.
func (d *Driver) CreateReviewItem(_ context.Context, item memory.ReviewItem) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item.ID = uuid.NewString()
	item.ClaimIDs = slices.Clone(item.ClaimIDs)
	item.ActionIDs = slices.Clone(item.ActionIDs)
	if item.Status == "" {
		item.Status = memory.ReviewPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = d.now()
	}
	d.reviews = append(d.reviews, item)
	return item.ID, nil
}

// ListReviewItems returns review items, optionally filtered by status.
func (d *Driver) ListReviewItems(_ context.Context, status *memory.ReviewStatus) ([]memory.ReviewItem, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]memory.ReviewItem, 0, len(d.reviews))
	for _, r := range d.reviews {
		if status != nil && r.Status != *status {
			continue
		}
		r.ClaimIDs = slices.Clone(r.ClaimIDs)
		r.ActionIDs = slices.Clone(r.ActionIDs)
		result = append(result, r)
	}
	return result, nil
}

// ConversationItems returns the claims and actions linked to a conversation.
func (d *Driver) ConversationItems(_ context.Context, conversationID string) (*memory.ConversationItems, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	items := &memory.ConversationItems{
		ConversationID: conversationID,
		Claims:         []memory.Claim{},
		Actions:        []memory.Action{},
	}

	for _, id := range d.claimLinks[conversationID] {
		for _, c := range d.claims {
			if c.ID == id {
				items.Claims = append(items.Claims, copyClaim(c))
			}
		}
	}
	for _, id := range d.actionLinks[conversationID] {
		for _, a := range d.actions {
			if a.ID == id {
				items.Actions = append(items.Actions, copyAction(a))
			}
		}
	}

	return items, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// copyClaim returns a claim whose slices do not alias the input.
func copyClaim(c memory.Claim) memory.Claim {
	c.Evidence = slices.Clone(c.Evidence)
	c.Embedding = slices.Clone(c.Embedding)
	return c
}

func copyAction(a memory.Action) memory.Action {
	a.Evidence = slices.Clone(a.Evidence)
	a.Embedding = slices.Clone(a.Embedding)
	return a
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

var _ memory.Driver = (*Driver)(nil)
