package memory

import (
	"strings"
	"time"
)

// ClaimStatus is the review state of a claim.
type ClaimStatus string

const (
	ClaimInferred  ClaimStatus = "inferred"
	ClaimConfirmed ClaimStatus = "confirmed"
	ClaimRejected  ClaimStatus = "rejected"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimInferred, ClaimConfirmed, ClaimRejected:
		return true
	}
	return false
}

// DueWindow is the coarse bucket used to prioritize actions.
type DueWindow string

const (
	DueToday          DueWindow = "Today"
	DueThisWeek       DueWindow = "This Week"
	DueThisMonth      DueWindow = "This Month"
	DueEverythingElse DueWindow = "Everything else"
)

// DueWindows lists every due window, most urgent first.
var DueWindows = []DueWindow{DueToday, DueThisWeek, DueThisMonth, DueEverythingElse}

// Valid reports whether w is a known due window.
func (w DueWindow) Valid() bool {
	switch w {
	case DueToday, DueThisWeek, DueThisMonth, DueEverythingElse:
		return true
	}
	return false
}

// ParseDueWindow matches s case-insensitively against the known due windows.
// Unknown or empty values map to DueEverythingElse and ok is false.
func ParseDueWindow(s string) (w DueWindow, ok bool) {
	s = strings.TrimSpace(s)
	for _, w := range DueWindows {
		if strings.EqualFold(s, string(w)) {
			return w, true
		}
	}
	return DueEverythingElse, false
}

// ActionSource records where an action came from.
type ActionSource string

const (
	SourceConversation ActionSource = "conversation"
	SourceSuggested    ActionSource = "suggested"
	SourceUser         ActionSource = "user"
	SourceSystem       ActionSource = "system"
)

// ActionStatus is the lifecycle state of an action.
type ActionStatus string

const (
	ActionSuggested ActionStatus = "suggested"
	ActionApproved  ActionStatus = "approved"
	ActionDismissed ActionStatus = "dismissed"
	ActionDone      ActionStatus = "done"
)

// ReviewStatus is the state of a review item.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

// Claim is a structured fact inferred about the user.
type Claim struct {
	ID             string      `json:"id,omitempty"`
	Text           string      `json:"text"`
	Category       string      `json:"category,omitempty"`
	Confidence     float64     `json:"confidence"`
	Evidence       []string    `json:"evidence,omitempty"`
	Status         ClaimStatus `json:"status"`
	ConversationID string      `json:"conversation_id"`
	Embedding      []float32   `json:"embedding,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Action is a follow-up commitment inferred from conversation text.
type Action struct {
	ID             string       `json:"id,omitempty"`
	Title          string       `json:"title"`
	DueWindow      DueWindow    `json:"due_window"`
	Source         ActionSource `json:"source"`
	Reminder       bool         `json:"reminder"`
	Status         ActionStatus `json:"status"`
	ConversationID string       `json:"conversation_id"`
	Evidence       []string     `json:"evidence,omitempty"`
	Embedding      []float32    `json:"embedding,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ReviewItem flags a claim or action that may conflict with existing data.
type ReviewItem struct {
	ID         string       `json:"id,omitempty"`
	Title      string       `json:"title"`
	Summary    string       `json:"summary"`
	ClaimIDs   []string     `json:"claim_ids,omitempty"`
	ActionIDs  []string     `json:"action_ids,omitempty"`
	Status     ReviewStatus `json:"status"`
	Resolution string       `json:"resolution,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Normalize returns the canonical dedup key for a claim text or action title.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
