package ingestcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/suggest"
)

// Report is what one ingest run left behind for a conversation.
type Report struct {
	ConversationID string              `json:"conversation_id"`
	Turns          int                 `json:"turns"`
	Claims         []memory.Claim      `json:"claims"`
	Actions        []memory.Action     `json:"actions"`
	Review         []memory.ReviewItem `json:"review"`
	Suggestions    []suggest.Entry     `json:"suggestions"`

	// CurrentSuggestion is the ID of the suggestion shown to the user, when
	// it belongs to this conversation.
	CurrentSuggestion string `json:"current_suggestion,omitempty"`
}

// BuildReport collects the conversation's linked items, every pending review
// item and the conversation's visible suggestions. Review items are not
// scoped because a conflict may point at a claim from any conversation.
func BuildReport(ctx context.Context, p *pipeline.Pipeline, conversationID string, turns int) (*Report, error) {
	items, err := p.Memory().ConversationItems(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	pending := memory.ReviewPending
	review, err := p.Memory().ListReviewItems(ctx, &pending)
	if err != nil {
		return nil, fmt.Errorf("listing review items: %w", err)
	}

	r := &Report{
		ConversationID: conversationID,
		Turns:          turns,
		Claims:         items.Claims,
		Actions:        items.Actions,
		Review:         review,
	}
	for i := range r.Claims {
		r.Claims[i].Embedding = nil
	}
	for i := range r.Actions {
		r.Actions[i].Embedding = nil
	}

	for _, e := range p.Suggestions().Entries() {
		if e.ConversationID == conversationID {
			r.Suggestions = append(r.Suggestions, e)
		}
	}
	if view := p.Suggestions().View(); view.Current != nil && view.Current.ConversationID == conversationID {
		r.CurrentSuggestion = view.Current.ID
	}

	return r, nil
}

// Markdown renders the report for glamour.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.ConversationID)
	fmt.Fprintf(&b, "%d turns, %d claims, %d actions, %d pending review\n\n",
		r.Turns, len(r.Claims), len(r.Actions), len(r.Review))

	b.WriteString("## Claims\n\n")
	if len(r.Claims) == 0 {
		b.WriteString("_none_\n\n")
	}
	for _, c := range r.Claims {
		fmt.Fprintf(&b, "- %s _(%s, %.2f)_\n", c.Text, c.Status, c.Confidence)
	}
	if len(r.Claims) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Actions\n\n")
	if len(r.Actions) == 0 {
		b.WriteString("_none_\n\n")
	}
	for _, a := range r.Actions {
		fmt.Fprintf(&b, "- %s _(%s, %s)_\n", a.Title, a.DueWindow, a.Status)
	}
	if len(r.Actions) > 0 {
		b.WriteString("\n")
	}

	if len(r.Review) > 0 {
		b.WriteString("## Needs review\n\n")
		for _, item := range r.Review {
			fmt.Fprintf(&b, "- **%s**: %s\n", item.Title, item.Summary)
		}
		b.WriteString("\n")
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("## Suggested\n\n")
		for i, e := range r.Suggestions {
			marker := ""
			if e.ID == r.CurrentSuggestion {
				marker = " (current)"
			}
			fmt.Fprintf(&b, "%d. %s, %s%s\n", i+1, e.Title, e.DueWindow, marker)
		}
		b.WriteString("\n")
	}

	return b.String()
}
