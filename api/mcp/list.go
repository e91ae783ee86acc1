package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/gleaner/pkg/memory"
)

var (
	listToolName    = "claims_list"
	listDescription = "List the facts gleaned from past conversations. Optionally filter by status (inferred, confirmed, rejected) or by conversation id."
)

// ListInput represents the input arguments for the claims_list tool.
type ListInput struct {
	Status         string `json:"status,omitempty" jsonschema:"only list claims with this status: inferred, confirmed or rejected"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"only list claims linked to this conversation"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of claims to return, newest first (default: all)"`
}

// Claim is the trimmed claim shape returned to assistants.
type Claim struct {
	ID             string             `json:"id"`
	Text           string             `json:"text"`
	Category       string             `json:"category,omitempty"`
	Confidence     float64            `json:"confidence"`
	Status         memory.ClaimStatus `json:"status"`
	ConversationID string             `json:"conversation_id"`
}

// ListOutput represents the output of the claims_list tool.
type ListOutput struct {
	Claims []Claim `json:"claims"`
	Count  int     `json:"count"`
}

// handleList processes a claims_list request.
func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	var status *memory.ClaimStatus
	if input.Status != "" {
		st := memory.ClaimStatus(input.Status)
		if !st.Valid() {
			return toolError(fmt.Sprintf("unknown status %q", input.Status)), ListOutput{}, nil
		}
		status = &st
	}

	var (
		claims []memory.Claim
		err    error
	)
	if input.ConversationID != "" {
		var items *memory.ConversationItems
		items, err = s.config.Memory.ConversationItems(ctx, input.ConversationID)
		if err == nil {
			claims = filterStatus(items.Claims, status)
		}
	} else {
		claims, err = s.config.Memory.ListClaims(ctx, status)
	}
	if err != nil {
		s.config.Logger.Error("claims list failed", "error", err)
		return toolError(fmt.Sprintf("Listing claims failed: %v", err)), ListOutput{}, nil
	}

	output := ListOutput{Claims: buildClaims(claims, input.Limit)}
	output.Count = len(output.Claims)

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), ListOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func filterStatus(claims []memory.Claim, status *memory.ClaimStatus) []memory.Claim {
	if status == nil {
		return claims
	}
	out := claims[:0:0]
	for _, c := range claims {
		if c.Status == *status {
			out = append(out, c)
		}
	}
	return out
}

// buildClaims converts stored claims newest first, keeping at most limit
// when limit is positive.
func buildClaims(claims []memory.Claim, limit int) []Claim {
	out := make([]Claim, 0, len(claims))
	for i := len(claims) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		c := claims[i]
		out = append(out, Claim{
			ID:             c.ID,
			Text:           c.Text,
			Category:       c.Category,
			Confidence:     c.Confidence,
			Status:         c.Status,
			ConversationID: c.ConversationID,
		})
	}
	return out
}
