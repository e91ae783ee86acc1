package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/gleaner/pkg/utils"
)

// LLMCallFunc sends a system and user prompt to a model and returns its raw
// reply, which is expected to contain a JSON object.
type LLMCallFunc func(ctx context.Context, system, prompt string) (string, error)

// LLM implements Extractor and ConflictDetector on top of an LLMCallFunc.
type LLM struct {
	call LLMCallFunc
}

// NewLLM creates an LLM-backed reasoning service.
func NewLLM(call LLMCallFunc) *LLM {
	return &LLM{call: call}
}

const extractSystemPrompt = `You extract durable facts ("claims") about the user and follow-up tasks ("actions") from a live conversation, one turn at a time.
Return ONLY valid JSON:

{
  "claims": [{"text": "short statement about the user", "category": "one word topic", "confidence": 0.0-1.0, "evidence": ["quoted words from the turn"]}],
  "actions": [{"title": "imperative task title", "due_window": "one of: Today, This Week, This Month, Everything else", "reminder": true|false, "evidence": ["quoted words from the turn"]}],
  "continuity": "compact notes you want to receive with the next turn"
}

Only include items supported by the turn. Never repeat an item listed as already extracted. Use empty arrays when nothing applies.`

type extractResponse struct {
	Claims     []ProposedClaim  `json:"claims"`
	Actions    []ProposedAction `json:"actions"`
	Continuity string           `json:"continuity"`
}

// Extract asks the model for claims and actions in req.TurnText.
func (l *LLM) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	reply, err := l.call(ctx, extractSystemPrompt, buildExtractPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	var resp extractResponse
	if err := decodeReply(reply, &resp); err != nil {
		return nil, err
	}

	return &ExtractResult{
		Claims:          resp.Claims,
		Actions:         resp.Actions,
		ContinuityToken: strings.TrimSpace(resp.Continuity),
	}, nil
}

func buildExtractPrompt(req ExtractRequest) string {
	var b strings.Builder
	if req.ContinuityToken != "" {
		fmt.Fprintf(&b, "Notes from earlier turns:\n%s\n\n", req.ContinuityToken)
	}
	writeList(&b, "Claims already extracted", req.AlreadyExtracted.Claims)
	writeList(&b, "Actions already extracted", req.AlreadyExtracted.Actions)
	fmt.Fprintf(&b, "Turn:\n%s\n", req.TurnText)
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

const conflictSystemPrompt = `You compare two records about the same user and decide whether they contradict each other.
Related but compatible records are not conflicts. Return ONLY valid JSON: {"conflict": true|false, "reason": "one sentence"}`

type conflictResponse struct {
	Conflict bool   `json:"conflict"`
	Reason   string `json:"reason"`
}

// DetectConflict asks the model whether req.Proposed contradicts req.Existing.
func (l *LLM) DetectConflict(ctx context.Context, req ConflictRequest) (bool, error) {
	prompt := fmt.Sprintf("Existing %s:\n%s\n\nNew %s:\n%s\n", req.Kind, req.Existing, req.Kind, req.Proposed)

	reply, err := l.call(ctx, conflictSystemPrompt, prompt)
	if err != nil {
		return false, fmt.Errorf("llm call: %w", err)
	}

	var resp conflictResponse
	if err := decodeReply(reply, &resp); err != nil {
		return false, err
	}
	return resp.Conflict, nil
}

// decodeReply unmarshals the outermost JSON object in reply, tolerating
// markdown fences or prose around it.
func decodeReply(reply string, dst any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model reply: %q", utils.Truncate(reply, 120))
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), dst); err != nil {
		return fmt.Errorf("unmarshal model reply: %w", err)
	}
	return nil
}

var (
	_ Extractor        = (*LLM)(nil)
	_ ConflictDetector = (*LLM)(nil)
)
