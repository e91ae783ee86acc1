// Package reasoning defines the model-backed services the pipeline consults:
// turn extraction and conflict detection.
package reasoning

import (
	"context"
	"errors"
)

// ErrDisabled is returned by services that were configured off.
var ErrDisabled = errors.New("reasoning service disabled")

// ProposedClaim is a fact about the user suggested by the model.
type ProposedClaim struct {
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// ProposedAction is a follow-up suggested by the model. DueWindow is free
// text; callers normalize it.
type ProposedAction struct {
	Title     string   `json:"title"`
	DueWindow string   `json:"due_window"`
	Reminder  bool     `json:"reminder"`
	Evidence  []string `json:"evidence"`
}

// AlreadyExtracted carries lower-cased texts surfaced earlier in the session.
type AlreadyExtracted struct {
	Claims  []string `json:"claims"`
	Actions []string `json:"actions"`
}

// ExtractRequest is one turn plus the session context.
type ExtractRequest struct {
	TurnText string

	// ContinuityToken is the token returned by the previous call, empty on the
	// first turn or when the previous call returned none.
	ContinuityToken string

	AlreadyExtracted AlreadyExtracted
}

// ExtractResult is the model's answer for one turn.
type ExtractResult struct {
	Claims          []ProposedClaim
	Actions         []ProposedAction
	ContinuityToken string
}

// Extractor derives claims and actions from conversation turns.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
}

// ConflictRequest compares a new item against the closest persisted one.
type ConflictRequest struct {
	// Kind is "claim" or "action".
	Kind     string
	Existing string
	Proposed string
}

// ConflictDetector decides whether two related items contradict each other.
type ConflictDetector interface {
	DetectConflict(ctx context.Context, req ConflictRequest) (bool, error)
}

// Disabled extracts nothing and never reports conflicts.
type Disabled struct{}

// Extract returns an empty result.
func (Disabled) Extract(context.Context, ExtractRequest) (*ExtractResult, error) {
	return &ExtractResult{}, nil
}

// DetectConflict returns ErrDisabled.
func (Disabled) DetectConflict(context.Context, ConflictRequest) (bool, error) {
	return false, ErrDisabled
}

var (
	_ Extractor        = Disabled{}
	_ ConflictDetector = Disabled{}
)

// Service is both an Extractor and a ConflictDetector.
type Service interface {
	Extractor
	ConflictDetector
}

// NewService builds the LLM-backed service for cfg, or Disabled when the
// provider is "disabled".
func NewService(cfg CallerConfig) (Service, error) {
	call, err := NewCaller(cfg)
	if errors.Is(err, ErrDisabled) {
		return Disabled{}, nil
	}
	if err != nil {
		return nil, err
	}
	return NewLLM(call), nil
}
