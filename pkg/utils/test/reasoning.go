package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/gleaner/pkg/reasoning"
)

// ErrMockReasoning is returned by the reasoning fakes when told to fail.
var ErrMockReasoning = errors.New("mock reasoning failure")

// MockExtractor replays scripted results in order and records every request.
// Once the script runs out it returns empty results.
type MockExtractor struct {
	mu       sync.Mutex
	script   []MockExtraction
	requests []reasoning.ExtractRequest

	// Block, when set, is received from before each call returns.
	Block chan struct{}
}

// MockExtraction is one scripted Extract outcome.
type MockExtraction struct {
	Result *reasoning.ExtractResult
	Err    error
}

func NewMockExtractor(script ...MockExtraction) *MockExtractor {
	return &MockExtractor{script: script}
}

// Push appends outcomes to the script.
func (m *MockExtractor) Push(outcomes ...MockExtraction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, outcomes...)
}

func (m *MockExtractor) Extract(ctx context.Context, req reasoning.ExtractRequest) (*reasoning.ExtractResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var next MockExtraction
	if len(m.script) > 0 {
		next = m.script[0]
		m.script = m.script[1:]
	}
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	if next.Result == nil {
		return &reasoning.ExtractResult{}, nil
	}
	return next.Result, nil
}

// Requests returns a copy of every request received so far.
func (m *MockExtractor) Requests() []reasoning.ExtractRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reasoning.ExtractRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockConflictDetector reports a conflict when the proposed text is listed in
// Conflicts.
type MockConflictDetector struct {
	mu        sync.Mutex
	conflicts map[string]bool
	fail      bool
	calls     []reasoning.ConflictRequest
}

func NewMockConflictDetector() *MockConflictDetector {
	return &MockConflictDetector{conflicts: make(map[string]bool)}
}

// SetConflict marks proposed as conflicting with whatever it is compared to.
func (m *MockConflictDetector) SetConflict(proposed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[proposed] = true
}

func (m *MockConflictDetector) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockConflictDetector) DetectConflict(_ context.Context, req reasoning.ConflictRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.fail {
		return false, ErrMockReasoning
	}
	return m.conflicts[req.Proposed], nil
}

// Calls returns a copy of every request received so far.
func (m *MockConflictDetector) Calls() []reasoning.ConflictRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reasoning.ConflictRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

var (
	_ reasoning.Extractor        = (*MockExtractor)(nil)
	_ reasoning.ConflictDetector = (*MockConflictDetector)(nil)
)
