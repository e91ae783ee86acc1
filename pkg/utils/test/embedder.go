package testutils

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	mu    sync.Mutex
	calls map[string]int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		calls:      make(map[string]int),
	}
}

// Set registers the vector returned for text.
func (m *MockEmbedder) Set(text string, v []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeddings[text] = v
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[text]++

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return slices.Clone(emb), nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// Calls returns how many times text was embedded.
func (m *MockEmbedder) Calls(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

func (m *MockEmbedder) Close() error {
	return nil
}
