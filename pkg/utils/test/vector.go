package testutils

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/gleaner/pkg/vector"
)

// ErrMockVector is returned by MockVectorDriver when Fail is set.
var ErrMockVector = errors.New("mock vector failure")

// MockVectorDriver is an in-memory vector index that scores with cosine
// similarity.
type MockVectorDriver struct {
	mu   sync.Mutex
	docs map[string]vector.Document

	// Fail causes every call to error.
	Fail bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{docs: make(map[string]vector.Document)}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrMockVector
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrMockVector
	}

	results := make([]vector.QueryResult, 0, len(m.docs))
	for _, d := range m.docs {
		results = append(results, vector.QueryResult{
			Document: d,
			Score:    float32(vector.CosineSimilarity(embedding, d.Embedding)),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrMockVector
	}
	var docs []vector.Document
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

// Len returns the number of indexed documents.
func (m *MockVectorDriver) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
