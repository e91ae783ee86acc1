package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/gleaner/pkg/eventstream"
)

// ErrMockPublisher is returned by MockPublisher when Fail is set.
var ErrMockPublisher = errors.New("mock publisher failure")

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	fail   bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return ErrMockPublisher
	}
	m.events = append(m.events, event)
	return nil
}

// Types returns the event types published so far, in order.
func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// Events returns the events published so far.
func (m *MockPublisher) Events() []*eventstream.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
