// Package suggest holds the bounded queue of published, unconfirmed actions
// shown to the user: one current entry plus a remainder count.
package suggest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// DefaultCapacity bounds the backlog behind the current entry.
const DefaultCapacity = 3

// ErrNotCurrent is returned when a decision targets an entry that is not the
// current one.
var ErrNotCurrent = errors.New("suggestion is not current")

// Entry is one suggested action awaiting a decision.
type Entry struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Title          string           `json:"title"`
	DueWindow      memory.DueWindow `json:"due_window"`
}

// View is what the UI renders: the current entry and how many wait behind it.
type View struct {
	Current   *Entry `json:"current"`
	Remaining int    `json:"remaining"`
}

// DecisionQueue receives user decisions. *taskqueue.Queue satisfies it.
// Enqueue is called with the suggestion lock held and must not call back
// into the Queue.
type DecisionQueue interface {
	Enqueue(conversationID string, payload taskqueue.Payload) (taskqueue.Task, error)
}

// Config configures a suggestion queue.
type Config struct {
	// Capacity bounds the backlog behind the current entry. Zero means
	// DefaultCapacity.
	Capacity int

	Decisions DecisionQueue
	Logger    *slog.Logger
}

// Queue is safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	evicted  uint64

	decisions DecisionQueue
	logger    *slog.Logger

	listenersMu sync.RWMutex
	listeners   map[uint64]func(View)
	nextID      uint64
}

// New creates an empty suggestion queue.
func New(c Config) *Queue {
	capacity := c.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		capacity:  capacity,
		decisions: c.Decisions,
		logger:    logger,
		listeners: make(map[uint64]func(View)),
	}
}

// Push appends a suggestion. When the backlog behind the current entry grows
// past capacity the oldest entry is evicted.
func (q *Queue) Push(conversationID, title string, due memory.DueWindow) Entry {
	e := Entry{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Title:          title,
		DueWindow:      due,
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	var evicted *Entry
	if len(q.entries)-1 > q.capacity {
		old := q.entries[0]
		evicted = &old
		q.entries = q.entries[1:]
		q.evicted++
	}
	view := q.viewLocked()
	q.mu.Unlock()

	if evicted != nil {
		q.logger.Debug("evicted suggestion",
			"suggestion_id", evicted.ID,
			"conversation_id", evicted.ConversationID,
			"title", evicted.Title,
		)
	}
	q.notify(view)
	return e
}

// View returns the current entry and the remainder count.
func (q *Queue) View() View {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.viewLocked()
}

// Entries returns every visible entry, oldest first.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Evicted returns how many entries were dropped for capacity.
func (q *Queue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}

// Accept resolves the current entry as accepted.
func (q *Queue) Accept(id string) error {
	return q.decide(id, true)
}

// Dismiss resolves the current entry as rejected.
func (q *Queue) Dismiss(id string) error {
	return q.decide(id, false)
}

func (q *Queue) decide(id string, accepted bool) error {
	q.mu.Lock()
	if len(q.entries) == 0 || q.entries[0].ID != id {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotCurrent, id)
	}
	e := q.entries[0]

	// The entry stays current until its decision is queued.
	if q.decisions != nil {
		_, err := q.decisions.Enqueue(e.ConversationID, taskqueue.ActionUserDecision{
			Decision: taskqueue.Decision{
				Title:     e.Title,
				DueWindow: e.DueWindow,
				Accepted:  accepted,
			},
		})
		if err != nil {
			q.mu.Unlock()
			return fmt.Errorf("enqueue decision: %w", err)
		}
	}

	q.entries = q.entries[1:]
	view := q.viewLocked()
	q.mu.Unlock()

	q.notify(view)
	return nil
}

// Subscribe registers fn for every change and returns a function that
// removes it. fn runs on the goroutine that caused the change.
func (q *Queue) Subscribe(fn func(View)) (unsubscribe func()) {
	q.listenersMu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	q.listenersMu.Unlock()

	return func() {
		q.listenersMu.Lock()
		defer q.listenersMu.Unlock()
		delete(q.listeners, id)
	}
}

func (q *Queue) viewLocked() View {
	if len(q.entries) == 0 {
		return View{}
	}
	current := q.entries[0]
	return View{Current: &current, Remaining: len(q.entries) - 1}
}

func (q *Queue) notify(v View) {
	q.listenersMu.RLock()
	fns := make([]func(View), 0, len(q.listeners))
	for _, fn := range q.listeners {
		fns = append(fns, fn)
	}
	q.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
