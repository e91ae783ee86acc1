// Package taskqueue provides the in-memory work queue shared by the pipeline
// agents. Tasks are claimed atomically with Take and retired with Complete;
// listeners observe every enqueue and completion synchronously.
package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDrainTimeout is returned by Drain when the queue does not become idle in time.
var ErrDrainTimeout = errors.New("timed out waiting for task queue to drain")

type status int

const (
	statusPending status = iota
	statusTaken
)

type entry struct {
	task   Task
	status status
}

// EventType names a queue transition.
type EventType string

const (
	EventEnqueued  EventType = "task.enqueued"
	EventCompleted EventType = "task.completed"
)

// Event is delivered to subscribers on every transition.
type Event struct {
	Type EventType
	Task Task
}

// Listener receives queue events. Listeners run on the goroutine that caused
// the transition and must not block.
type Listener func(Event)

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Pending   int    `json:"pending"`
	Taken     int    `json:"taken"`
	Enqueued  uint64 `json:"enqueued"`
	Completed uint64 `json:"completed"`
}

// Queue is a FIFO of tasks with claim/complete semantics. The zero value is
// not usable; create one with New.
type Queue struct {
	mu      sync.Mutex
	order   []*entry
	byID    map[string]*entry
	pending int
	taken   int

	enqueued  uint64
	completed uint64

	// changed is closed and replaced on every transition so Drain can wait
	// without polling.
	changed chan struct{}

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	listenerSeq []uint64
	nextID      uint64

	now func() time.Time
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		byID:      make(map[string]*entry),
		changed:   make(chan struct{}),
		listeners: make(map[uint64]Listener),
		now:       time.Now,
	}
}

// Enqueue appends a pending task for the conversation and notifies
// subscribers. Payloads that fail validation are rejected with ErrInvalidTask.
func (q *Queue) Enqueue(conversationID string, payload Payload) (Task, error) {
	if conversationID == "" {
		return Task{}, fmt.Errorf("%w: empty conversation id", ErrInvalidTask)
	}
	if payload == nil {
		return Task{}, fmt.Errorf("%w: nil payload", ErrInvalidTask)
	}
	if err := payload.Validate(); err != nil {
		return Task{}, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	q.mu.Lock()
	task := Task{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Payload:        payload,
		EnqueuedAt:     q.now(),
	}
	e := &entry{task: task, status: statusPending}
	q.order = append(q.order, e)
	q.byID[task.ID] = e
	q.pending++
	q.enqueued++
	q.signalLocked()
	q.mu.Unlock()

	q.notify(Event{Type: EventEnqueued, Task: task})
	return task, nil
}

// Take claims the oldest pending task matching match. It returns false when
// nothing matches. A nil match accepts any task.
func (q *Queue) Take(match func(Task) bool) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.order {
		if e.status != statusPending {
			continue
		}
		if match != nil && !match(e.task) {
			continue
		}
		e.status = statusTaken
		q.pending--
		q.taken++
		return e.task, true
	}
	return Task{}, false
}

// Complete retires a taken task. It reports false when the task is unknown,
// still pending or already completed.
func (q *Queue) Complete(task Task) bool {
	q.mu.Lock()
	e, ok := q.byID[task.ID]
	if !ok || e.status != statusTaken {
		q.mu.Unlock()
		return false
	}

	delete(q.byID, task.ID)
	for i, o := range q.order {
		if o == e {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	q.taken--
	q.completed++
	q.signalLocked()
	q.mu.Unlock()

	q.notify(Event{Type: EventCompleted, Task: e.task})
	return true
}

// PendingCount returns the number of tasks waiting to be taken.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:   q.pending,
		Taken:     q.taken,
		Enqueued:  q.enqueued,
		Completed: q.completed,
	}
}

// Subscribe registers l for all future events and returns a function that
// removes it.
func (q *Queue) Subscribe(l Listener) (unsubscribe func()) {
	q.listenersMu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = l
	q.listenerSeq = append(q.listenerSeq, id)
	q.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.listenersMu.Lock()
			defer q.listenersMu.Unlock()
			delete(q.listeners, id)
			for i, v := range q.listenerSeq {
				if v == id {
					q.listenerSeq = append(q.listenerSeq[:i], q.listenerSeq[i+1:]...)
					break
				}
			}
		})
	}
}

// Drain blocks until no task is pending or taken. It returns ErrDrainTimeout
// once timeout elapses, or the context's error if ctx is done first.
func (q *Queue) Drain(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		idle := q.pending == 0 && q.taken == 0
		changed := q.changed
		q.mu.Unlock()

		if idle {
			return nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return ErrDrainTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) signalLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func (q *Queue) notify(ev Event) {
	q.listenersMu.RLock()
	ls := make([]Listener, 0, len(q.listenerSeq))
	for _, id := range q.listenerSeq {
		ls = append(ls, q.listeners[id])
	}
	q.listenersMu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}
