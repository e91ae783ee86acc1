// Package agents implements the pipeline stages that consume the task queue:
// extraction, validation and publishing. Each agent runs one or more lanes;
// a lane takes matching tasks one at a time, oldest first, and always
// completes what it takes.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// DefaultPollInterval is how often an idle lane re-checks the queue when no
// wake signal arrives.
const DefaultPollInterval = 250 * time.Millisecond

// ErrAlreadyRunning is returned by Start on a running agent.
var ErrAlreadyRunning = errors.New("agent already running")

type lane struct {
	name   string
	match  func(taskqueue.Task) bool
	handle func(ctx context.Context, q *taskqueue.Queue, task taskqueue.Task)
}

func kinds(ks ...taskqueue.Kind) func(taskqueue.Task) bool {
	return func(t taskqueue.Task) bool {
		for _, k := range ks {
			if t.Kind() == k {
				return true
			}
		}
		return false
	}
}

// runner owns the goroutines of one agent. Start and Stop may be called from
// any goroutine.
type runner struct {
	agent    string
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

func newRunner(agent string, interval time.Duration, logger *slog.Logger) runner {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return runner{
		agent:    agent,
		interval: interval,
		logger:   logger.With("agent", agent),
	}
}

// start launches one goroutine per lane. onEvent, when set, observes every
// queue event after the lanes' wake signals.
func (r *runner) start(q *taskqueue.Queue, lanes []lane, onEvent taskqueue.Listener) error {
	if q == nil {
		return fmt.Errorf("%s agent: nil task queue", r.agent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("%s agent: %w", r.agent, ErrAlreadyRunning)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wakes := make([]chan struct{}, len(lanes))
	for i := range lanes {
		wakes[i] = make(chan struct{}, 1)
	}

	r.cancel = cancel
	r.unsubscribe = q.Subscribe(func(ev taskqueue.Event) {
		if ev.Type == taskqueue.EventEnqueued {
			for i, l := range lanes {
				if l.match(ev.Task) {
					select {
					case wakes[i] <- struct{}{}:
					default:
					}
				}
			}
		}
		if onEvent != nil {
			onEvent(ev)
		}
	})

	r.wg.Add(len(lanes))
	for i, l := range lanes {
		go r.run(ctx, q, l, wakes[i])
	}

	r.logger.Debug("agent started", "lanes", len(lanes))
	return nil
}

// stop cancels polling and waits for in-flight tasks to finish. It reports
// whether the agent was running.
func (r *runner) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return false
	}

	r.cancel()
	r.wg.Wait()
	r.unsubscribe()

	r.cancel = nil
	r.unsubscribe = nil

	r.logger.Debug("agent stopped")
	return true
}

func (r *runner) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *runner) run(ctx context.Context, q *taskqueue.Queue, l lane, wake <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for ctx.Err() == nil {
			task, ok := q.Take(l.match)
			if !ok {
				break
			}
			r.process(ctx, q, l, task)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
	}
}

// process runs one task to completion. The handler gets a context detached
// from the loop's cancellation so Stop never interrupts a task mid-flight.
func (r *runner) process(ctx context.Context, q *taskqueue.Queue, l lane, task taskqueue.Task) {
	defer q.Complete(task)
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("task handler panicked",
				"lane", l.name,
				"task_id", task.ID,
				"kind", task.Kind(),
				"panic", p,
				"stack", string(debug.Stack()),
			)
		}
	}()

	l.handle(context.WithoutCancel(ctx), q, task)
}
