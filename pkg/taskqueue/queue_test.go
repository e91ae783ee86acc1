package taskqueue_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

func turn(text string) taskqueue.TurnIngest {
	return taskqueue.TurnIngest{Turn: taskqueue.Turn{Speaker: "user", Text: text}}
}

func isTurn(t taskqueue.Task) bool {
	return t.Kind() == taskqueue.KindTurnIngest
}

var _ = Describe("Queue", func() {
	var q *taskqueue.Queue

	BeforeEach(func() {
		q = taskqueue.New()
	})

	Describe("Enqueue", func() {
		It("assigns an id and counts the task as pending", func() {
			task, err := q.Enqueue("conv-1", turn("hello"))
			Expect(err).NotTo(HaveOccurred())
			Expect(task.ID).NotTo(BeEmpty())
			Expect(task.ConversationID).To(Equal("conv-1"))
			Expect(task.Kind()).To(Equal(taskqueue.KindTurnIngest))
			Expect(q.PendingCount()).To(Equal(1))
		})

		It("rejects invalid payloads", func() {
			_, err := q.Enqueue("conv-1", nil)
			Expect(errors.Is(err, taskqueue.ErrInvalidTask)).To(BeTrue())

			_, err = q.Enqueue("", turn("hello"))
			Expect(errors.Is(err, taskqueue.ErrInvalidTask)).To(BeTrue())

			_, err = q.Enqueue("conv-1", turn("   "))
			Expect(errors.Is(err, taskqueue.ErrInvalidTask)).To(BeTrue())

			_, err = q.Enqueue("conv-1", taskqueue.ClaimProposed{Claim: memory.Claim{Text: "x", Confidence: 1.5}})
			Expect(errors.Is(err, taskqueue.ErrInvalidTask)).To(BeTrue())

			Expect(q.PendingCount()).To(BeZero())
		})
	})

	Describe("Take", func() {
		It("returns the oldest matching task", func() {
			_, err := q.Enqueue("conv-1", taskqueue.ActionUserDecision{Decision: taskqueue.Decision{Title: "x", DueWindow: memory.DueToday}})
			Expect(err).NotTo(HaveOccurred())
			first, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			_, err = q.Enqueue("conv-1", turn("two"))
			Expect(err).NotTo(HaveOccurred())

			got, ok := q.Take(isTurn)
			Expect(ok).To(BeTrue())
			Expect(got.ID).To(Equal(first.ID))
		})

		It("returns false when nothing matches", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())

			_, ok := q.Take(func(t taskqueue.Task) bool { return t.Kind() == taskqueue.KindClaimProposed })
			Expect(ok).To(BeFalse())
		})

		It("excludes taken tasks from the pending count", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())

			_, ok := q.Take(nil)
			Expect(ok).To(BeTrue())
			Expect(q.PendingCount()).To(BeZero())
			Expect(q.Stats().Taken).To(Equal(1))

			_, ok = q.Take(nil)
			Expect(ok).To(BeFalse())
		})

		It("never hands the same task to concurrent callers", func() {
			const n = 200
			for range n {
				_, err := q.Enqueue("conv-1", turn("t"))
				Expect(err).NotTo(HaveOccurred())
			}

			var (
				mu   sync.Mutex
				seen = map[string]int{}
				wg   sync.WaitGroup
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						task, ok := q.Take(nil)
						if !ok {
							return
						}
						mu.Lock()
						seen[task.ID]++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Expect(seen).To(HaveLen(n))
			for _, count := range seen {
				Expect(count).To(Equal(1))
			}
		})
	})

	Describe("Complete", func() {
		It("is idempotent", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			task, _ := q.Take(nil)

			Expect(q.Complete(task)).To(BeTrue())
			Expect(q.Complete(task)).To(BeFalse())
			Expect(q.Stats()).To(Equal(taskqueue.Stats{Enqueued: 1, Completed: 1}))
		})

		It("ignores tasks that were never taken", func() {
			task, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())

			Expect(q.Complete(task)).To(BeFalse())
			Expect(q.PendingCount()).To(Equal(1))
		})

		It("never hands out a completed task again", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			task, _ := q.Take(nil)
			q.Complete(task)

			_, ok := q.Take(nil)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Subscribe", func() {
		It("delivers enqueue and complete events in order", func() {
			var events []taskqueue.EventType
			unsubscribe := q.Subscribe(func(ev taskqueue.Event) {
				events = append(events, ev.Type)
			})

			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			task, _ := q.Take(nil)
			q.Complete(task)
			q.Complete(task)

			Expect(events).To(Equal([]taskqueue.EventType{taskqueue.EventEnqueued, taskqueue.EventCompleted}))

			unsubscribe()
			_, err = q.Enqueue("conv-1", turn("two"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
		})

		It("allows listeners to enqueue", func() {
			q.Subscribe(func(ev taskqueue.Event) {
				if ev.Type == taskqueue.EventCompleted && ev.Task.Kind() == taskqueue.KindTurnIngest {
					_, _ = q.Enqueue(ev.Task.ConversationID, taskqueue.ClaimProposed{Claim: memory.Claim{Text: "follow-up"}})
				}
			})

			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			task, _ := q.Take(nil)
			q.Complete(task)

			Expect(q.PendingCount()).To(Equal(1))
		})
	})

	Describe("Drain", func() {
		It("returns immediately when idle", func() {
			Expect(q.Drain(context.Background(), time.Millisecond)).To(Succeed())
		})

		It("waits for taken tasks to complete", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())
			task, _ := q.Take(nil)

			go func() {
				defer GinkgoRecover()
				time.Sleep(20 * time.Millisecond)
				Expect(q.Complete(task)).To(BeTrue())
			}()

			Expect(q.Drain(context.Background(), 2*time.Second)).To(Succeed())
		})

		It("times out when work remains", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())

			err = q.Drain(context.Background(), 10*time.Millisecond)
			Expect(errors.Is(err, taskqueue.ErrDrainTimeout)).To(BeTrue())
		})

		It("returns the context error when cancelled", func() {
			_, err := q.Enqueue("conv-1", turn("one"))
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(q.Drain(ctx, time.Minute)).To(MatchError(context.Canceled))
		})
	})
})
