package agents_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/agents"
	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	testutils "github.com/papercomputeco/gleaner/pkg/utils/test"
)

var _ = Describe("ValidationAgent", func() {
	var (
		ctx       context.Context
		q         *taskqueue.Queue
		mem       *testutils.MockMemoryDriver
		embedder  *testutils.MockEmbedder
		conflicts *testutils.MockConflictDetector
		events    *testutils.MockPublisher
		agent     *agents.ValidationAgent
	)

	BeforeEach(func() {
		ctx = context.Background()
		q = taskqueue.New()
		mem = testutils.NewMockMemoryDriver()
		embedder = testutils.NewMockEmbedder()
		conflicts = testutils.NewMockConflictDetector()
		events = testutils.NewMockPublisher()

		var err error
		agent, err = agents.NewValidationAgent(agents.ValidationConfig{
			Embedder:     embedder,
			Memory:       mem,
			Conflicts:    conflicts,
			Events:       events,
			PollInterval: testPoll,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(agent.Start(q)).To(Succeed())
	})

	AfterEach(func() {
		agent.Stop()
	})

	persistClaim := func(text string, emb []float32, createdAt time.Time) string {
		id, err := mem.UpsertClaim(ctx, memory.Claim{Text: text, Confidence: 0.9, Embedding: emb, CreatedAt: createdAt})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	proposeClaim := func(text string) {
		_, err := q.Enqueue("conv-1", taskqueue.ClaimProposed{Claim: memory.Claim{
			Text:       text,
			Confidence: 0.8,
			Status:     memory.ClaimInferred,
		}})
		Expect(err).NotTo(HaveOccurred())
	}

	proposeAction := func(title string) {
		_, err := q.Enqueue("conv-1", taskqueue.ActionProposed{Action: memory.Action{
			Title:     title,
			DueWindow: memory.DueThisWeek,
			Source:    memory.SourceConversation,
		}})
		Expect(err).NotTo(HaveOccurred())
	}

	It("validates thresholds", func() {
		_, err := agents.NewValidationAgent(agents.ValidationConfig{
			Embedder:           embedder,
			Memory:             mem,
			DuplicateThreshold: 0.5,
			ConflictThreshold:  0.8,
		})
		Expect(err).To(HaveOccurred())

		_, err = agents.NewValidationAgent(agents.ValidationConfig{Memory: mem})
		Expect(err).To(HaveOccurred())
	})

	It("accepts a claim when nothing is persisted", func() {
		embedder.Set("Lives in Lisbon", []float32{1, 0, 0})
		proposeClaim("Lives in Lisbon")

		Eventually(completed(q)).Should(Equal(uint64(1)))

		validated := takeAll(q, taskqueue.KindClaimValidated)
		Expect(validated).To(HaveLen(1))
		claim := validated[0].Payload.(taskqueue.ClaimValidated).Claim
		Expect(claim.ID).NotTo(BeEmpty())
		Expect(claim.Embedding).To(Equal([]float32{1, 0, 0}))
		Expect(conflicts.Calls()).To(BeEmpty())
	})

	It("drops a near duplicate of a persisted claim", func() {
		persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
		embedder.Set("Lives in lisbon, Portugal", []float32{0.99, 0.01, 0})
		proposeClaim("Lives in lisbon, Portugal")

		Eventually(completed(q)).Should(Equal(uint64(1)))
		Expect(q.PendingCount()).To(BeZero())
		Expect(conflicts.Calls()).To(BeEmpty())
	})

	It("flags a soft conflict for review and still emits the claim", func() {
		existingID := persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
		embedder.Set("Lives in Porto", []float32{0.8, 0.6, 0})
		conflicts.SetConflict("Lives in Porto")
		proposeClaim("Lives in Porto")

		Eventually(completed(q)).Should(Equal(uint64(1)))
		Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))

		calls := conflicts.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Kind).To(Equal("claim"))
		Expect(calls[0].Existing).To(Equal("Lives in Lisbon"))

		reviews, err := mem.ListReviewItems(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(HaveLen(1))
		Expect(reviews[0].Status).To(Equal(memory.ReviewPending))
		Expect(reviews[0].ClaimIDs).To(ConsistOf(existingID))
		Expect(events.Types()).To(ConsistOf("gleaner.review.created"))
	})

	It("emits without review when a related claim does not conflict", func() {
		persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
		embedder.Set("Works in Lisbon", []float32{0.8, 0.6, 0})
		proposeClaim("Works in Lisbon")

		Eventually(completed(q)).Should(Equal(uint64(1)))
		Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
		Expect(conflicts.Calls()).To(HaveLen(1))

		reviews, err := mem.ListReviewItems(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(BeEmpty())
	})

	It("skips the conflict check for unrelated claims", func() {
		persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
		embedder.Set("Has a cat", []float32{0, 1, 0})
		proposeClaim("Has a cat")

		Eventually(completed(q)).Should(Equal(uint64(1)))
		Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
		Expect(conflicts.Calls()).To(BeEmpty())
	})

	It("breaks similarity ties in favour of the newest item", func() {
		base := time.Unix(1700000000, 0)
		persistClaim("Lives in Lisbon", []float32{1, 0, 0}, base)
		newest := persistClaim("Lives in Lisbon now", []float32{1, 0, 0}, base.Add(time.Hour))
		persistClaim("Lived in Lisbon", []float32{1, 0, 0}, base.Add(-time.Hour))

		embedder.Set("Lives in Porto", []float32{0.8, 0.6, 0})
		conflicts.SetConflict("Lives in Porto")
		proposeClaim("Lives in Porto")

		Eventually(completed(q)).Should(Equal(uint64(1)))

		reviews, err := mem.ListReviewItems(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(HaveLen(1))
		Expect(reviews[0].ClaimIDs).To(ConsistOf(newest))
	})

	It("embeds persisted claims that were stored without an embedding", func() {
		persistClaim("Likes tea", nil, time.Time{})
		embedder.Set("Likes tea", []float32{0, 0, 1})
		embedder.Set("Likes tea a lot", []float32{0, 0.05, 1})
		proposeClaim("Likes tea a lot")

		Eventually(completed(q)).Should(Equal(uint64(1)))
		Expect(q.PendingCount()).To(BeZero())
		Expect(embedder.Calls("Likes tea")).To(Equal(1))
	})

	It("compares against accepted claims that are not yet persisted", func() {
		embedder.Set("Likes tea", []float32{0, 0, 1})
		embedder.Set("Really likes tea", []float32{0, 0.02, 1})
		proposeClaim("Likes tea")
		proposeClaim("Really likes tea")

		Eventually(completed(q)).Should(Equal(uint64(2)))
		Expect(agent.InFlight()).To(Equal(1))

		validated := takeAll(q, taskqueue.KindClaimValidated)
		Expect(validated).To(HaveLen(1))
		Expect(validated[0].Payload.(taskqueue.ClaimValidated).Claim.Text).To(Equal("Likes tea"))

		Expect(agent.InFlight()).To(BeZero())
	})

	Context("failing open", func() {
		It("emits the claim when embedding fails", func() {
			persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
			embedder.FailOn = "Lives in Porto"
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
		})

		It("emits the claim when listing fails", func() {
			mem.SetFailList(true)
			embedder.Set("Lives in Porto", []float32{0.8, 0.6, 0})
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
		})

		It("emits the claim without review when the conflict check fails", func() {
			persistClaim("Lives in Lisbon", []float32{1, 0, 0}, time.Time{})
			embedder.Set("Lives in Porto", []float32{0.8, 0.6, 0})
			conflicts.SetConflict("Lives in Porto")
			conflicts.SetFail(true)
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))

			reviews, err := mem.ListReviewItems(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(BeEmpty())
		})
	})

	Context("actions", func() {
		persistAction := func(title string, emb []float32) string {
			id, err := mem.CreateAction(ctx, memory.Action{
				Title:     title,
				DueWindow: memory.DueToday,
				Source:    memory.SourceConversation,
				Status:    memory.ActionSuggested,
				Embedding: emb,
			})
			Expect(err).NotTo(HaveOccurred())
			return id
		}

		It("drops a duplicate action", func() {
			persistAction("Book dentist", []float32{1, 0, 0})
			embedder.Set("Book the dentist", []float32{1, 0.01, 0})
			proposeAction("Book the dentist")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(q.PendingCount()).To(BeZero())
		})

		It("flags a conflicting action with the matched action ID", func() {
			existingID := persistAction("Cancel dentist", []float32{1, 0, 0})
			embedder.Set("Book dentist", []float32{0.75, 0.66, 0})
			conflicts.SetConflict("Book dentist")
			proposeAction("Book dentist")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindActionValidated)).To(HaveLen(1))

			reviews, err := mem.ListReviewItems(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].ActionIDs).To(ConsistOf(existingID))
			Expect(conflicts.Calls()[0].Kind).To(Equal("action"))
		})

		It("references an accepted action that is not yet persisted", func() {
			embedder.Set("Cancel dentist", []float32{1, 0, 0})
			embedder.Set("Book dentist", []float32{0.75, 0.66, 0})
			conflicts.SetConflict("Book dentist")
			proposeAction("Cancel dentist")
			proposeAction("Book dentist")

			Eventually(completed(q)).Should(Equal(uint64(2)))

			validated := takeAll(q, taskqueue.KindActionValidated)
			Expect(validated).To(HaveLen(2))
			first := validated[0].Payload.(taskqueue.ActionValidated).Action
			Expect(first.Title).To(Equal("Cancel dentist"))
			Expect(first.ID).NotTo(BeEmpty())

			reviews, err := mem.ListReviewItems(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].ActionIDs).To(ConsistOf(first.ID))
			Expect(reviews[0].ClaimIDs).To(BeEmpty())
		})

		It("does not compare actions with claims", func() {
			persistClaim("Book dentist", []float32{1, 0, 0}, time.Time{})
			embedder.Set("Book dentist", []float32{1, 0, 0})
			proposeAction("Book dentist")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindActionValidated)).To(HaveLen(1))
		})
	})

	Context("threshold edges", func() {
		restart := func(duplicate, conflict float64) {
			agent.Stop()
			var err error
			agent, err = agents.NewValidationAgent(agents.ValidationConfig{
				Embedder:           embedder,
				Memory:             mem,
				Conflicts:          conflicts,
				Events:             events,
				DuplicateThreshold: duplicate,
				ConflictThreshold:  conflict,
				PollInterval:       testPoll,
				Logger:             logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.Start(q)).To(Succeed())
		}

		// [1,0,0,0] against [1,1,1,1] scores exactly 0.5.
		BeforeEach(func() {
			persistClaim("Lives in Lisbon", []float32{1, 0, 0, 0}, time.Time{})
			embedder.Set("Lives in Porto", []float32{1, 1, 1, 1})
			conflicts.SetConflict("Lives in Porto")
		})

		It("drops a claim scoring exactly the duplicate threshold", func() {
			restart(0.5, 0.5)
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(q.PendingCount()).To(BeZero())
			Expect(conflicts.Calls()).To(BeEmpty())
		})

		It("checks for conflict at exactly the conflict threshold", func() {
			restart(0.9, 0.5)
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
			Expect(conflicts.Calls()).To(HaveLen(1))

			reviews, err := mem.ListReviewItems(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
		})

		It("accepts without a check just below the conflict threshold", func() {
			restart(0.9, 0.51)
			proposeClaim("Lives in Porto")

			Eventually(completed(q)).Should(Equal(uint64(1)))
			Expect(takeAll(q, taskqueue.KindClaimValidated)).To(HaveLen(1))
			Expect(conflicts.Calls()).To(BeEmpty())
		})
	})
})
