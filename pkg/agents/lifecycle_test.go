package agents_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/papercomputeco/gleaner/pkg/agents"
	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	testutils "github.com/papercomputeco/gleaner/pkg/utils/test"
)

var _ = Describe("agent lifecycle", func() {
	It("leaves no goroutines behind after Stop", func() {
		baseline := goleak.IgnoreCurrent()

		q := taskqueue.New()
		mem := testutils.NewMockMemoryDriver()

		extraction := agents.NewExtractionAgent(agents.ExtractionConfig{
			Extractor:    testutils.NewMockExtractor(),
			PollInterval: testPoll,
			Logger:       logger.Nop(),
		})
		validation, err := agents.NewValidationAgent(agents.ValidationConfig{
			Embedder:     testutils.NewMockEmbedder(),
			Memory:       mem,
			PollInterval: testPoll,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		publish, err := agents.NewPublishAgent(agents.PublishConfig{
			Memory:       mem,
			PollInterval: testPoll,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(extraction.Start(q)).To(Succeed())
		Expect(validation.Start(q)).To(Succeed())
		Expect(publish.Start(q)).To(Succeed())

		_, err = q.Enqueue("conv-1", taskqueue.TurnIngest{Turn: taskqueue.Turn{Text: "hello"}})
		Expect(err).NotTo(HaveOccurred())
		Eventually(completed(q)).Should(Equal(uint64(1)))

		publish.Stop()
		validation.Stop()
		extraction.Stop()

		Expect(goleak.Find(baseline)).To(Succeed())
	})

	It("treats Stop on a stopped agent as a no-op", func() {
		agent := agents.NewExtractionAgent(agents.ExtractionConfig{Logger: logger.Nop()})
		agent.Stop()
		Expect(agent.Running()).To(BeFalse())
	})

	It("refuses a nil queue", func() {
		agent := agents.NewExtractionAgent(agents.ExtractionConfig{Logger: logger.Nop()})
		Expect(agent.Start(nil)).To(HaveOccurred())
	})
})
