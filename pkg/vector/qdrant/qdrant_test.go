package qdrant_test

import (
	"context"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/vector"
	"github.com/papercomputeco/gleaner/pkg/vector/qdrant"
)

// qdrantHost returns the Qdrant host from environment or skips the test.
func qdrantHost() string {
	host := os.Getenv("GLEANER_TEST_QDRANT_HOST")
	if host == "" {
		Skip("GLEANER_TEST_QDRANT_HOST not set, skipping Qdrant tests")
	}
	return host
}

var _ = Describe("Driver", func() {
	It("requires dimensions", func() {
		_, err := qdrant.NewDriver(context.Background(), qdrant.Config{})
		Expect(err).To(MatchError(ContainSubstring("dimensions")))
	})

	Context("against a live server", func() {
		var (
			driver *qdrant.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = qdrant.NewDriver(ctx, qdrant.Config{
				Host:       qdrantHost(),
				Collection: "gleaner_test_" + uuid.NewString()[:8],
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if driver != nil {
				driver.Close()
			}
		})

		It("round-trips documents", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "claim-1", Kind: vector.KindClaim, ConversationID: "conv-1", Embedding: []float32{1, 0, 0}},
				{ID: "action-1", Kind: vector.KindAction, ConversationID: "conv-1", Embedding: []float32{0, 1, 0}},
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0.1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("claim-1"))
			Expect(results[0].Kind).To(Equal(vector.KindClaim))

			docs, err := driver.Get(ctx, []string{"action-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(HaveLen(3))

			Expect(driver.Delete(ctx, []string{"action-1"})).To(Succeed())
			docs, err = driver.Get(ctx, []string{"action-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})
})
