package cached_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pkg/embeddings/cached"
	testutils "github.com/papercomputeco/gleaner/pkg/utils/test"
)

var _ = Describe("Embedder", func() {
	var (
		inner *testutils.MockEmbedder
		e     *cached.Embedder
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		inner = testutils.NewMockEmbedder()
		inner.Embeddings["likes tea"] = []float32{1, 0}
		e = cached.NewEmbedder(inner, 0)
	})

	It("calls the wrapped embedder once per text", func() {
		first, err := e.Embed(ctx, "likes tea")
		Expect(err).NotTo(HaveOccurred())
		second, err := e.Embed(ctx, "likes tea")
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal(second))
		Expect(inner.Calls("likes tea")).To(Equal(1))
		Expect(e.Len()).To(Equal(1))
	})

	It("does not cache failures", func() {
		inner.FailOn = "broken"
		_, err := e.Embed(ctx, "broken")
		Expect(err).To(HaveOccurred())
		Expect(e.Len()).To(BeZero())
	})

	It("hands out copies", func() {
		v, err := e.Embed(ctx, "likes tea")
		Expect(err).NotTo(HaveOccurred())
		v[0] = 42

		again, err := e.Embed(ctx, "likes tea")
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0]).To(Equal(float32(1)))
	})
})
