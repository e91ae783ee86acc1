package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/api/mcp"
	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/logger"
	testutils "github.com/papercomputeco/gleaner/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var (
		p   *pipeline.Pipeline
		mem *testutils.MockMemoryDriver
	)

	BeforeEach(func() {
		mem = testutils.NewMockMemoryDriver()

		var err error
		p, err = pipeline.New(pipeline.Config{
			Memory:   mem,
			Embedder: testutils.NewMockEmbedder(),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the searcher is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Memory: mem, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("searcher is required")))
		})

		It("returns an error when the memory driver is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Searcher: p, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("memory driver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Searcher: p, Memory: mem})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("accepts a pipeline as the searcher and returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Searcher: p, Memory: p.Memory(), Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("builds an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
