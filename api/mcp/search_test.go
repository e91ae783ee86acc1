package mcp

import (
	"context"
	"errors"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/memory"
	testutils "github.com/papercomputeco/gleaner/pkg/utils/test"
)

type fakeSearcher struct {
	results []pipeline.SearchResult
	err     error

	query string
	k     int
	kind  string
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int, kind string) ([]pipeline.SearchResult, error) {
	f.query, f.k, f.kind = query, k, kind
	return f.results, f.err
}

var _ = Describe("Claims tools", func() {
	var (
		ctx      context.Context
		searcher *fakeSearcher
		mem      *testutils.MockMemoryDriver
		server   *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		searcher = &fakeSearcher{}
		mem = testutils.NewMockMemoryDriver()

		var err error
		server, err = NewServer(Config{Searcher: searcher, Memory: mem, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	seed := func(conversationID, text string, status memory.ClaimStatus) string {
		id, err := mem.UpsertClaim(ctx, memory.Claim{Text: text, Confidence: 0.8, Status: status, ConversationID: conversationID})
		Expect(err).NotTo(HaveOccurred())
		Expect(mem.AppendConversationClaim(ctx, conversationID, id)).To(Succeed())
		return id
	}

	Describe("claims_search", func() {
		It("searches claims only by default", func() {
			searcher.results = []pipeline.SearchResult{{Kind: "claim", ID: "c1", Text: "Likes jazz", Score: 0.93}}

			res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "music"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Text).To(Equal("Likes jazz"))

			Expect(searcher.query).To(Equal("music"))
			Expect(searcher.k).To(Equal(pipeline.DefaultSearchLimit))
			Expect(searcher.kind).To(Equal("claim"))
		})

		It("widens the search to actions on request", func() {
			_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "music", TopK: 2, IncludeActions: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(searcher.k).To(Equal(2))
			Expect(searcher.kind).To(BeEmpty())
		})

		It("returns an empty result list rather than null", func() {
			res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "nothing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Results).NotTo(BeNil())
			Expect(res.Content[0].(*sdk.TextContent).Text).To(ContainSubstring(`"results":[]`))
		})

		It("reports failures as tool errors", func() {
			searcher.err = errors.New("embedder offline")

			res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "music"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(res.Content[0].(*sdk.TextContent).Text).To(ContainSubstring("embedder offline"))
		})

		It("requires a query", func() {
			res, _, err := server.handleSearch(ctx, nil, SearchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("claims_list", func() {
		BeforeEach(func() {
			seed("conv-a", "Lives in Porto", memory.ClaimInferred)
			seed("conv-a", "Speaks Portuguese", memory.ClaimConfirmed)
			seed("conv-b", "Has two kids", memory.ClaimInferred)
		})

		It("lists every claim newest first", func() {
			_, out, err := server.handleList(ctx, nil, ListInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(3))
			Expect(out.Claims[0].Text).To(Equal("Has two kids"))
			Expect(out.Claims[2].Text).To(Equal("Lives in Porto"))
		})

		It("filters by status", func() {
			_, out, err := server.handleList(ctx, nil, ListInput{Status: "inferred"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(2))
		})

		It("filters by conversation and status together", func() {
			_, out, err := server.handleList(ctx, nil, ListInput{ConversationID: "conv-a", Status: "confirmed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Claims).To(HaveLen(1))
			Expect(out.Claims[0].Text).To(Equal("Speaks Portuguese"))
		})

		It("applies the limit", func() {
			_, out, err := server.handleList(ctx, nil, ListInput{Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Claims).To(HaveLen(1))
			Expect(out.Claims[0].Text).To(Equal("Has two kids"))
		})

		It("rejects unknown statuses", func() {
			res, _, err := server.handleList(ctx, nil, ListInput{Status: "probable"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("reports storage failures as tool errors", func() {
			mem.SetFailList(true)

			res, _, err := server.handleList(ctx, nil, ListInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("over an MCP session", func() {
		It("exposes both tools to a client", func() {
			serverTransport, clientTransport := sdk.NewInMemoryTransports()

			serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
			Expect(err).NotTo(HaveOccurred())
			defer serverSession.Close()

			client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
			clientSession, err := client.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
			defer clientSession.Close()

			tools, err := clientSession.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(tools.Tools))
			for _, t := range tools.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("claims_search", "claims_list"))

			seed("conv-a", "Plays chess", memory.ClaimInferred)
			res, err := clientSession.CallTool(ctx, &sdk.CallToolParams{
				Name:      "claims_list",
				Arguments: map[string]any{"conversation_id": "conv-a"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(res.Content[0].(*sdk.TextContent).Text).To(ContainSubstring("Plays chess"))
		})
	})
})
