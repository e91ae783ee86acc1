package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

var (
	searchToolName    = "claims_search"
	searchDescription = "Search the facts and follow-up actions gleaned from past conversations using semantic search. Returns the most similar claims (and optionally actions) to the query text."
)

// SearchInput represents the input arguments for the claims_search tool.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"the search query text"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
	IncludeActions bool   `json:"include_actions,omitempty" jsonschema:"also search follow-up actions"`
}

// SearchOutput represents the output of the claims_search tool.
type SearchOutput struct {
	Query   string                  `json:"query"`
	Results []pipeline.SearchResult `json:"results"`
	Count   int                     `json:"count"`
}

// handleSearch processes a claims_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = pipeline.DefaultSearchLimit
	}

	kind := vector.KindClaim
	if input.IncludeActions {
		kind = ""
	}

	logger.Debug("MCP claims search request",
		"query", input.Query,
		"top_k", topK,
		"kind", kind,
	)

	results, err := s.config.Searcher.Search(ctx, input.Query, topK, kind)
	if err != nil {
		logger.Error("claims search failed", "error", err)
		return toolError(fmt.Sprintf("Search failed: %v", err)), SearchOutput{}, nil
	}
	if results == nil {
		results = []pipeline.SearchResult{}
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	// Structured output is mirrored as JSON text for clients that only
	// read content blocks.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
