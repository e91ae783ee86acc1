// Package mcp provides an MCP (Model Context Protocol) server exposing the
// claims gleaned from conversations to assistants.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/utils"
)

// Searcher ranks persisted claims and actions against a query.
// *pipeline.Pipeline satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, k int, kind string) ([]pipeline.SearchResult, error)
}

type Config struct {
	// Searcher backs the claims_search tool
	Searcher Searcher

	// Memory backs the claims_list tool
	Memory memory.Driver

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the claims tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "gleaner",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Searcher == nil {
			return nil, errors.New("searcher is required")
		}
		if c.Memory == nil {
			return nil, errors.New("memory driver is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listToolName,
			Description: listDescription,
		}, s.handleList)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// toolError wraps a failure as a tool result so the calling model sees it.
func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
