package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/gleaner/pipeline"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the gleaner pipeline.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server around a pipeline. The pipeline is
// injected so the caller controls its lifecycle.
func NewServer(config Config, p *pipeline.Pipeline, logger *slog.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: p,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/conversations/:id/turns", s.handleIngestTurn)
	app.Get("/conversations/:id", s.handleGetConversation)

	app.Get("/claims", s.handleListClaims)
	app.Get("/actions", s.handleListActions)
	app.Get("/review", s.handleListReview)

	app.Get("/suggestions", s.handleSuggestions)
	app.Post("/suggestions/:id/accept", s.handleAcceptSuggestion)
	app.Post("/suggestions/:id/dismiss", s.handleDismissSuggestion)

	app.Get("/queue/stats", s.handleQueueStats)
	app.Get("/search", s.handleSearch)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
