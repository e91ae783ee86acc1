package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/gleaner/pkg/suggest"
)

// handleSuggestions returns the current suggestion and the backlog size.
func (s *Server) handleSuggestions(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Suggestions().View())
}

// handleAcceptSuggestion records acceptance of the current suggestion.
func (s *Server) handleAcceptSuggestion(c *fiber.Ctx) error {
	return s.decide(c, s.pipeline.Suggestions().Accept)
}

// handleDismissSuggestion records dismissal of the current suggestion.
func (s *Server) handleDismissSuggestion(c *fiber.Ctx) error {
	return s.decide(c, s.pipeline.Suggestions().Dismiss)
}

func (s *Server) decide(c *fiber.Ctx, fn func(id string) error) error {
	id := c.Params("id")
	if err := fn(id); err != nil {
		if errors.Is(err, suggest.ErrNotCurrent) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to record decision", "suggestion_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to record decision"})
	}
	return c.JSON(s.pipeline.Suggestions().View())
}
