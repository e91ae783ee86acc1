package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
)

// TurnRequest is the body of POST /conversations/:id/turns.
type TurnRequest struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`
}

// TurnResponse acknowledges an accepted turn.
type TurnResponse struct {
	TaskID         string `json:"task_id"`
	ConversationID string `json:"conversation_id"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngestTurn enqueues one conversation turn for extraction.
func (s *Server) handleIngestTurn(c *fiber.Ctx) error {
	// Params aliases the request buffer; the ID outlives the handler.
	conversationID := utils.CopyString(c.Params("id"))

	var req TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	task, err := s.pipeline.Ingest(c.Context(), conversationID, taskqueue.Turn{
		Speaker:     req.Speaker,
		Text:        req.Text,
		TimestampMs: req.TimestampMs,
	})
	if err != nil {
		if errors.Is(err, taskqueue.ErrInvalidTask) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to ingest turn", "conversation_id", conversationID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to ingest turn"})
	}

	return c.Status(fiber.StatusAccepted).JSON(TurnResponse{
		TaskID:         task.ID,
		ConversationID: task.ConversationID,
	})
}

// handleGetConversation returns the claims and actions linked to a
// conversation.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	items, err := s.pipeline.Memory().ConversationItems(c.Context(), c.Params("id"))
	if err != nil {
		s.logger.Error("failed to load conversation", "conversation_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load conversation"})
	}
	return c.JSON(items)
}

// handleListClaims returns persisted claims, optionally filtered by status.
func (s *Server) handleListClaims(c *fiber.Ctx) error {
	var status *memory.ClaimStatus
	if raw := c.Query("status"); raw != "" {
		st := memory.ClaimStatus(raw)
		if !st.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown claim status: " + raw})
		}
		status = &st
	}

	claims, err := s.pipeline.Memory().ListClaims(c.Context(), status)
	if err != nil {
		s.logger.Error("failed to list claims", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list claims"})
	}
	for i := range claims {
		claims[i].Embedding = nil
	}

	return c.JSON(map[string]any{
		"count":  len(claims),
		"claims": claims,
	})
}

// handleListActions returns persisted actions.
func (s *Server) handleListActions(c *fiber.Ctx) error {
	actions, err := s.pipeline.Memory().ListActions(c.Context())
	if err != nil {
		s.logger.Error("failed to list actions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list actions"})
	}
	for i := range actions {
		actions[i].Embedding = nil
	}

	return c.JSON(map[string]any{
		"count":   len(actions),
		"actions": actions,
	})
}

// handleListReview returns review items, optionally filtered by status.
func (s *Server) handleListReview(c *fiber.Ctx) error {
	var status *memory.ReviewStatus
	switch raw := memory.ReviewStatus(c.Query("status")); raw {
	case "":
	case memory.ReviewPending, memory.ReviewResolved:
		status = &raw
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown review status: " + string(raw)})
	}

	items, err := s.pipeline.Memory().ListReviewItems(c.Context(), status)
	if err != nil {
		s.logger.Error("failed to list review items", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list review items"})
	}

	return c.JSON(map[string]any{
		"count": len(items),
		"items": items,
	})
}

// handleQueueStats returns task queue counters.
func (s *Server) handleQueueStats(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Queue().Stats())
}
