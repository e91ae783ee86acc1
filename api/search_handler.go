package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []pipeline.SearchResult `json:"results"`
	Count   int                     `json:"count"`
}

// handleSearch handles GET /search requests.
// Query parameters:
//   - q (required): the search query text
//   - k (optional, default 5): number of results to return
//   - kind (optional): "claim" or "action"
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "q parameter is required"})
	}

	k := pipeline.DefaultSearchLimit
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "k must be a positive integer"})
		}
		k = parsed
	}

	kind := c.Query("kind")
	if kind != "" && kind != vector.KindClaim && kind != vector.KindAction {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "kind must be claim or action"})
	}

	results, err := s.pipeline.Search(c.Context(), query, k, kind)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}
