package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/tomes/api/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
//   - collection (optional): overrides the configured collection
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Index == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "search is not configured: index is required")
	}

	query := c.Query("query")
	if query == "" {
		return errorJSON(c, fiber.StatusBadRequest, "query parameter is required")
	}

	topK := apisearch.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return errorJSON(c, fiber.StatusBadRequest, "top_k must be a positive integer")
		}
		topK = parsed
	}

	collection := c.Query("collection", s.config.Collection)

	output, err := apisearch.Search(c.UserContext(), s.config.Index, collection, query, topK, s.logger)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(output)
}
