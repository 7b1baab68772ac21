package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	ctx := c.Context()
	limit, offset := parsePagination(c)

	feed, err := s.feedService.BuildFeed(ctx, service.FeedInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", feed)
}
