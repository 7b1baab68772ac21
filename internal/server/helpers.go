package server

import (
	"strconv"

	"celeste/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// parseObjectID parses a 24-hex path parameter into an ObjectID.
func parseObjectID(c *fiber.Ctx, param string) (bson.ObjectID, error) {
	raw := c.Params(param)
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, models.NewInvalidIDError(raw)
	}
	return id, nil
}

// parseBodyID parses an ObjectID carried in a request payload.
func parseBodyID(raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, models.NewInvalidIDError(raw)
	}
	return id, nil
}

// parsePagination reads limit/offset query params with sane bounds.
func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit = 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

// parseBody binds the JSON payload, mapping malformed bodies to a 400.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Malformed request body")
	}
	return nil
}
