package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.Context()

	postID, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	var req struct {
		UserID  string `json:"userId"`
		Content string `json:"content"`
		ReplyTo string `json:"replyTo"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	userID, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	replyTo := bson.ObjectID{}
	if req.ReplyTo != "" {
		if replyTo, err = parseBodyID(req.ReplyTo); err != nil {
			return models.RespondWithError(c, err)
		}
	}

	comment, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
		ReplyTo: replyTo,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Comment created", comment)
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.Context()

	postID, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	limit, offset := parsePagination(c)

	comments, err := s.commentService.ListComments(ctx, postID, limit, offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", comments)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.Context()

	commentID, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	userID, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.commentService.DeleteComment(ctx, userID, commentID); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Comment deleted", nil)
}

// ToggleCommentLike handles PUT /api/comments/:id/like
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	ctx := c.Context()

	commentID, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	userID, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	comment, err := s.commentService.ToggleLike(ctx, userID, commentID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", comment)
}
