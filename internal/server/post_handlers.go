package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		AuthorID string         `json:"authorId"`
		Content  string         `json:"content"`
		Media    []models.Media `json:"media"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	authorID, err := parseBodyID(req.AuthorID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		AuthorID: authorID,
		Content:  req.Content,
		Media:    req.Media,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Post created", post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	annotated, err := s.feedService.Annotate(ctx, []models.Post{*post})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", annotated[0])
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
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

	if err := s.postService.DeletePost(ctx, userID, id); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Post deleted", nil)
}

// LikePost handles PUT /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
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

	post, err := s.postService.LikePost(ctx, userID, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Post liked", post)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
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

	post, err := s.postService.UnlikePost(ctx, userID, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Post unliked", post)
}

// Repost handles POST /api/posts/:id/repost
func (s *Server) Repost(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	var req struct {
		AuthorID string `json:"authorId"`
		Content  string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	authorID, err := parseBodyID(req.AuthorID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	repost, err := s.postService.Repost(ctx, service.RepostInput{
		UserID:  authorID,
		PostID:  id,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Reposted", repost)
}

// GetUserPosts handles GET /api/posts/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ctx := c.Context()

	userID, err := parseObjectID(c, "userId")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	limit, offset := parsePagination(c)

	posts, err := s.postService.GetUserPosts(ctx, userID, limit, offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	annotated, err := s.feedService.Annotate(ctx, posts)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", annotated)
}

// GetLikedPosts handles GET /api/posts/likes/:userId
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	ctx := c.Context()

	userID, err := parseObjectID(c, "userId")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	limit, offset := parsePagination(c)

	posts, err := s.postService.GetLikedPosts(ctx, userID, limit, offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	annotated, err := s.feedService.Annotate(ctx, posts)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", annotated)
}
