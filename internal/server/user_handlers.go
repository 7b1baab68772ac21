package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users/register
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}

	user, err := s.userService.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "Registered", user)
}

// Login handles POST /api/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}

	user, err := s.userService.Login(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Logged in", user)
}

// ChangePassword handles POST /api/users/password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Email       string `json:"email"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
		Code        string `json:"code"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.userService.ChangePassword(ctx, service.ChangePasswordInput{
		Email:       req.Email,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		Code:        req.Code,
	}); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Password changed", nil)
}

// UpdateProfile handles PUT /api/users/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		UserID      string           `json:"userId"`
		Username    *string          `json:"username"`
		Email       *string          `json:"email"`
		Bio         *string          `json:"bio"`
		Avatar      *string          `json:"avatar"`
		HeaderImage *string          `json:"headerImage"`
		Settings    *models.Settings `json:"settings"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	userID, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	user, err := s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:      userID,
		Username:    req.Username,
		Email:       req.Email,
		Bio:         req.Bio,
		Avatar:      req.Avatar,
		HeaderImage: req.HeaderImage,
		Settings:    req.Settings,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Profile updated", user)
}

type followRequest struct {
	UserID   string `json:"userId"`
	TargetID string `json:"targetId"`
}

// Follow handles POST /api/users/follow
func (s *Server) Follow(c *fiber.Ctx) error {
	ctx := c.Context()

	var req followRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	follower, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	followee, err := parseBodyID(req.TargetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.userService.Follow(ctx, follower, followee); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Followed", nil)
}

// Unfollow handles DELETE /api/users/follow
func (s *Server) Unfollow(c *fiber.Ctx) error {
	ctx := c.Context()

	var req followRequest
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}
	follower, err := parseBodyID(req.UserID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	followee, err := parseBodyID(req.TargetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.userService.Unfollow(ctx, follower, followee); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "Unfollowed", nil)
}

// ListUsers handles GET /api/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	ctx := c.Context()
	limit, offset := parsePagination(c)

	users, err := s.userService.ListUsers(ctx, limit, offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", users)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	user, err := s.userService.GetUserByID(ctx, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", user)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	users, err := s.userService.Following(ctx, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", users)
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	ctx := c.Context()

	id, err := parseObjectID(c, "id")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	users, err := s.userService.Followers(ctx, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", users)
}
