package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendVerificationCode handles POST /api/mails/verify
func (s *Server) SendVerificationCode(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if err := parseBody(c, &req); err != nil {
		return models.RespondWithError(c, err)
	}

	// The code travels only by email; the response never carries it.
	if _, err := s.verificationService.IssueCode(ctx, service.IssueCodeInput{
		Email:   req.Email,
		Purpose: req.Purpose,
	}); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "Verification code sent", nil)
}

// ListVerificationCodes handles GET /api/mails
func (s *Server) ListVerificationCodes(c *fiber.Ctx) error {
	ctx := c.Context()
	limit, offset := parsePagination(c)

	mails, err := s.verificationService.ListCodes(ctx, c.Query("email"), limit, offset)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "OK", mails)
}
