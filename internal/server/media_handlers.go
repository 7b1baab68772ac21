package server

import (
	"celeste/internal/models"
	"celeste/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media. The multipart form carries the file,
// a kind field (avatar | header | post) and, for avatar and header uploads,
// the userId whose profile the stored URL is written to.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	ctx := c.Context()

	if s.media == nil {
		return models.Respond(c, fiber.StatusServiceUnavailable,
			"Media storage is not configured", nil)
	}

	kind := c.FormValue("kind")
	if kind != "avatar" && kind != "header" && kind != "post" {
		return models.RespondWithError(c,
			models.NewValidationError("Kind must be avatar, header or post"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("A file is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, models.NewInternalError(err))
	}
	defer file.Close()

	stored, err := s.media.Upload(ctx, fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	// Avatar and header uploads land directly on the profile.
	if kind == "avatar" || kind == "header" {
		userID, err := parseBodyID(c.FormValue("userId"))
		if err != nil {
			return models.RespondWithError(c, err)
		}
		in := service.UpdateProfileInput{UserID: userID}
		if kind == "avatar" {
			in.Avatar = &stored.URL
		} else {
			in.HeaderImage = &stored.URL
		}
		if _, err := s.userService.UpdateProfile(ctx, in); err != nil {
			return models.RespondWithError(c, err)
		}
	}

	return models.Respond(c, fiber.StatusCreated, "Uploaded", stored)
}
