package models

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Response is the envelope every endpoint returns. Code mirrors the HTTP
// status so clients parsing only the body still see the outcome.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Respond writes a success envelope with the given status.
func Respond(c *fiber.Ctx, status int, msg string, data interface{}) error {
	return c.Status(status).JSON(Response{
		Code: status,
		Msg:  msg,
		Data: data,
	})
}

// RespondWithError writes an error envelope, mapping AppError to its status.
func RespondWithError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	msg := err.Error()
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return c.Status(status).JSON(Response{
		Code: status,
		Msg:  msg,
	})
}
