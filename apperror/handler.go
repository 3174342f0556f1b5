package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handler is the fiber ErrorHandler. Typed errors keep their status and code;
// anything else is logged and rendered as a 500.
func Handler(c *fiber.Ctx, err error) error {
	status := Status(err)

	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil && status >= fiber.StatusInternalServerError {
			log.Error().Err(e.Err).Str("code", e.Code).Str("path", c.Path()).Msg("🔥 Request failed")
		}
		return c.Status(status).JSON(fiber.Map{
			"status":  "error",
			"code":    e.Code,
			"message": e.Message,
		})
	}

	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("🔥 Unhandled error")
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"code":    codeFor(status),
		"message": message,
	})
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusUpgradeRequired:
		return "UPGRADE_REQUIRED"
	default:
		return "INTERNAL"
	}
}
