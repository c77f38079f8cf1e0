package handlers

import (
	"errors"

	"peerfinder/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps an error kind to its one HTTP status. Every handler
// goes through this so the mapping stays deterministic across operations.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrPermission):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the standard {error: message} body. When message is
// empty the error's own text is used.
func respondError(c *fiber.Ctx, err error, message string) error {
	if message == "" {
		message = err.Error()
	}
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"error": message,
	})
}
