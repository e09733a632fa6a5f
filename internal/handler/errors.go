package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// statusForError maps service errors onto HTTP status codes. Anything not
// recognized is a 502: the gateway itself is fine, a backend call failed.
func statusForError(err error) int {
	switch {
	case errors.Is(err, port.ErrCollectionNotFound),
		errors.Is(err, port.ErrJobNotFound),
		errors.Is(err, port.ErrUnknownRepo):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrDimensionMismatch),
		errors.Is(err, port.ErrMalformedPayload):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrUnauthorized),
		errors.Is(err, port.ErrInvalidSignature):
		return fiber.StatusUnauthorized
	case errors.Is(err, port.ErrIndexInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

func errorJSON(c fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}
