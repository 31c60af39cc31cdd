package middlewares

import (
	"errors"

	"boostpanel-backend/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// NewErrorHandler centralizes error responses and keeps messages sanitized.
func NewErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Validation errors (400 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, f := range ve {
				out[f.Field()] = f.Tag()
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 3) Domain errors
		var de *services.Error
		if errors.As(err, &de) {
			status := StatusFor(de.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Str("code", de.Code).Msg("request failed")
			}
			return c.Status(status).JSON(fiber.Map{"message": de.Error(), "code": de.Code})
		}

		// 4) Unknown errors (500)
		log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(k services.Kind) int {
	switch k {
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindAuth:
		return fiber.StatusUnauthorized
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}
