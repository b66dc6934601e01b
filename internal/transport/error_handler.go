// Package transport holds HTTP-level glue shared by every route.
package transport

import (
	"errors"

	"github.com/dreamic/permission-tracker/internal/observability"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders unhandled route errors as a JSON body and logs them
// with the request's correlation id. Client errors log at warn, server
// errors at error.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		log := observability.WithContextLogger(logger, c.UserContext())
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}

		return c.Status(status).JSON(fiber.Map{
			"error":  err.Error(),
			"status": status,
		})
	}
}
