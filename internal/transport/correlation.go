package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
)

// CorrelationMiddleware copies the request id onto the user context so
// service logs carry it. It must run after the requestid middleware.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := requestCorrelationID(c); id != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		}
		return c.Next()
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
}
