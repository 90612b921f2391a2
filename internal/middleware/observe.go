package middleware

import (
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RequestContext copies the request id into the user context so services
// logging with slog's *Context functions tag their records with it.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && id != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// Metrics records the latency and status of every request, labelled by
// the matched route pattern.
func Metrics(m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		m.ObserveRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
