package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/logger"
)

var httpLog = logger.Get("http")

// Logger middleware for request logging
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		attrs := []any{
			"status", status,
			"latency", time.Since(start),
			"ip", c.IP(),
			"method", c.Method(),
			"path", c.Path(),
		}
		switch {
		case status >= 500:
			httpLog.Error("request", attrs...)
		case status >= 400:
			httpLog.Warn("request", attrs...)
		default:
			httpLog.Info("request", attrs...)
		}

		return err
	}
}

// CORS middleware for cross-origin requests. An empty origin allows any.
func CORS(allowedOrigin string) fiber.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Signature")
		if allowedOrigin != "*" {
			c.Set("Access-Control-Allow-Credentials", "true")
			c.Set("Vary", "Origin")
		}
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
