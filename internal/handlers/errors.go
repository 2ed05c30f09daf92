package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/broker"
	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/services"
)

var log = logger.Get("handlers")

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, msg)
}

// inputMessage strips the sentinel prefix from a wrapped validation error.
func inputMessage(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// respondError maps service errors to the JSON error envelope.
func respondError(c *fiber.Ctx, err error) error {
	var procErr *payments.ProcessorError
	var brokerErr *broker.Error

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return badRequest(c, inputMessage(err, services.ErrInvalidInput))
	case errors.Is(err, broker.ErrInvalidEvent):
		return badRequest(c, inputMessage(err, broker.ErrInvalidEvent))
	case errors.Is(err, payments.ErrInvalidPlan):
		return badRequest(c, "Invalid payment plan")
	case errors.Is(err, services.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrApplicationLimitReached):
		return fail(c, fiber.StatusForbidden, "You can only create one application")
	case errors.Is(err, services.ErrApplicationNotFound):
		return fail(c, fiber.StatusNotFound, "Application not found")
	case errors.Is(err, services.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrEmailTaken):
		return fail(c, fiber.StatusConflict, "An account with this email already exists")
	case errors.As(err, &procErr):
		return fail(c, fiber.StatusBadGateway, procErr.Message)
	case errors.As(err, &brokerErr):
		return fail(c, fiber.StatusBadGateway, brokerErr.Error())
	case errors.Is(err, broker.ErrNotConfigured):
		return fail(c, fiber.StatusServiceUnavailable, "Broker is not configured")
	case errors.Is(err, payments.ErrPaymentsDisabled), errors.Is(err, payments.ErrPlanNotConfigured):
		return fail(c, fiber.StatusServiceUnavailable, "Payments are not configured")
	}

	log.Error("request failed", "method", c.Method(), "path", c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}
