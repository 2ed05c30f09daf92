package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/services"
)

type WebhookHandler struct {
	subs   *services.SubscriptionService
	secret string
}

func NewWebhookHandler(subs *services.SubscriptionService, secret string) *WebhookHandler {
	return &WebhookHandler{subs: subs, secret: secret}
}

// Payments receives subscription events from the payment processor
func (h *WebhookHandler) Payments(c *fiber.Ctx) error {
	body := c.Body()
	if err := payments.VerifySignature(h.secret, body, c.Get("X-Signature")); err != nil {
		log.Warn("rejected payment webhook", "ip", c.IP(), err)
		return fail(c, fiber.StatusUnauthorized, "Invalid signature")
	}

	ev, err := payments.ParseEvent(body)
	if err != nil {
		return badRequest(c, "Invalid webhook payload")
	}

	if err := h.subs.ApplyWebhook(c.UserContext(), ev); err != nil {
		// Unknown users are acknowledged so the processor stops retrying.
		if errors.Is(err, services.ErrUserNotFound) {
			log.Warn("payment webhook for unknown user", "event", ev.Name())
			return c.JSON(fiber.Map{"success": true, "message": "ignored"})
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
