package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/content"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/services"
)

// PublicHandler serves unauthenticated marketing endpoints.
type PublicHandler struct {
	landing         *content.Landing
	catalog         *payments.Catalog
	contact         *services.ContactService
	checkoutEnabled bool
}

func NewPublicHandler(landing *content.Landing, catalog *payments.Catalog, contact *services.ContactService, checkoutEnabled bool) *PublicHandler {
	return &PublicHandler{landing: landing, catalog: catalog, contact: contact, checkoutEnabled: checkoutEnabled}
}

func (h *PublicHandler) Landing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.landing,
	})
}

func (h *PublicHandler) Pricing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"plans":                 h.catalog.Plans(),
			"subscription_plan_ids": h.catalog.SubscriptionPlanIDs(),
			"checkout_enabled":      h.checkoutEnabled,
		},
	})
}

// Contact stores a message from the public contact form
func (h *PublicHandler) Contact(c *fiber.Ctx) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.contact.Submit(c.UserContext(), services.ContactInput{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		IPAddress: c.IP(),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Thanks! We will get back to you soon.",
		"data":    fiber.Map{"id": msg.ID},
	})
}
