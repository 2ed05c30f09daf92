package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/services"
	"gorm.io/gorm"
)

type CheckoutHandler struct {
	db   *gorm.DB
	subs *services.SubscriptionService
}

func NewCheckoutHandler(db *gorm.DB, subs *services.SubscriptionService) *CheckoutHandler {
	return &CheckoutHandler{db: db, subs: subs}
}

// Create starts a hosted checkout for the requested plan
func (h *CheckoutHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Plan == "" {
		return badRequest(c, "Plan is required")
	}

	session, err := h.subs.StartCheckout(c.UserContext(), user, req.Plan)
	if err != nil {
		return respondError(c, err)
	}
	middleware.RecordAudit(h.db, c, user, models.AuditActionCheckout, "subscription", session.ID, "Checkout started for plan "+req.Plan)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}
