package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/services"
)

type DashboardHandler struct {
	apps    *services.ApplicationService
	display *services.DisplaySynthesizer
}

func NewDashboardHandler(apps *services.ApplicationService, display *services.DisplaySynthesizer) *DashboardHandler {
	return &DashboardHandler{apps: apps, display: display}
}

// ConnectedApps returns the caller's apps with their live connection counts
func (h *DashboardHandler) ConnectedApps(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	res, err := h.apps.ConnectedApps(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    res.Apps,
		"totals":  res.Totals,
	})
}

// Overview is ConnectedApps plus the synthesized display block
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	res, err := h.apps.ConnectedApps(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"apps":    res.Apps,
			"totals":  res.Totals,
			"display": h.display.Next(),
		},
	})
}
