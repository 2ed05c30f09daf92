package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func pageFrom(c *fiber.Ctx) services.Page {
	return services.Page{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 50),
	}
}

func paginated(c *fiber.Ctx, data interface{}, meta services.Meta) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

// Stats returns platform-wide counters
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// ListUsers returns users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, meta, err := h.admin.ListUsers(c.UserContext(), services.UserFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}, pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, users, meta)
}

// GetUser returns a single user with their application
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.admin.GetUser(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// parseDate accepts YYYY-MM-DD. endOfDay moves the result to the last
// instant of that day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// AuditLogs returns audit logs
func (h *AdminHandler) AuditLogs(c *fiber.Ctx) error {
	from, err := parseDate(c.Query("date_from"), false)
	if err != nil {
		return badRequest(c, "Invalid date_from")
	}
	to, err := parseDate(c.Query("date_to"), true)
	if err != nil {
		return badRequest(c, "Invalid date_to")
	}

	userID := c.QueryInt("user_id", 0)
	if userID < 0 {
		userID = 0
	}

	logs, meta, err := h.admin.ListAuditLogs(c.UserContext(), services.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		UserID:     uint(userID),
		From:       from,
		To:         to,
	}, pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, logs, meta)
}

func (h *AdminHandler) ContactMessages(c *fiber.Ctx) error {
	msgs, meta, err := h.admin.ListContactMessages(c.UserContext(), pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, msgs, meta)
}
