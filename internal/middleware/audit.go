package middleware

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/models"
	"gorm.io/gorm"
)

var (
	auditLog = logger.Get("audit")

	uuidPathRegex = regexp.MustCompile(`/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(?:/|$)`)
)

// Audit paths handled explicitly by their handlers.
var auditSkipPaths = []string{"/api/auth/", "/api/checkout", "/api/payments/", "/api/public/", "/health"}

// RecordAudit writes one audit entry. Failures are logged, never returned.
func RecordAudit(db *gorm.DB, c *fiber.Ctx, user *models.User, action models.AuditAction, entityType, entityID, description string) {
	entry := models.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	}
	if user != nil {
		entry.UserID = user.ID
		entry.Email = user.Email
	}
	if err := db.WithContext(c.UserContext()).Create(&entry).Error; err != nil {
		auditLog.Warn("failed to write audit entry", "action", action, err)
	}
}

// AuditLogger middleware logs modifying API calls to the audit log
func AuditLogger(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip non-modifying requests
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return c.Next()
		}

		path := c.Path()
		for _, skip := range auditSkipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		user := GetCurrentUser(c)

		var requestBody []byte
		if method == fiber.MethodPost || method == fiber.MethodPut || method == fiber.MethodPatch {
			requestBody = append([]byte(nil), c.Body()...)
		}

		// For DELETE, capture entity name BEFORE deletion
		entityType := entityTypeFromPath(path)
		entityID := extractIDFromPath(path)
		var nameBeforeDelete string
		if method == fiber.MethodDelete && entityID != "" {
			nameBeforeDelete = entityName(db, entityType, entityID)
		}

		err := c.Next()

		// Only log successful responses
		status := c.Response().StatusCode()
		if status < 200 || status >= 400 || user == nil || entityType == "" {
			return err
		}

		action := actionFor(method, path)
		if action == "" {
			return err
		}

		name := nameBeforeDelete
		switch {
		case action == models.AuditActionCreate && entityID == "":
			name = nameFromRequestBody(requestBody)
			entityID = idFromResponse(c.Response().Body())
		case name == "" && entityID != "":
			name = entityName(db, entityType, entityID)
		}

		RecordAudit(db, c, user, action, entityType, entityID, describe(action, entityType, name))
		return err
	}
}

func actionFor(method, path string) models.AuditAction {
	if strings.HasSuffix(path, "/test-event") {
		return ""
	}
	switch method {
	case fiber.MethodPost:
		return models.AuditActionCreate
	case fiber.MethodPut, fiber.MethodPatch:
		return models.AuditActionUpdate
	case fiber.MethodDelete:
		return models.AuditActionDelete
	}
	return ""
}

// extractIDFromPath gets the application id from URL path
func extractIDFromPath(path string) string {
	matches := uuidPathRegex.FindStringSubmatch(path)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

func entityTypeFromPath(path string) string {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	entityMap := map[string]string{
		"applications": "application",
		"admin":        "admin",
	}
	return entityMap[parts[0]]
}

func entityName(db *gorm.DB, entityType, entityID string) string {
	if entityType != "application" {
		return ""
	}
	var app models.Application
	if db.Select("name").Where("id = ?", entityID).First(&app).Error == nil {
		return app.Name
	}
	return ""
}

// nameFromRequestBody extracts name from JSON request body
func nameFromRequestBody(body []byte) string {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	if name, ok := data["name"].(string); ok {
		return name
	}
	return ""
}

// idFromResponse reads data.id from a success envelope.
func idFromResponse(body []byte) string {
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return ""
	}
	return envelope.Data.ID
}

func describe(action models.AuditAction, entityType, name string) string {
	verbs := map[models.AuditAction]string{
		models.AuditActionCreate: "Created",
		models.AuditActionUpdate: "Updated",
		models.AuditActionDelete: "Deleted",
	}
	verb := verbs[action]
	if name != "" {
		return verb + " " + entityType + " \"" + name + "\""
	}
	return verb + " " + entityType
}
