package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/broker"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/services"
)

type ApplicationHandler struct {
	apps   *services.ApplicationService
	broker *broker.Client
}

func NewApplicationHandler(apps *services.ApplicationService, brokerClient *broker.Client) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, broker: brokerClient}
}

func credentialsOf(app *models.Application) broker.Credentials {
	return broker.Credentials{AppID: app.ID, Key: app.Key, Secret: app.Secret}
}

// List returns the caller's applications
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	list, err := h.apps.List(c.UserContext(), user.ID, services.ListFilter{
		Status: c.Query("status", services.StatusAll),
		Search: c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    list.Applications,
		"counts":  list.Counts,
	})
}

// Get returns a single application with its latest metrics
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	app, err := h.apps.Get(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    app,
	})
}

// Create registers the caller's application
func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Plan        string `json:"plan"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	app, err := h.apps.Create(c.UserContext(), user, services.CreateApplicationInput{
		Name:        req.Name,
		Description: req.Description,
		Plan:        req.Plan,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Application created successfully",
		"data":    app,
	})
}

// Update changes the fields present in the body
func (h *ApplicationHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req services.UpdateApplicationInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	app, err := h.apps.Update(c.UserContext(), user.ID, c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application updated successfully",
		"data":    app,
	})
}

// Delete removes the application and its metrics
func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	if err := h.apps.Delete(c.UserContext(), user.ID, c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application deleted successfully",
	})
}

// TestEvent publishes a demo event through the broker
func (h *ApplicationHandler) TestEvent(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		Channel string          `json:"channel"`
		Event   string          `json:"event"`
		Data    json.RawMessage `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.apps.Find(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	// String payloads are sent as-is, anything else as its JSON text.
	data := string(req.Data)
	var s string
	if err := json.Unmarshal(req.Data, &s); err == nil {
		data = s
	}
	if len(req.Data) == 0 {
		data = "{}"
	}

	ev := broker.Event{Channel: req.Channel, Name: req.Event, Data: data}
	if err := h.broker.Trigger(c.UserContext(), credentialsOf(app), ev); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Event sent",
		"data": fiber.Map{
			"channel": ev.Channel,
			"event":   ev.Name,
		},
	})
}

// ConnectionCheck opens a client connection with the application key
func (h *ApplicationHandler) ConnectionCheck(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	app, err := h.apps.Find(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.broker.Probe(c.UserContext(), app.Key)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// Snippets returns getting-started code for the application
func (h *ApplicationHandler) Snippets(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	app, err := h.apps.Find(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	snippets, err := h.broker.Snippets(credentialsOf(app))
	if err != nil {
		return respondError(c, err)
	}

	out := fiber.Map{
		"success": true,
		"data":    snippets,
	}
	if h.broker.Enabled() {
		out["websocket_url"] = h.broker.WebSocketURL(app.Key)
	}
	return c.JSON(out)
}
