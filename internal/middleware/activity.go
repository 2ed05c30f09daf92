package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/services"
)

// TrackActivity refreshes the caller's last_active_at after the handler ran.
func TrackActivity(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if user := GetCurrentUser(c); user != nil {
			if terr := users.TouchActivity(c.UserContext(), user, time.Now().UTC()); terr != nil {
				httpLog.Warn("failed to track activity", "user_id", user.ID, terr)
			}
		}
		return err
	}
}
