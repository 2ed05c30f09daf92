package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/security"
	"github.com/jetsocket/backend/internal/services"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

type AuthHandler struct {
	cfg      *config.Config
	db       *gorm.DB
	users    *services.UserService
	cache    *database.Cache
	cipher   *security.Cipher
	throttle *loginThrottle
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, users *services.UserService, cache *database.Cache, cipher *security.Cipher) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		db:       db,
		users:    users,
		cache:    cache,
		cipher:   cipher,
		throttle: newLoginThrottle(),
	}
}

type credentialsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TwoFACode string `json:"two_fa_code"`
}

// UserInfo represents user info in response
type UserInfo struct {
	ID                 uint                       `json:"id"`
	Email              string                     `json:"email"`
	IsAdmin            bool                       `json:"is_admin"`
	SubscriptionPlan   *string                    `json:"subscription_plan"`
	PlanName           string                     `json:"plan_name,omitempty"`
	SubscriptionStatus *models.SubscriptionStatus `json:"subscription_status"`
	TwoFactorEnabled   bool                       `json:"two_factor_enabled"`
	LastActiveAt       *time.Time                 `json:"last_active_at"`
	CreatedAt          time.Time                  `json:"created_at"`
}

func userInfo(u *models.User) *UserInfo {
	info := &UserInfo{
		ID:                 u.ID,
		Email:              u.Email,
		IsAdmin:            u.IsAdmin,
		SubscriptionPlan:   u.SubscriptionPlan,
		SubscriptionStatus: u.SubscriptionStatus,
		TwoFactorEnabled:   u.TwoFactorEnabled,
		LastActiveAt:       u.LastActiveAt,
		CreatedAt:          u.CreatedAt,
	}
	if u.SubscriptionPlan != nil {
		info.PlanName = payments.PrettyPlanName(payments.PlanID(*u.SubscriptionPlan))
	}
	return info
}

func (h *AuthHandler) issue(c *fiber.Ctx, user *models.User, status int) error {
	token, err := middleware.GenerateToken(user, h.cfg)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    userInfo(user),
	})
}

// Signup creates a customer account and logs it in
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.users.Signup(c.UserContext(), req.Email, req.Password, false)
	if err != nil {
		return respondError(c, err)
	}
	middleware.RecordAudit(h.db, c, user, models.AuditActionCreate, "user", strconv.FormatUint(uint64(user.ID), 10), "Account created")
	return h.issue(c, user, fiber.StatusCreated)
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	clientIP := c.IP()

	// Check if IP is blocked due to too many failed attempts
	if blocked, remaining := h.throttle.blocked(clientIP); blocked {
		return fail(c, fiber.StatusTooManyRequests,
			"Too many failed login attempts. Please try again in "+strconv.Itoa(remaining)+" minutes")
	}

	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	rejected := func(msg string) error {
		if remaining := h.throttle.fail(clientIP); remaining > 0 {
			msg += ". " + strconv.Itoa(remaining) + " attempts remaining"
		}
		return fail(c, fiber.StatusUnauthorized, msg)
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return rejected("Invalid email or password")
	}
	if err != nil {
		return respondError(c, err)
	}

	if user.TwoFactorEnabled {
		if req.TwoFACode == "" {
			// Password is correct, but need 2FA code
			return c.JSON(fiber.Map{
				"success":      false,
				"requires_2fa": true,
				"message":      "2FA code required",
			})
		}
		secret, err := h.cipher.Decrypt(user.TwoFactorSecret)
		if err != nil {
			return respondError(c, err)
		}
		if !totp.Validate(req.TwoFACode, secret) {
			return rejected("Invalid 2FA code")
		}
	}

	h.throttle.clear(clientIP)
	middleware.RecordAudit(h.db, c, user, models.AuditActionLogin, "session", "", "User logged in")
	return h.issue(c, user, fiber.StatusOK)
}

// revokeCurrent blacklists the presented token until it expires.
func (h *AuthHandler) revokeCurrent(c *fiber.Ctx) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		return
	}
	if err := h.cache.BlacklistToken(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Warn("failed to revoke token", "user_id", claims.UserID, err)
	}
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	h.revokeCurrent(c)
	if user != nil {
		middleware.RecordAudit(h.db, c, user, models.AuditActionLogout, "session", "", "User logged out")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Refresh swaps the presented token for a fresh one
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}
	h.revokeCurrent(c)
	return h.issue(c, user, fiber.StatusOK)
}

// Me returns current user info
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    userInfo(user),
	})
}

// ChangePassword handles password change
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.users.ChangePassword(c.UserContext(), user, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	middleware.RecordAudit(h.db, c, user, models.AuditActionUpdate, "user", strconv.FormatUint(uint64(user.ID), 10), "Password changed")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}
