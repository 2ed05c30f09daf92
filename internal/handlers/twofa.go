package handlers

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/security"
	"github.com/jetsocket/backend/internal/services"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const totpIssuer = "JetSocket"

type TwoFAHandler struct {
	users  *services.UserService
	cipher *security.Cipher
}

func NewTwoFAHandler(users *services.UserService, cipher *security.Cipher) *TwoFAHandler {
	return &TwoFAHandler{users: users, cipher: cipher}
}

// Setup generates a new 2FA secret and returns QR code
func (h *TwoFAHandler) Setup(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}
	if user.TwoFactorEnabled {
		return badRequest(c, "2FA is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return respondError(c, err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return respondError(c, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return respondError(c, err)
	}

	sealed, err := h.cipher.Encrypt(key.Secret())
	if err != nil {
		return respondError(c, err)
	}
	// Stored but not enabled until verified
	if err := h.users.SetTwoFactor(c.UserContext(), user, sealed, false); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"secret":  key.Secret(),
			"qr_code": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
			"otpauth": key.URL(),
		},
	})
}

// Verify verifies the 2FA code and enables 2FA
func (h *TwoFAHandler) Verify(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Code == "" {
		return badRequest(c, "Code is required")
	}
	if user.TwoFactorSecret == "" {
		return badRequest(c, "2FA not set up. Please call setup first")
	}

	secret, err := h.cipher.Decrypt(user.TwoFactorSecret)
	if err != nil {
		return respondError(c, err)
	}
	if !totp.Validate(req.Code, secret) {
		return badRequest(c, "Invalid code. Please try again")
	}

	if err := h.users.SetTwoFactor(c.UserContext(), user, user.TwoFactorSecret, true); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "2FA enabled successfully",
	})
}

// Disable disables 2FA for the user
func (h *TwoFAHandler) Disable(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}

	var req struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !user.TwoFactorEnabled {
		return badRequest(c, "2FA is not enabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return badRequest(c, "Invalid password")
	}

	secret, err := h.cipher.Decrypt(user.TwoFactorSecret)
	if err != nil {
		return respondError(c, err)
	}
	if !totp.Validate(req.Code, secret) {
		return badRequest(c, "Invalid 2FA code")
	}

	if err := h.users.SetTwoFactor(c.UserContext(), user, "", false); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "2FA disabled successfully",
	})
}

// Status returns 2FA status for current user
func (h *TwoFAHandler) Status(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"enabled": user.TwoFactorEnabled,
		},
	})
}
