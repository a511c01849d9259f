package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicgrid/grievance-engine/internal/api/dto"
	"github.com/civicgrid/grievance-engine/internal/auth"
)

// AuthHandler exposes the admin login endpoint for the reporting API.
// There is a single admin account, configured through the environment;
// the password hash is computed once at startup.
type AuthHandler struct {
	tokens       *auth.TokenManager
	username     string
	passwordHash string
}

// NewAuthHandler constructs the handler with the pre-hashed admin password.
func NewAuthHandler(tokens *auth.TokenManager, username, passwordHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, username: username, passwordHash: passwordHash}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	if req.Username != h.username || auth.ComparePassword(h.passwordHash, req.Password) != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	token, exp, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token generation failed")
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}
