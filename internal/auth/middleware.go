package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/civicgrid/grievance-engine/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated admin caller.
type Principal struct {
	Username string
}

// AuthMiddleware validates bearer tokens on protected reporting routes.
type AuthMiddleware struct {
	tokens *TokenManager
	admin  string
}

// NewAuthMiddleware constructs middleware bound to the configured admin
// username. Tokens for any other subject are rejected.
func NewAuthMiddleware(tokens *TokenManager, adminUsername string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, admin: adminUsername}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.Username != m.admin {
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, &Principal{Username: claims.Username})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated admin.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
