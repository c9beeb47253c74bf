package fiber

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/susi/core"
)

// requireAuth validates the bearer token and stores the resolved user in
// the context for downstream handlers.
func (a *Adapter) requireAuth(handler core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		user, err := handler.CurrentUser(c.Context(), token)
		if err != nil {
			return a.handleAuthError(c, err)
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// Protected returns the bearer token middleware for application routes.
// Handlers behind it read the caller with UserFromContext.
func (a *Adapter) Protected(handler core.AuthHandler) fiber.Handler {
	return a.requireAuth(handler)
}

// extractToken reads "Authorization: Bearer <token>".
func extractToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", core.ErrMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return strings.TrimSpace(token), nil
}
