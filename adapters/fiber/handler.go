package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/lborres/susi/core"
)

const userLocalsKey = "user"

func (a *Adapter) loginURL(handler core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		url, err := handler.ProviderLoginURL()
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"url": url})
	}
}

func (a *Adapter) authorize(handler core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.AuthorizeInput
		if err := c.Bind().Body(&input); err != nil {
			return invalidBody(c)
		}

		result, err := handler.AuthorizeWithProvider(c.Context(), input.Code)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(http.StatusOK).JSON(result)
	}
}

func (a *Adapter) register(handler core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.RegisterInput
		if err := c.Bind().Body(&input); err != nil {
			return invalidBody(c)
		}

		result, err := handler.Register(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(http.StatusCreated).JSON(result)
	}
}

func (a *Adapter) login(handler core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.LoginInput
		if err := c.Bind().Body(&input); err != nil {
			return invalidBody(c)
		}

		result, err := handler.Login(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(http.StatusOK).JSON(result)
	}
}

// me expects requireAuth to have stored the user.
func (a *Adapter) me() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := c.Locals(userLocalsKey).(*core.User)
		if !ok || user == nil {
			return a.handleAuthError(c, core.ErrInvalidToken)
		}
		return c.Status(http.StatusOK).JSON(user)
	}
}

// UserFromContext returns the identity stored by the protected middleware.
func UserFromContext(c fiber.Ctx) (*core.User, bool) {
	user, ok := c.Locals(userLocalsKey).(*core.User)
	return user, ok && user != nil
}

func invalidBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
		Code:  http.StatusBadRequest,
	})
}

// handleAuthError maps authentication errors to appropriate HTTP responses.
// Only the sentinel message is sent; wrapped details stay in the log.
func (a *Adapter) handleAuthError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		a.log.WithFields(logrus.Fields{
			"path":   c.Path(),
			"status": status,
			"error":  err.Error(),
		}).Error("request failed")
	}
	return c.Status(status).JSON(core.ErrorResponse{
		Error: publicMessage(err),
		Code:  status,
	})
}

var publicErrors = []error{
	core.ErrMissingCredential,
	core.ErrInvalidCredentials,
	core.ErrDuplicateUsername,
	core.ErrInvalidGrant,
	core.ErrUpstreamUnavailable,
	core.ErrUpstreamProtocol,
	core.ErrPasswordTooShort,
	core.ErrPasswordTooLong,
	core.ErrMissingAuthHeader,
	core.ErrInvalidAuthHeader,
	core.ErrInvalidToken,
	core.ErrSessionExpired,
}

func publicMessage(err error) string {
	for _, sentinel := range publicErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(http.StatusInternalServerError)
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidGrant),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrMissingCredential),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrDuplicateUsername):
		return http.StatusConflict

	case errors.Is(err, core.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, core.ErrUpstreamProtocol):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
