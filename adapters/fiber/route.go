// Package fiber mounts the authentication endpoints on a Fiber v3 app.
package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/lborres/susi/core"
	"github.com/lborres/susi/services"
)

type Adapter struct {
	app      *fiber.App
	registry *services.EndpointRegistry
	log      logrus.FieldLogger
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithRegistry mounts the endpoints of a custom registry instead of the base set.
func WithRegistry(r *services.EndpointRegistry) Option {
	return func(a *Adapter) {
		if r != nil {
			a.registry = r
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{
		app:      app,
		registry: services.NewEndpointRegistry(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes binds a handler to every registry endpoint under basePath.
// Protected endpoints run behind the bearer token middleware.
func (a *Adapter) RegisterRoutes(handler core.AuthHandler, basePath string) error {
	api := a.app.Group(basePath)
	auth := a.requireAuth(handler)

	for _, ep := range a.registry.Endpoints() {
		h, ok := a.handlerFor(ep.Metadata.OperationID, handler)
		if !ok {
			return fmt.Errorf("no fiber handler for operation %q", ep.Metadata.OperationID)
		}

		var route func(string, fiber.Handler, fiber.Handler)
		switch ep.Method {
		case fiber.MethodGet:
			route = func(path string, mw, h fiber.Handler) { api.Get(path, mw, h) }
		case fiber.MethodPost:
			route = func(path string, mw, h fiber.Handler) { api.Post(path, mw, h) }
		default:
			return fmt.Errorf("unsupported method %s for %s", ep.Method, ep.Path)
		}

		if ep.Protected {
			route(ep.Path, auth, h)
		} else {
			route(ep.Path, passThrough, h)
		}

		a.log.WithFields(logrus.Fields{
			"method": ep.Method,
			"path":   basePath + ep.Path,
		}).Debug("route registered")
	}

	return nil
}

func passThrough(c fiber.Ctx) error {
	return c.Next()
}

func (a *Adapter) handlerFor(operationID string, handler core.AuthHandler) (fiber.Handler, bool) {
	switch operationID {
	case services.OpProviderLoginURL:
		return a.loginURL(handler), true
	case services.OpAuthorize:
		return a.authorize(handler), true
	case services.OpRegister:
		return a.register(handler), true
	case services.OpLogin:
		return a.login(handler), true
	case services.OpCurrentUser:
		return a.me(), true
	}
	return nil, false
}
