package services

import (
	"fmt"

	"github.com/lborres/susi/core"
)

// Operation ids shared by the registry and the HTTP adapters.
const (
	OpProviderLoginURL = "getGitHubLoginUrl"
	OpAuthorize        = "authorizeWithGitHub"
	OpRegister         = "registerWithUsernameAndPassword"
	OpLogin            = "loginWithUsernameAndPassword"
	OpCurrentUser      = "getCurrentUser"
)

// BaseEndpoints returns framework-agnostic endpoint definitions
// for all core authentication endpoints.
//
// Each endpoint is a template: adapters bind their own handler to the
// OperationID, so several frameworks can share one set of definitions.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/github/login-url",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: OpProviderLoginURL,
				Description: "Get the GitHub authorization URL to send the user agent to",
			},
		},
		{
			Path:   "/github/authorize",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpAuthorize,
				Description: "Exchange a GitHub authorization code for a session token",
				RequestBody: core.AuthorizeInput{},
			},
		},
		{
			Path:   "/register",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpRegister,
				Description: "Register a user using username and password",
				RequestBody: core.RegisterInput{},
			},
		},
		{
			Path:   "/login",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: OpLogin,
				Description: "Log in a user using username and password",
				RequestBody: core.LoginInput{},
			},
		},
		{
			Path:      "/me",
			Method:    "GET",
			Protected: true,
			Metadata: core.EndpointMetadata{
				OperationID: OpCurrentUser,
				Description: "Get the user the bearer token was issued for",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
	// order keeps registration order so adapters mount routes predictably
	order []string
}

// NewEndpointRegistry creates a new registry with all base authentication endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	for _, ep := range BaseEndpoints() {
		ep := ep
		_ = reg.register(&ep)
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint to the registry with conflict detection.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional endpoints. If any endpoint conflicts
// with an existing one or with another in the same batch, none are registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		key := endpointKey(&endpoints[i])

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		_ = r.register(&ep)
	}

	return nil
}

// Endpoints returns all registered endpoints in registration order.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.endpoints[key])
	}
	return result
}

// Find returns the endpoint for an operation id.
func (r *EndpointRegistry) Find(operationID string) (*core.Endpoint, bool) {
	for _, key := range r.order {
		if ep := r.endpoints[key]; ep.Metadata.OperationID == operationID {
			return ep, true
		}
	}
	return nil, false
}
