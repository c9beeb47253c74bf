package services

import (
	"testing"

	"github.com/lborres/susi/core"
)

// Requirement: BaseEndpoints returns framework-agnostic endpoint definitions
// with all required paths, methods and metadata.
func TestBaseEndpoints(t *testing.T) {
	tests := []struct {
		name          string
		wantPath      string
		wantMethod    string
		wantOpID      string
		wantProtected bool
	}{
		{
			name:       "returns github login url endpoint",
			wantPath:   "/github/login-url",
			wantMethod: "GET",
			wantOpID:   OpProviderLoginURL,
		},
		{
			name:       "returns github authorize endpoint",
			wantPath:   "/github/authorize",
			wantMethod: "POST",
			wantOpID:   OpAuthorize,
		},
		{
			name:       "returns register endpoint",
			wantPath:   "/register",
			wantMethod: "POST",
			wantOpID:   OpRegister,
		},
		{
			name:       "returns login endpoint",
			wantPath:   "/login",
			wantMethod: "POST",
			wantOpID:   OpLogin,
		},
		{
			name:          "returns protected current user endpoint",
			wantPath:      "/me",
			wantMethod:    "GET",
			wantOpID:      OpCurrentUser,
			wantProtected: true,
		},
	}

	// Arrange
	endpoints := BaseEndpoints()

	if len(endpoints) != len(tests) {
		t.Fatalf("BaseEndpoints should return %d endpoints, got %d", len(tests), len(endpoints))
	}

	byPath := make(map[string]core.Endpoint)
	for _, ep := range endpoints {
		byPath[ep.Path] = ep
	}

	// Act & Assert
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ep, found := byPath[test.wantPath]
			if !found {
				t.Fatalf("BaseEndpoints should include endpoint for path %q", test.wantPath)
			}
			if ep.Method != test.wantMethod {
				t.Errorf("endpoint %q should have method %s; got %s", test.wantPath, test.wantMethod, ep.Method)
			}
			if ep.Metadata.OperationID != test.wantOpID {
				t.Errorf("endpoint %q should have OperationID %q; got %q", test.wantPath, test.wantOpID, ep.Metadata.OperationID)
			}
			if ep.Metadata.Description == "" {
				t.Errorf("endpoint %q should have a description", test.wantPath)
			}
			if ep.Protected != test.wantProtected {
				t.Errorf("endpoint %q Protected = %v; want %v", test.wantPath, ep.Protected, test.wantProtected)
			}
		})
	}
}

// Requirement: All endpoints must have unique OperationIDs.
func TestBaseEndpoints_OperationIDsAreUnique(t *testing.T) {
	operationIDs := make(map[string]bool)
	for _, ep := range BaseEndpoints() {
		if operationIDs[ep.Metadata.OperationID] {
			t.Errorf("BaseEndpoints contains duplicate OperationID: %q", ep.Metadata.OperationID)
		}
		operationIDs[ep.Metadata.OperationID] = true
	}
}

// Requirement: EndpointRegistry registers all base endpoints on creation
// and returns them in declaration order.
func TestEndpointRegistry_RegistersBaseEndpoints(t *testing.T) {
	// Arrange & Act
	registry := NewEndpointRegistry()

	// Assert
	endpoints := registry.Endpoints()
	base := BaseEndpoints()
	if len(endpoints) != len(base) {
		t.Fatalf("EndpointRegistry should register %d base endpoints; got %d", len(base), len(endpoints))
	}
	for i, ep := range endpoints {
		if ep.Path != base[i].Path || ep.Method != base[i].Method {
			t.Errorf("endpoint %d = %s %s; want %s %s", i, ep.Method, ep.Path, base[i].Method, base[i].Path)
		}
	}
}

// Requirement: EndpointRegistry detects and rejects duplicate endpoint registrations
// (same METHOD:PATH combination).
func TestEndpointRegistry_DetectsConflicts(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		method  string
		wantErr bool
	}{
		{name: "rejects duplicate POST /login", path: "/login", method: "POST", wantErr: true},
		{name: "rejects duplicate GET /me", path: "/me", method: "GET", wantErr: true},
		{name: "allows different path same method", path: "/custom", method: "POST", wantErr: false},
		{name: "allows same path different method", path: "/login", method: "GET", wantErr: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			registry := NewEndpointRegistry()
			plugin := []core.Endpoint{makeEndpoint(test.path, test.method, "customOp")}

			// Act
			err := registry.RegisterPlugin(plugin)

			// Assert
			if (err != nil) != test.wantErr {
				t.Errorf("RegisterPlugin should error=%v; got error=%v (%v)", test.wantErr, err != nil, err)
			}
		})
	}
}

// Requirement: a rejected plugin batch registers nothing.
func TestEndpointRegistry_RegisterPlugin_IsAtomic(t *testing.T) {
	tests := []struct {
		name      string
		plugins   []core.Endpoint
		wantCount int
		wantErr   bool
	}{
		{
			name:      "registers single plugin endpoint",
			plugins:   []core.Endpoint{makeEndpoint("/logout", "POST", "logout")},
			wantCount: 6,
		},
		{
			name: "registers multiple plugin endpoints",
			plugins: []core.Endpoint{
				makeEndpoint("/logout", "POST", "logout"),
				makeEndpoint("/change-password", "POST", "changePassword"),
			},
			wantCount: 7,
		},
		{
			name: "rejects batch with internal duplicate",
			plugins: []core.Endpoint{
				makeEndpoint("/logout", "POST", "logout"),
				makeEndpoint("/logout", "POST", "logoutAgain"),
			},
			wantCount: 5,
			wantErr:   true,
		},
		{
			name: "rejects batch conflicting with base",
			plugins: []core.Endpoint{
				makeEndpoint("/logout", "POST", "logout"),
				makeEndpoint("/register", "POST", "registerAgain"),
			},
			wantCount: 5,
			wantErr:   true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			registry := NewEndpointRegistry()

			err := registry.RegisterPlugin(test.plugins)

			if (err != nil) != test.wantErr {
				t.Errorf("RegisterPlugin should error=%v; got %v", test.wantErr, err)
			}
			if got := len(registry.Endpoints()); got != test.wantCount {
				t.Errorf("EndpointRegistry should have %d endpoints; got %d", test.wantCount, got)
			}
		})
	}
}

func TestEndpointRegistry_Find(t *testing.T) {
	registry := NewEndpointRegistry()

	ep, ok := registry.Find(OpCurrentUser)
	if !ok || ep.Path != "/me" {
		t.Errorf("Find(%q) = %v, %v; want /me", OpCurrentUser, ep, ok)
	}

	if _, ok := registry.Find("unknown"); ok {
		t.Error("Find should report unknown operation ids as missing")
	}
}

func makeEndpoint(path, method, opID string) core.Endpoint {
	return core.Endpoint{
		Path:   path,
		Method: method,
		Metadata: core.EndpointMetadata{
			OperationID: opID,
			Description: "Plugin endpoint",
		},
	}
}
