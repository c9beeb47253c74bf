package core

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint is a framework-agnostic route template. Adapters bind their own
// handler to each OperationID.
type Endpoint struct {
	Path      string
	Method    string
	Protected bool
	Metadata  EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	RequestBody interface{} // for validation
	Responses   map[int]interface{}
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
