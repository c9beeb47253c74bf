package core

import (
	"errors"
	"fmt"
)

// Authentication Related Errors
var (
	ErrMissingCredential   = errors.New("missing credential")                    // 400 Bad Request
	ErrInvalidCredentials  = errors.New("invalid username or password")          // 401 Unauthorized
	ErrDuplicateUsername   = errors.New("username already taken")                // 409 Conflict
	ErrInvalidGrant        = errors.New("authorization grant rejected")          // 401 Unauthorized
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")         // 503 Service Unavailable
	ErrUpstreamProtocol    = errors.New("unexpected identity provider response") // 502 Bad Gateway
)

// Validation errors (client input)
var (
	ErrPasswordTooShort = errors.New("password is too short") // 400
	ErrPasswordTooLong  = errors.New("password is too long")  // 400
)

// Session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")                            // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrInvalidToken      = errors.New("invalid session token")                                   // 401
	ErrSessionExpired    = errors.New("session expired")                                         // 401
)

// Storage errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameConflict   = errors.New("username already stored")
	ErrProviderIDConflict = errors.New("provider account already stored")

	ErrUserIdentifierRequired = errors.New("user needs a username or provider account id")
)

// ErrConfiguration marks missing or invalid process-wide configuration.
// Every config error below wraps it.
var ErrConfiguration = errors.New("configuration error") // 500

// Config errors (server-side configuration)
var (
	ErrSecretRequired        = fmt.Errorf("%w: token signing secret is required", ErrConfiguration)
	ErrSecretTooShort        = fmt.Errorf("%w: token signing secret too short", ErrConfiguration)
	ErrDBAdapterRequired     = fmt.Errorf("%w: database adapter is required", ErrConfiguration)
	ErrProviderNotConfigured = fmt.Errorf("%w: provider client id, secret or callback url not set", ErrConfiguration)
)
