package core

import "context"

// Ports define interfaces for external dependencies

// ============================================
// CRYPTO PORTS
// ============================================

// PasswordHandler hashes and verifies local passwords.
// Verify must return false, without error, for an empty hash.
type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// TokenSigner issues and parses signed session tokens
type TokenSigner interface {
	Issue(claims SessionClaims) (string, error)
	Parse(token string) (*SessionClaims, error)
}

// ============================================
// PROVIDER PORT (delegated authentication)
// ============================================

// ProviderClient talks to the OAuth2 identity provider.
//
// ExchangeCode and FetchProfile are separate calls: a profile is only
// fetched with a token the provider has just issued.
type ProviderClient interface {
	LoginURL() (string, error)
	ExchangeCode(ctx context.Context, code string) (*ProviderGrant, error)
	FetchProfile(ctx context.Context, accessToken string) (*ProviderProfile, error)
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	AuthorizeWithProvider(ctx context.Context, code string) (*AuthResult, error)
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	ProviderLoginURL() (string, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, basePath string) error
}
