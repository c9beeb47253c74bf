package susi

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lborres/susi/core"
	"github.com/lborres/susi/pkg/crypto"
	"github.com/lborres/susi/providers/github"
	"github.com/lborres/susi/services"
)

// interfaces
type (
	UserStorage     = core.UserStorage
	ProviderClient  = core.ProviderClient
	PasswordHandler = core.PasswordHandler
	TokenSigner     = core.TokenSigner
	HTTPAdapter     = core.HTTPAdapter
	AuthHandler     = core.AuthHandler
)

// structs
type (
	Config         = core.Config
	ProviderConfig = core.ProviderConfig
)

type (
	User            = core.User
	ProviderProfile = core.ProviderProfile
	SessionClaims   = core.SessionClaims
	AuthResult      = core.AuthResult
	RegisterInput   = core.RegisterInput
	LoginInput      = core.LoginInput
)

const (
	defaultBasePath          = "/api/auth"
	defaultSecretLen         = 32
	defaultTokenTTL          = 24 * time.Hour
	defaultPasswordMaxLength = 128
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2 = crypto.NewArgon2
	NewBcrypt = crypto.NewBcrypt
)

var (
	ErrMissingCredential   = core.ErrMissingCredential
	ErrInvalidCredentials  = core.ErrInvalidCredentials
	ErrDuplicateUsername   = core.ErrDuplicateUsername
	ErrInvalidGrant        = core.ErrInvalidGrant
	ErrUpstreamUnavailable = core.ErrUpstreamUnavailable
	ErrUpstreamProtocol    = core.ErrUpstreamProtocol
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrSessionExpired    = core.ErrSessionExpired
	ErrPasswordTooShort  = core.ErrPasswordTooShort
	ErrPasswordTooLong   = core.ErrPasswordTooLong
	ErrUserNotFound      = core.ErrUserNotFound
)

var (
	ErrConfiguration         = core.ErrConfiguration
	ErrSecretRequired        = core.ErrSecretRequired
	ErrSecretTooShort        = core.ErrSecretTooShort
	ErrDBAdapterRequired     = core.ErrDBAdapterRequired
	ErrProviderNotConfigured = core.ErrProviderNotConfigured
)

// Susi is the assembled authentication core. The embedded AuthService
// serves the five inbound operations.
type Susi struct {
	*services.AuthService

	Identities *services.IdentityService
	Sessions   *services.SessionManager
	BasePath   string
}

func New(config Config) (*Susi, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}

	// Set Defaults

	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	// Zero means the default lifetime; a negative TTL issues tokens without exp.
	tokenTTL := config.TokenTTL
	switch {
	case tokenTTL == 0:
		tokenTTL = defaultTokenTTL
	case tokenTTL < 0:
		tokenTTL = 0
	}

	maxLength := config.PasswordMaxLength
	if maxLength == 0 {
		maxLength = defaultPasswordMaxLength
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	// A nil provider leaves delegated login disabled; calls then fail
	// with ErrProviderNotConfigured.
	provider := config.ProviderClient
	if provider == nil && config.Provider.ClientID != "" {
		provider = github.New(config.Provider, github.WithLogger(log))
	}

	sessions := services.NewSessionManager(crypto.NewJWTSigner(crypto.JWTConfig{
		Secret: config.Secret,
		Issuer: config.Issuer,
		TTL:    tokenTTL,
	}))
	identities := services.NewIdentityService(config.Database, passwordHasher)

	auth := services.NewAuthService(services.AuthServiceConfig{
		Identities: identities,
		Sessions:   sessions,
		Provider:   provider,
		Hasher:     passwordHasher,
		Policy: services.PasswordPolicy{
			MinLength: config.PasswordMinLength,
			MaxLength: maxLength,
		},
		Logger: log,
	})

	s := &Susi{
		AuthService: auth,
		Identities:  identities,
		Sessions:    sessions,
		BasePath:    basePath,
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(s, basePath); err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"base_path":        basePath,
		"provider_enabled": provider != nil,
		"http_enabled":     config.HTTP != nil,
	}).Info("susi initialized")

	return s, nil
}
