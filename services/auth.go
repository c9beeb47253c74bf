package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/lborres/susi/core"
)

const decoyPassword = "susi-decoy-password"

// PasswordPolicy bounds local password length in characters. Zero disables a bound.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

func (p PasswordPolicy) check(password string) error {
	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		return core.ErrPasswordTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return core.ErrPasswordTooLong
	}
	return nil
}

type AuthServiceConfig struct {
	Identities *IdentityService
	Sessions   *SessionManager
	// Provider may be nil when delegated login is not configured.
	Provider core.ProviderClient
	Hasher   core.PasswordHandler
	Policy   PasswordPolicy
	Logger   logrus.FieldLogger
}

type AuthService struct {
	identities *IdentityService
	sessions   *SessionManager
	provider   core.ProviderClient
	hasher     core.PasswordHandler
	policy     PasswordPolicy
	log        logrus.FieldLogger

	decoyOnce sync.Once
	decoyHash string
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		identities: cfg.Identities,
		sessions:   cfg.Sessions,
		provider:   cfg.Provider,
		hasher:     cfg.Hasher,
		policy:     cfg.Policy,
		log:        log,
	}
}

// AuthorizeWithProvider completes the delegated flow: exchange the code,
// fetch the profile, reconcile the identity and issue a session token.
func (s *AuthService) AuthorizeWithProvider(ctx context.Context, code string) (*core.AuthResult, error) {
	if code == "" {
		return nil, core.ErrMissingCredential
	}
	if s.provider == nil {
		return nil, core.ErrProviderNotConfigured
	}
	log := s.log.WithField("method", "github")

	// Step 1: Trade the code for an access token
	grant, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		log.WithField("error", err.Error()).Warn("code exchange failed")
		return nil, err
	}

	// Step 2: Fetch the profile with the fresh token
	profile, err := s.provider.FetchProfile(ctx, grant.AccessToken)
	if err != nil {
		log.WithField("error", err.Error()).Warn("profile fetch failed")
		return nil, err
	}
	if profile.AccessToken == "" {
		profile.AccessToken = grant.AccessToken
	}

	// Step 3: Reconcile to exactly one identity
	user, err := s.identities.FindOrCreateByProvider(ctx, profile)
	if err != nil {
		log.WithField("error", err.Error()).Error("identity reconciliation failed")
		return nil, err
	}

	// Step 4: Issue the session token
	token, err := s.sessions.IssueForProvider(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	log.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"provider_id": user.ProviderID,
	}).Info("provider login succeeded")

	return &core.AuthResult{User: user, Token: token}, nil
}

// Register creates a local identity and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, core.ErrMissingCredential
	}
	if err := s.policy.check(input.Password); err != nil {
		return nil, err
	}

	user, err := s.identities.CreateLocal(ctx, username, input.Password)
	if err != nil {
		if !errors.Is(err, core.ErrDuplicateUsername) {
			s.log.WithField("error", err.Error()).Error("local registration failed")
		}
		return nil, err
	}

	token, err := s.sessions.IssueForLocal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"method":  "password",
		"user_id": user.ID,
	}).Info("user registered")

	return &core.AuthResult{User: user, Token: token}, nil
}

// Login authenticates a local identity. Unknown usernames and wrong
// passwords fail with the same error after the same hashing work.
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, core.ErrMissingCredential
	}

	// Step 1: Find the user by username
	user, err := s.identities.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			s.verifyDecoy(input.Password)
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Step 2: Verify the password
	valid, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.WithField("user_id", user.ID).Warn("stored password hash could not be verified")
		return nil, core.ErrInvalidCredentials
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	// Step 3: Issue the session token
	token, err := s.sessions.IssueForLocal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"method":  "password",
		"user_id": user.ID,
	}).Info("local login succeeded")

	return &core.AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) ProviderLoginURL() (string, error) {
	if s.provider == nil {
		return "", core.ErrProviderNotConfigured
	}
	return s.provider.LoginURL()
}

// CurrentUser resolves the identity a session token was issued for.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*core.User, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}

	var user *core.User
	if claims.ProviderID != "" {
		user, err = s.identities.FindByProviderID(ctx, claims.ProviderID)
	} else {
		user, err = s.identities.FindByUsername(ctx, claims.Username)
	}
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if claims.UserID != "" && claims.UserID != user.ID {
		return nil, core.ErrInvalidToken
	}
	return user, nil
}

// verifyDecoy spends one verification on a throwaway hash.
func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err == nil {
			s.decoyHash = hash
		}
	})
	if s.decoyHash != "" {
		_, _ = s.hasher.Verify(password, s.decoyHash)
	}
}
