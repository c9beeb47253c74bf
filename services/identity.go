package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/susi/core"
)

// maxReconcileAttempts bounds the find-insert loop when concurrent logins for
// the same provider account race on the unique index.
const maxReconcileAttempts = 3

// IdentityService maps authenticated facts to exactly one stored identity.
//
// Uniqueness is enforced by the store; this service only resolves the
// conflicts the store reports.
type IdentityService struct {
	db     core.UserStorage
	hasher core.PasswordHandler
	now    func() time.Time
}

func NewIdentityService(db core.UserStorage, hasher core.PasswordHandler) *IdentityService {
	return &IdentityService{db: db, hasher: hasher, now: time.Now}
}

// FindOrCreateByProvider returns the identity bound to the profile's account
// id, creating it on first sight. An existing identity has its cached token
// and provider details refreshed.
func (s *IdentityService) FindOrCreateByProvider(ctx context.Context, profile *core.ProviderProfile) (*core.User, error) {
	if profile == nil || profile.AccountID == "" {
		return nil, core.ErrUpstreamProtocol
	}

	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		existing, err := s.db.FindUserByProviderID(ctx, profile.AccountID)
		switch {
		case err == nil:
			return s.refreshProvider(ctx, existing, profile)
		case !errors.Is(err, core.ErrUserNotFound):
			return nil, fmt.Errorf("failed to find user by provider id: %w", err)
		}

		user := s.newProviderUser(profile)
		err = s.db.InsertUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, core.ErrProviderIDConflict) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		// Lost the race; the winner's row is visible on the next lookup.
	}

	return nil, fmt.Errorf("failed to reconcile provider identity after %d attempts: %w",
		maxReconcileAttempts, core.ErrProviderIDConflict)
}

func (s *IdentityService) newProviderUser(profile *core.ProviderProfile) *core.User {
	now := s.now()
	user := &core.User{
		ID:                 uuid.NewString(),
		Emails:             []string{},
		ProviderID:         profile.AccountID,
		ProviderLogin:      profile.Login,
		ProviderEmail:      profile.Email,
		ProviderProfileURL: profile.ProfileURL,
		ProviderToken:      profile.AccessToken,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	user.AddEmails(profile.Email)
	user.AddEmails(profile.Emails...)
	return user
}

func (s *IdentityService) refreshProvider(ctx context.Context, user *core.User, profile *core.ProviderProfile) (*core.User, error) {
	user.ProviderToken = profile.AccessToken
	user.ProviderLogin = profile.Login
	if profile.Email != "" {
		user.ProviderEmail = profile.Email
	}
	if profile.ProfileURL != "" {
		user.ProviderProfileURL = profile.ProfileURL
	}
	user.AddEmails(profile.Email)
	user.AddEmails(profile.Emails...)
	user.UpdatedAt = s.now()

	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// CreateLocal stores a new username/password identity. The username is
// trimmed but otherwise kept as given.
func (s *IdentityService) CreateLocal(ctx context.Context, username, password string) (*core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, core.ErrMissingCredential
	}

	_, err := s.db.FindUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, core.ErrDuplicateUsername
	case !errors.Is(err, core.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &core.User{
		ID:           uuid.NewString(),
		Username:     username,
		Emails:       []string{},
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.InsertUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrUsernameConflict) {
			return nil, core.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.db.FindUserByUsername(ctx, strings.TrimSpace(username))
}

func (s *IdentityService) FindByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	return s.db.FindUserByProviderID(ctx, providerID)
}
