package core

import "context"

// UserStorage is the narrow persistence boundary for identities.
//
// Implementations must enforce uniqueness of Username and ProviderID
// independently (absent values are not constrained) and report a unique
// violation from InsertUser as ErrUsernameConflict or ErrProviderIDConflict.
// Lookups that match nothing return ErrUserNotFound. A record with neither
// identifier is rejected with ErrUserIdentifierRequired.
type UserStorage interface {
	FindUserByProviderID(ctx context.Context, providerID string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)

	InsertUser(ctx context.Context, u *User) error

	UpdateUser(ctx context.Context, u *User) error
}
