package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/susi/core"
)

const userColumns = `id::text, username, emails, provider_account_id, provider_login, provider_email,
	provider_profile_url, password_hash, provider_token, created_at, updated_at`

func (a *Adapter) FindUserByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	if providerID == "" {
		return nil, core.ErrUserNotFound
	}
	q := `SELECT ` + userColumns + ` FROM public.users WHERE provider_account_id = $1`
	return scanUser(a.pool.QueryRow(ctx, q, providerID))
}

func (a *Adapter) FindUserByUsername(ctx context.Context, username string) (*core.User, error) {
	if username == "" {
		return nil, core.ErrUserNotFound
	}
	q := `SELECT ` + userColumns + ` FROM public.users WHERE username = $1`
	return scanUser(a.pool.QueryRow(ctx, q, username))
}

func (a *Adapter) InsertUser(ctx context.Context, user *core.User) error {
	query := `INSERT INTO public.users (id, username, emails, provider_account_id, provider_login, provider_email,
		provider_profile_url, password_hash, provider_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := a.pool.Exec(ctx, query,
		user.ID,
		nullable(user.Username),
		emails(user.Emails),
		nullable(user.ProviderID),
		nullable(user.ProviderLogin),
		nullable(user.ProviderEmail),
		nullable(user.ProviderProfileURL),
		nullable(user.PasswordHash),
		nullable(user.ProviderToken),
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err)
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	q := `UPDATE public.users SET username = $1, emails = $2, provider_account_id = $3, provider_login = $4,
		provider_email = $5, provider_profile_url = $6, password_hash = $7, provider_token = $8, updated_at = now()
		WHERE id = $9 RETURNING updated_at`

	var updatedAt time.Time
	err := a.pool.QueryRow(ctx, q,
		nullable(user.Username),
		emails(user.Emails),
		nullable(user.ProviderID),
		nullable(user.ProviderLogin),
		nullable(user.ProviderEmail),
		nullable(user.ProviderProfileURL),
		nullable(user.PasswordHash),
		nullable(user.ProviderToken),
		user.ID,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrUserNotFound
		}
		return mapError(err)
	}
	user.UpdatedAt = updatedAt
	return nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	var username, providerID, login, email, profileURL, hash, token *string

	err := row.Scan(&user.ID, &username, &user.Emails, &providerID, &login, &email,
		&profileURL, &hash, &token, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	user.Username = deref(username)
	user.ProviderID = deref(providerID)
	user.ProviderLogin = deref(login)
	user.ProviderEmail = deref(email)
	user.ProviderProfileURL = deref(profileURL)
	user.PasswordHash = deref(hash)
	user.ProviderToken = deref(token)
	if user.Emails == nil {
		user.Emails = []string{}
	}
	return user, nil
}

// mapError translates unique violations into the storage conflict errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23505" && pgErr.ConstraintName == usernameConstraint:
		return core.ErrUsernameConflict
	case pgErr.Code == "23505" && pgErr.ConstraintName == providerIDConstraint:
		return core.ErrProviderIDConflict
	case pgErr.Code == "23514" && pgErr.ConstraintName == identifierConstraint:
		return core.ErrUserIdentifierRequired
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func emails(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
