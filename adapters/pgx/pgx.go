// Package pgx stores identities in PostgreSQL through a pgx connection pool.
package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/susi/core"
)

const (
	usernameConstraint   = "users_username_key"
	providerIDConstraint = "users_provider_account_id_key"
	identifierConstraint = "users_identifier_check"
)

// schema is applied by Migrate. Absent identifiers are stored as NULL, so
// each UNIQUE constraint only covers present values.
const schema = `
CREATE TABLE IF NOT EXISTS public.users (
	id                   uuid PRIMARY KEY,
	username             text,
	emails               text[] NOT NULL DEFAULT '{}',
	provider_account_id  text,
	provider_login       text,
	provider_email       text,
	provider_profile_url text,
	password_hash        text,
	provider_token       text,
	created_at           timestamptz NOT NULL DEFAULT now(),
	updated_at           timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT ` + usernameConstraint + ` UNIQUE (username),
	CONSTRAINT ` + providerIDConstraint + ` UNIQUE (provider_account_id),
	CONSTRAINT ` + identifierConstraint + ` CHECK (username IS NOT NULL OR provider_account_id IS NOT NULL)
)`

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.UserStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

// Migrate creates the users table when it does not exist.
func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}
