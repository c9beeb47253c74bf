package pgx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/susi/core"
)

// Requirement: unique violations surface as the storage conflict errors.
func TestMapError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "username violation", err: &pgconn.PgError{Code: "23505", ConstraintName: usernameConstraint}, want: core.ErrUsernameConflict},
		{name: "provider id violation", err: &pgconn.PgError{Code: "23505", ConstraintName: providerIDConstraint}, want: core.ErrProviderIDConflict},
		{name: "wrapped violation", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: providerIDConstraint}), want: core.ErrProviderIDConflict},
		{name: "primary key violation passes through", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}},
		{name: "identifier check violation", err: &pgconn.PgError{Code: "23514", ConstraintName: identifierConstraint}, want: core.ErrUserIdentifierRequired},
		{name: "other check violation passes through", err: &pgconn.PgError{Code: "23514", ConstraintName: "users_other_check"}},
		{name: "other error passes through", err: other, want: other},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mapError(test.err)

			if test.want == nil && test.err != nil {
				if got != test.err {
					t.Errorf("mapError() = %v, want original error", got)
				}
				return
			}
			if got != test.want {
				t.Errorf("mapError() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Error("empty string should map to NULL")
	}
	if p := nullable("alice"); p == nil || *p != "alice" {
		t.Errorf("nullable(alice) = %v", p)
	}
	if deref(nil) != "" || deref(nullable("x")) != "x" {
		t.Error("deref should invert nullable")
	}
}

// newTestAdapter connects to SUSI_TEST_DATABASE_URL or skips.
func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	dsn := os.Getenv("SUSI_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SUSI_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	a := New(pool)
	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return a
}

func TestAdapter_RoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	user := &core.User{
		ID:            uuid.NewString(),
		ProviderID:    "gh-" + suffix,
		ProviderLogin: "octo",
		ProviderToken: "tok-1",
		Emails:        []string{"octo@example.com"},
	}
	if err := a.InsertUser(ctx, user); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}

	dup := &core.User{ID: uuid.NewString(), ProviderID: user.ProviderID}
	if err := a.InsertUser(ctx, dup); !errors.Is(err, core.ErrProviderIDConflict) {
		t.Fatalf("duplicate InsertUser() error = %v, want ErrProviderIDConflict", err)
	}

	user.ProviderToken = "tok-2"
	if err := a.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	got, err := a.FindUserByProviderID(ctx, user.ProviderID)
	if err != nil {
		t.Fatalf("FindUserByProviderID() error = %v", err)
	}
	if got.ID != user.ID || got.ProviderToken != "tok-2" || got.Username != "" {
		t.Errorf("FindUserByProviderID() = %+v", got)
	}

	if _, err := a.FindUserByUsername(ctx, "missing-"+suffix); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("FindUserByUsername() error = %v, want ErrUserNotFound", err)
	}
}
