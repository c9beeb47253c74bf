// Package sqlite provides a SQLite-backed core.UserStorage using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lborres/susi/core"
)

// Store persists identities in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ core.UserStorage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of concurrent inserts.
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const userColumns = `id, username, emails, provider_account_id, provider_login, provider_email,
	provider_profile_url, password_hash, provider_token, created_at, updated_at`

func (s *Store) FindUserByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	if providerID == "" {
		return nil, core.ErrUserNotFound
	}
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE provider_account_id = ?`, providerID)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*core.User, error) {
	if username == "" {
		return nil, core.ErrUserNotFound
	}
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		user                                           core.User
		username, providerID, login, email, profileURL sql.NullString
		hash, token                                    sql.NullString
		emailsJSON                                     string
		createdAt, updatedAt                           int64
	)
	err := s.sqlDB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &username, &emailsJSON, &providerID, &login, &email,
		&profileURL, &hash, &token, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := json.Unmarshal([]byte(emailsJSON), &user.Emails); err != nil {
		return nil, fmt.Errorf("decode user emails: %w", err)
	}
	if user.Emails == nil {
		user.Emails = []string{}
	}
	user.Username = username.String
	user.ProviderID = providerID.String
	user.ProviderLogin = login.String
	user.ProviderEmail = email.String
	user.ProviderProfileURL = profileURL.String
	user.PasswordHash = hash.String
	user.ProviderToken = token.String
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}

func (s *Store) InsertUser(ctx context.Context, user *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	emailsJSON, err := encodeEmails(user.Emails)
	if err != nil {
		return err
	}
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := user.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullString(user.Username),
		emailsJSON,
		nullString(user.ProviderID),
		nullString(user.ProviderLogin),
		nullString(user.ProviderEmail),
		nullString(user.ProviderProfileURL),
		nullString(user.PasswordHash),
		nullString(user.ProviderToken),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	emailsJSON, err := encodeEmails(user.Emails)
	if err != nil {
		return err
	}
	updatedAt := time.Now().UTC()

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET username = ?, emails = ?, provider_account_id = ?, provider_login = ?,
		   provider_email = ?, provider_profile_url = ?, password_hash = ?, provider_token = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(user.Username),
		emailsJSON,
		nullString(user.ProviderID),
		nullString(user.ProviderLogin),
		nullString(user.ProviderEmail),
		nullString(user.ProviderProfileURL),
		nullString(user.PasswordHash),
		nullString(user.ProviderToken),
		toMillis(updatedAt),
		user.ID,
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	user.UpdatedAt = updatedAt
	return nil
}

// mapConstraintError returns the storage conflict for a unique violation on
// username or provider id, or nil for anything else.
func mapConstraintError(err error) error {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3lib.SQLITE_CONSTRAINT_CHECK, sqlite3lib.SQLITE_CONSTRAINT:
	default:
		return nil
	}
	message := strings.ToLower(err.Error())
	switch {
	// users has a single CHECK: one of the two identifiers must be set.
	case strings.Contains(message, "check constraint failed"):
		return core.ErrUserIdentifierRequired
	case strings.Contains(message, "users.username"):
		return core.ErrUsernameConflict
	case strings.Contains(message, "users.provider_account_id"):
		return core.ErrProviderIDConflict
	}
	return nil
}

func encodeEmails(emails []string) (string, error) {
	if emails == nil {
		emails = []string{}
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return "", fmt.Errorf("encode user emails: %w", err)
	}
	return string(raw), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
