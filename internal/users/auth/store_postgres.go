// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

// PostgreSQL implementations of the auth repositories.
//
// # Architecture
//
// Repositories in this file are strictly separated from domain logic. They
// implement domain-defined interfaces (e.g., [UserRepository]) using the
// [pgxpool.Pool] connection manager.
//
// # err Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/database/schema"
)

// Column lists reused by every SELECT; scan order follows Columns().
var (
	accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")
	sessionColumns = strings.Join(schema.UserSession.Columns(), ", ")
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Upsert inserts or refreshes a user record keyed by their Telegram ID.

Description: Single-statement INSERT ... ON CONFLICT so concurrent logins for
the same Telegram user can never produce duplicate rows. The original
createdat survives the update; profile fields and lastloginat are refreshed.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist; hydrated with ID/CreatedAt/LastLoginAt on return)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Upsert(context context.Context, user *User) error {
	account := schema.UserAccount
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = NOW()
		RETURNING %s, %s, %s`,
		account.Table,
		account.TelegramID, account.Username, account.FirstName, account.LastName,
		account.LanguageCode, account.IsPremium, account.CreatedAt, account.LastLoginAt,
		account.TelegramID,
		account.Username, account.Username,
		account.FirstName, account.FirstName,
		account.LastName, account.LastName,
		account.LanguageCode, account.LanguageCode,
		account.IsPremium, account.IsPremium,
		account.LastLoginAt,
		account.ID, account.CreatedAt, account.LastLoginAt,
	)

	err := repository.pool.QueryRow(context, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
		user.IsPremium,
	).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_upsert_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by their internal ID.

Description: Primary key resolution for user accounts.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.IsPremium,
		&user.CreatedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByTelegramID retrieves a user record by their Telegram identifier.

Description: Stable-identity lookup used when resolving sessions and profiles.

Parameters:
  - context: context.Context
  - telegramID: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByTelegramID(context context.Context, telegramID int64) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.TelegramID)

	user := &User{}
	err := repository.pool.QueryRow(context, query, telegramID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.IsPremium,
		&user.CreatedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_telegram_id_failed: %w", err)
	}

	return user, nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Description: Records a successful authentication session in persistent storage.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)`,
		schema.UserSession.Table, sessionColumns)

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenHash retrieves an unexpired session by its unique token hash.

Description: The expiry filter lives in the query itself, so an expired row
produces exactly the same result as a row that never existed.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1 AND %s > NOW()`,
		sessionColumns, schema.UserSession.Table,
		schema.UserSession.TokenHash, schema.UserSession.ExpiresAt)

	session := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session not found or expired")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

/*
DeleteByTokenHash removes a session row by its token hash.

Description: Zero rows affected is a success: logout is idempotent and a
second destroy of the same token must not fail.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - bool: Whether a row was actually removed
  - error: Deletion failures
*/
func (repository *PostgresSessionRepository) DeleteByTokenHash(context context.Context, tokenHash string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.UserSession.Table, schema.UserSession.TokenHash)

	tag, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of rows removed
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s <= NOW()`,
		schema.UserSession.Table, schema.UserSession.ExpiresAt)

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
