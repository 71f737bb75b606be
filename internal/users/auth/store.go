// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package auth

import (
	"context"
	"time"

	"github.com/tgvault/tgvault/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		Upsert inserts the user keyed by TelegramID, or refreshes the profile
		fields of the existing row. The operation is a single atomic statement:
		concurrent upserts for the same TelegramID converge on one row.

		On return the entity is hydrated with its ID, CreatedAt (preserved from
		first insert) and LastLoginAt.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Upsert(context context.Context, user *User) error

	/*
		FindByID returns the account with the given internal ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByTelegramID returns the account with the given Telegram identifier.

		Parameters:
		  - context: context.Context
		  - telegramID: int64

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByTelegramID(context context.Context, telegramID int64) (*User, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for login sessions.
type SessionRepository interface {

	/*
		Create persists a new session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the unexpired session matching the given token hash.
		An expired row is indistinguishable from an absent one.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		DeleteByTokenHash removes the session with the given token hash.
		Deleting an absent session is not an error (idempotent logout).

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - bool: Whether a row was actually removed
		  - error: Persistence failures
	*/
	DeleteByTokenHash(context context.Context, tokenHash string) (bool, error)

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context) (int64, error)
}

// # Volatile Data Access

// SessionCache defines the contract for the read-through session lookup cache.
//
// The cache is an optimization only: Postgres remains the source of truth,
// and every entry carries the session's absolute expiry as its TTL so a
// cached principal can never outlive its session.
type SessionCache interface {

	/*
		Set stores the resolved principal under the session's token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - principal: *sec.Principal
		  - ttl: time.Duration (remaining session lifetime)

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, tokenHash string, principal *sec.Principal, ttl time.Duration) error

	/*
		Get retrieves the cached principal for a token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *sec.Principal: Cached identity
		  - error: apperr.NotFound on miss, or connectivity errors
	*/
	Get(context context.Context, tokenHash string) (*sec.Principal, error)

	/*
		Delete evicts the cache entry for a token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Eviction failures
	*/
	Delete(context context.Context, tokenHash string) error
}
