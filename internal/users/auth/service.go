// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package auth implements the core identity and access management system.

It handles the full Telegram Mini App login lifecycle: cryptographic
verification of initData payloads, atomic user directory upserts, and opaque
session tokens persisted in Postgres with a Redis read-through cache.

Architecture:

  - Service: Orchestrates business logic (Authenticate, ResolveSession, Logout).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions) and Redis (Cache).
  - Security: Random 256-bit tokens, stored only as SHA-256 hashes.

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/ctxutil"
	"github.com/tgvault/tgvault/internal/platform/metrics"
	"github.com/tgvault/tgvault/internal/platform/sec"
	"github.com/tgvault/tgvault/internal/platform/validate"
	"github.com/tgvault/tgvault/internal/telegram"
	"github.com/tgvault/tgvault/pkg/uuid"
)

// # Contracts & Types

// InitDataVerifier defines the contract for validating Telegram initData payloads.
type InitDataVerifier interface {
	// Verify checks signature and freshness of a raw payload.
	Verify(initData string) (url.Values, error)

	// ExtractIdentity reads the user object out of a verified payload.
	ExtractIdentity(values url.Values) (*telegram.Identity, error)
}

// Service implements authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to verification, token
// issuance, or session resolution must be reviewed carefully.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	sessionCache      SessionCache
	verifier          InitDataVerifier
	metrics           *metrics.Metrics
	logger            *slog.Logger

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	cache SessionCache,
	verifier InitDataVerifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		sessionCache:      cache,
		verifier:          verifier,
		metrics:           m,
		logger:            logger,
		now:               time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests only.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Authentication Flow

// AuthSession represents a successfully established login.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

/*
Authenticate verifies a raw initData payload and establishes a session.

Description: Runs the full login pipeline: cryptographic verification,
identity extraction, atomic directory upsert, and opaque token issuance.
The caller learns only a generic rejection; the precise failure reason goes
to logs and metrics.

Parameters:
  - context: context.Context
  - initData: string (raw payload from the Mini App)

Returns:
  - *AuthSession: Transport-ready session token and user profile
  - error: Unauthorized (verification failure), ValidationError (bad identity),
    or internal failures
*/
func (service *Service) Authenticate(context context.Context, initData string) (*AuthSession, error) {

	// Cryptographic verification. Reasons stay internal to prevent a forger
	// from learning which check tripped.
	values, err := service.verifier.Verify(initData)
	if err != nil {
		service.recordAuthFailure(context, err)
		return nil, apperr.Unauthorized("Invalid Telegram authentication")
	}

	// A valid signature with a broken identity is a client bug, not a forgery.
	identity, err := service.verifier.ExtractIdentity(values)
	if err != nil {
		service.recordAuthFailure(context, err)
		return nil, apperr.ValidationError("Missing or invalid Telegram user")
	}

	// The extractor rejects non-positive IDs already; this is the last gate
	// before a directory row can be associated with the identity.
	var v validate.Validator
	if err := v.PositiveInt("telegram_id", identity.TelegramID).Err(); err != nil {
		service.recordAuthFailure(context, err)
		return nil, err
	}

	// Converge on the directory row for this Telegram user. Single atomic
	// statement, so concurrent logins cannot duplicate the account.
	user := &User{
		TelegramID:   identity.TelegramID,
		Username:     identity.Username,
		FirstName:    identity.FirstName,
		LastName:     identity.LastName,
		LanguageCode: identity.LanguageCode,
		IsPremium:    identity.IsPremium,
	}
	if err := service.userRepository.Upsert(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_upsert_failed: %w", err)
	}

	// Issue the opaque session token. Only its hash ever touches storage.
	token, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	expiresAt := service.now().Add(constants.SessionTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(token),
		ExpiresAt: expiresAt,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	// Warm the lookup cache. Best effort: a cache failure must not fail login.
	principal := principalFor(user)
	if err := service.sessionCache.Set(context, session.TokenHash, principal, constants.SessionTTL); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "session_cache_warm_failed", slog.Any("error", err))
	}

	service.metrics.AuthAttempts.WithLabelValues("success").Inc()
	service.metrics.SessionsActive.Inc()

	return &AuthSession{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// # Session Resolution

/*
ResolveSession maps an opaque session token to its authenticated principal.

Description: Consults the Redis cache first, falling back to Postgres. An
unknown token, an expired session, and a session whose user row has vanished
all yield the same Unauthorized answer to the caller; the last case is
additionally logged as a data integrity defect.

Parameters:
  - context: context.Context
  - token: string (opaque session token from the cookie)

Returns:
  - *sec.Principal: The authenticated identity
  - error: Unauthorized or internal failures
*/
func (service *Service) ResolveSession(context context.Context, token string) (*sec.Principal, error) {
	tokenHash := sec.HashToken(token)

	// Fast path: cache entries expire together with the session, so a hit
	// is authoritative.
	if principal, err := service.sessionCache.Get(context, tokenHash); err == nil {
		return principal, nil
	}

	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	// The repository already filters expiry, but the service clock is
	// authoritative for tests and clock-skewed replicas.
	if !session.ExpiresAt.After(service.now()) {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		// A live session pointing at a missing user means storage lost an
		// invariant. The client just sees an expired session.
		ctxutil.GetLogger(context).ErrorContext(context, "session_integrity_defect",
			slog.String("session_id", session.ID),
			slog.Int64("user_id", session.UserID),
			slog.Any("error", err),
		)
		return nil, apperr.IntegrityDefect(fmt.Errorf("session %s references missing user %d", session.ID, session.UserID))
	}

	principal := principalFor(user)

	// Backfill the cache for subsequent requests on this session.
	if err := service.sessionCache.Set(context, tokenHash, principal, time.Until(session.ExpiresAt)); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "session_cache_backfill_failed", slog.Any("error", err))
	}

	return principal, nil
}

/*
CurrentUser returns the directory row behind an authenticated principal.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database failures
*/
func (service *Service) CurrentUser(context context.Context, userID int64) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

/*
Logout destroys the session identified by the given token.

Description: Removes both the persistent row and the cache entry. Destroying
an absent or already-destroyed session succeeds silently (idempotent).

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Storage failures only; never "not found"
*/
func (service *Service) Logout(context context.Context, token string) error {
	tokenHash := sec.HashToken(token)

	// Evict the cache first so a racing request cannot resolve the session
	// after the row is gone.
	if err := service.sessionCache.Delete(context, tokenHash); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "session_cache_evict_failed", slog.Any("error", err))
	}

	deleted, err := service.sessionRepository.DeleteByTokenHash(context, tokenHash)
	if err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	if deleted {
		service.metrics.SessionsActive.Dec()
	}

	return nil
}

// # Background Maintenance

// StartSessionCleanup launches a goroutine that purges expired session rows,
// once immediately and then on every tick. It stops when the context is
// cancelled.
func (service *Service) StartSessionCleanup(context context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		service.sweepExpiredSessions(context)

		for {
			select {
			case <-ticker.C:
				service.sweepExpiredSessions(context)
			case <-context.Done():
				return
			}
		}
	}()
}

func (service *Service) sweepExpiredSessions(context context.Context) {
	removed, err := service.sessionRepository.DeleteExpired(context)
	if err != nil {
		service.logger.Error("session_cleanup_failed", slog.Any("error", err))
		return
	}
	if removed > 0 {
		service.metrics.SessionsActive.Sub(float64(removed))
		service.logger.Info("session_cleanup_completed", slog.Int64("removed", removed))
	}
}

// # Helpers

// principalFor projects a directory row into the context-carried identity.
func principalFor(user *User) *sec.Principal {
	return &sec.Principal{
		UserID:       user.ID,
		TelegramID:   user.TelegramID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LanguageCode: user.LanguageCode,
		IsPremium:    user.IsPremium,
	}
}

// recordAuthFailure logs and counts a rejected authentication attempt.
func (service *Service) recordAuthFailure(context context.Context, err error) {
	outcome := "malformed"

	var verr *telegram.VerificationError
	if errors.As(err, &verr) {
		outcome = string(verr.Reason)
	}

	ctxutil.GetLogger(context).WarnContext(context, "auth_attempt_rejected", slog.String("reason", outcome))
	service.metrics.AuthAttempts.WithLabelValues(outcome).Inc()
}
