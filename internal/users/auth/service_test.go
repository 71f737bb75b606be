// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package auth_test

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/metrics"
	"github.com/tgvault/tgvault/internal/platform/sec"
	"github.com/tgvault/tgvault/internal/telegram"
	"github.com/tgvault/tgvault/internal/users/auth"
)

// # Fakes

type fakeVerifier struct {
	identity    *telegram.Identity
	verifyErr   error
	identityErr error
}

func (f *fakeVerifier) Verify(initData string) (url.Values, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return url.Values{}, nil
}

func (f *fakeVerifier) ExtractIdentity(values url.Values) (*telegram.Identity, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return f.identity, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User // keyed by TelegramID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int64]*auth.User)}
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[user.TelegramID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.LanguageCode = user.LanguageCode
		existing.IsPremium = user.IsPremium
		existing.LastLoginAt = time.Now()
		*user = *existing
		return nil
	}

	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.LastLoginAt = user.CreatedAt
	stored := *user
	r.users[user.TelegramID] = &stored
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			found := *user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (r *fakeUserRepo) FindByTelegramID(_ context.Context, telegramID int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[telegramID]; ok {
		found := *user
		return &found, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (r *fakeUserRepo) delete(telegramID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, telegramID)
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session // keyed by TokenHash
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *session
	r.sessions[session.TokenHash] = &stored
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, apperr.NotFound("Session not found or expired")
	}
	found := *session
	return &found, nil
}

func (r *fakeSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.sessions[tokenHash]
	delete(r.sessions, tokenHash)
	return existed, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for hash, session := range r.sessions {
		if !session.ExpiresAt.After(time.Now()) {
			delete(r.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

type fakeSessionCache struct {
	mu      sync.Mutex
	entries map[string]*sec.Principal
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: make(map[string]*sec.Principal)}
}

func (c *fakeSessionCache) Set(_ context.Context, tokenHash string, principal *sec.Principal, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tokenHash] = principal
	return nil
}

func (c *fakeSessionCache) Get(_ context.Context, tokenHash string) (*sec.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if principal, ok := c.entries[tokenHash]; ok {
		return principal, nil
	}
	return nil, apperr.NotFound("Session not cached")
}

func (c *fakeSessionCache) Delete(_ context.Context, tokenHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tokenHash)
	return nil
}

func (c *fakeSessionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*sec.Principal)
}

// # Harness

type testEnv struct {
	service  *auth.Service
	verifier *fakeVerifier
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	cache    *fakeSessionCache
}

func newTestEnv() *testEnv {
	verifier := &fakeVerifier{
		identity: &telegram.Identity{
			TelegramID:   42,
			FirstName:    "Ada",
			LastName:     "Lovelace",
			Username:     "ada",
			LanguageCode: "en",
			IsPremium:    true,
		},
	}

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	cache := newFakeSessionCache()

	service := auth.NewService(
		users,
		sessions,
		cache,
		verifier,
		metrics.New(),
		slog.New(slog.DiscardHandler),
	)

	return &testEnv{service: service, verifier: verifier, users: users, sessions: sessions, cache: cache}
}

// # Tests

/*
TestService_Authenticate_Success checks the full happy-path login pipeline.
*/
func TestService_Authenticate_Success(t *testing.T) {
	env := newTestEnv()

	session, err := env.service.Authenticate(context.Background(), "raw-init-data")
	require.NoError(t, err)

	// The token is opaque, long, and never equal to what storage holds.
	assert.Len(t, session.Token, 64) // 32 random bytes, hex encoded
	assert.Equal(t, int64(42), session.User.TelegramID)
	assert.Equal(t, "Ada", session.User.FirstName)

	stored, err := env.sessions.FindByTokenHash(context.Background(), sec.HashToken(session.Token))
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, stored.TokenHash)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), stored.ExpiresAt, time.Minute)
}

/*
TestService_Authenticate_RepeatedLogin_ConvergesOnOneUser checks that repeated
logins for the same Telegram identity reuse the same directory row while
refreshing its profile fields.
*/
func TestService_Authenticate_RepeatedLogin_ConvergesOnOneUser(t *testing.T) {
	env := newTestEnv()

	first, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)

	env.verifier.identity.Username = "ada_updated"
	second, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "ada_updated", second.User.Username)
	assert.Len(t, env.users.users, 1)

	// Both sessions stay valid independently.
	assert.NotEqual(t, first.Token, second.Token)
}

/*
TestService_Authenticate_VerificationFailure checks that any cryptographic
rejection surfaces as a generic 401.
*/
func TestService_Authenticate_VerificationFailure(t *testing.T) {
	reasons := []telegram.FailureReason{
		telegram.ReasonBadSignature,
		telegram.ReasonStale,
		telegram.ReasonMissingHash,
		telegram.ReasonMalformed,
	}

	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			env := newTestEnv()
			env.verifier.verifyErr = &telegram.VerificationError{Reason: reason}

			session, err := env.service.Authenticate(context.Background(), "bad")
			require.Error(t, err)
			assert.Nil(t, session)

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, "UNAUTHORIZED", appError.Code)
			// The reason never leaks into the client-facing message.
			assert.Equal(t, "Invalid Telegram authentication", appError.Message)
		})
	}
}

/*
TestService_Authenticate_BadIdentity checks that a verified payload with a
broken user object is a validation error, not an auth failure.
*/
func TestService_Authenticate_BadIdentity(t *testing.T) {
	env := newTestEnv()
	env.verifier.identityErr = &telegram.VerificationError{Reason: telegram.ReasonBadIdentity}

	_, err := env.service.Authenticate(context.Background(), "raw")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
}

/*
TestService_Authenticate_RejectsNonPositiveTelegramID checks that an identity
with a zero or negative ID is refused before any directory write, even when
the verifier itself let it through.
*/
func TestService_Authenticate_RejectsNonPositiveTelegramID(t *testing.T) {
	for _, telegramID := range []int64{0, -42} {
		env := newTestEnv()
		env.verifier.identity.TelegramID = telegramID

		session, err := env.service.Authenticate(context.Background(), "raw")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

		// No directory row, no session.
		assert.Empty(t, env.users.users)
		assert.Empty(t, env.sessions.sessions)
	}
}

/*
TestService_ResolveSession checks token-to-principal resolution.
*/
func TestService_ResolveSession(t *testing.T) {
	env := newTestEnv()

	session, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)

	t.Run("valid_token", func(t *testing.T) {
		principal, err := env.service.ResolveSession(context.Background(), session.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), principal.TelegramID)
		assert.Equal(t, session.User.ID, principal.UserID)
	})

	t.Run("unknown_token", func(t *testing.T) {
		principal, err := env.service.ResolveSession(context.Background(), "completely-made-up")
		require.Error(t, err)
		assert.Nil(t, principal)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})

	t.Run("cold_cache_falls_back_to_storage", func(t *testing.T) {
		env.cache.clear()
		principal, err := env.service.ResolveSession(context.Background(), session.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), principal.TelegramID)
	})
}

/*
TestService_ResolveSession_Expiry checks the fixed 30-day lifetime: a session
is alive just before the deadline and dead just after, with no renewal.
*/
func TestService_ResolveSession_Expiry(t *testing.T) {
	env := newTestEnv()

	session, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)
	env.cache.clear() // force the storage path so the service clock decides

	t.Run("alive_at_29_days", func(t *testing.T) {
		env.service.WithClock(func() time.Time { return time.Now().Add(29 * 24 * time.Hour) })
		_, err := env.service.ResolveSession(context.Background(), session.Token)
		assert.NoError(t, err)
	})

	t.Run("dead_at_31_days", func(t *testing.T) {
		env.cache.clear()
		env.service.WithClock(func() time.Time { return time.Now().Add(31 * 24 * time.Hour) })
		_, err := env.service.ResolveSession(context.Background(), session.Token)
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	})
}

/*
TestService_ResolveSession_IntegrityDefect checks that a session whose user
row has vanished fails closed as a server-side defect.
*/
func TestService_ResolveSession_IntegrityDefect(t *testing.T) {
	env := newTestEnv()

	session, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)

	env.cache.clear()
	env.users.delete(42)

	principal, err := env.service.ResolveSession(context.Background(), session.Token)
	require.Error(t, err)
	assert.Nil(t, principal)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "INTERNAL_ERROR", appError.Code)
	// The client-facing message stays generic.
	assert.Equal(t, "An unexpected error occurred", appError.Message)
}

/*
TestService_Logout_Idempotent checks that destroying a session twice (or
destroying a token that never existed) succeeds silently.
*/
func TestService_Logout_Idempotent(t *testing.T) {
	env := newTestEnv()

	session, err := env.service.Authenticate(context.Background(), "raw")
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(context.Background(), session.Token))

	// The session is truly gone.
	_, err = env.service.ResolveSession(context.Background(), session.Token)
	assert.Error(t, err)

	// Second destroy and a destroy of garbage both succeed.
	assert.NoError(t, env.service.Logout(context.Background(), session.Token))
	assert.NoError(t, env.service.Logout(context.Background(), "never-existed"))
}
