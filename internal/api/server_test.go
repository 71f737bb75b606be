// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package api_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/tgvault/internal/api"
	"github.com/tgvault/tgvault/internal/files"
	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/config"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/metrics"
	"github.com/tgvault/tgvault/internal/platform/sec"
	"github.com/tgvault/tgvault/internal/telegram"
	"github.com/tgvault/tgvault/internal/users/auth"
	"github.com/tgvault/tgvault/pkg/pagination"
)

const testBotToken = "98765:E2E_TOKEN_xyz"

// # Payload Signing

// signInitData builds a signed payload the way the Telegram client would.
func signInitData(botToken string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func initDataFor(telegramID int64, firstName string) string {
	return signInitData(testBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":%q,"language_code":"en"}`, telegramID, firstName),
	})
}

// # In-Memory Storage Fakes

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byTG   map[int64]*auth.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, byTG: make(map[int64]*auth.User)}
}

func (r *memUserRepo) Upsert(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byTG[user.TelegramID]; ok {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
	} else {
		user.ID = r.nextID
		r.nextID++
		user.CreatedAt = time.Now()
	}
	user.LastLoginAt = time.Now()
	stored := *user
	r.byTG[user.TelegramID] = &stored
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byTG {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (r *memUserRepo) FindByTelegramID(_ context.Context, telegramID int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byTG[telegramID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User not found")
}

type memSessionRepo struct {
	mu     sync.Mutex
	byHash map[string]*auth.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byHash: make(map[string]*auth.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *session
	r.byHash[session.TokenHash] = &stored
	return nil
}

func (r *memSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byHash[tokenHash]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, apperr.NotFound("Session not found")
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byHash[tokenHash]
	delete(r.byHash, tokenHash)
	return ok, nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for hash, session := range r.byHash {
		if !session.ExpiresAt.After(time.Now()) {
			delete(r.byHash, hash)
			removed++
		}
	}
	return removed, nil
}

type memSessionCache struct {
	mu      sync.Mutex
	entries map[string]*sec.Principal
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{entries: make(map[string]*sec.Principal)}
}

func (c *memSessionCache) Set(_ context.Context, tokenHash string, principal *sec.Principal, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tokenHash] = principal
	return nil
}

func (c *memSessionCache) Get(_ context.Context, tokenHash string) (*sec.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if principal, ok := c.entries[tokenHash]; ok {
		return principal, nil
	}
	return nil, apperr.NotFound("Session not cached")
}

func (c *memSessionCache) Delete(_ context.Context, tokenHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tokenHash)
	return nil
}

func (c *memSessionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*sec.Principal)
}

type memFileRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*files.StoredFile
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{nextID: 1, rows: make(map[int64]*files.StoredFile)}
}

func (r *memFileRepo) Create(_ context.Context, file *files.StoredFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file.ID = r.nextID
	r.nextID++
	file.UploadedAt = time.Now()
	stored := *file
	r.rows[file.ID] = &stored
	return nil
}

func (r *memFileRepo) ListByOwner(_ context.Context, ownerID int64, params pagination.Params) ([]*files.StoredFile, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := make([]*files.StoredFile, 0)
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			copied := *row
			owned = append(owned, &copied)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID > owned[j].ID })
	total := len(owned)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return owned[start:end], total, nil
}

func (r *memFileRepo) FindByIDForOwner(_ context.Context, id, ownerID int64) (*files.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return nil, apperr.NotFound("Resource not found")
	}
	copied := *row
	return &copied, nil
}

func (r *memFileRepo) DeleteByIDForOwner(_ context.Context, id, ownerID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return "", apperr.NotFound("Resource not found")
	}
	delete(r.rows, id)
	return row.StorageKey, nil
}

func (r *memFileRepo) StatsByOwner(_ context.Context, ownerID int64) (*files.StorageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &files.StorageStats{}
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			stats.FileCount++
			stats.TotalBytes += row.SizeBytes
		}
	}
	return stats, nil
}

// # Test Harness

type testServer struct {
	router      http.Handler
	authService *auth.Service
	cache       *memSessionCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	m := metrics.New()
	cache := newMemSessionCache()

	verifier := telegram.NewVerifier(testBotToken, 24*time.Hour)
	authService := auth.NewService(newMemUserRepo(), newMemSessionRepo(), cache, verifier, m, logger)

	blobs, err := files.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)
	fileService := files.NewService(newMemFileRepo(), blobs, m)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error { return nil },
		CheckCache:    func() error { return nil },
	}, logger)

	cfg := &config.Config{ServerPort: "0", Environment: "development"}
	server := api.NewServer(context.Background(), cfg, logger, authService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   m.Handler(),
		Auth:      auth.NewHandler(authService, false),
		Files:     files.NewHandler(fileService),
	})

	return &testServer{router: server.Router(), authService: authService, cache: cache}
}

func (ts *testServer) do(t *testing.T, request *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	ts.router.ServeHTTP(recorder, request)
	return recorder
}

// login runs the auth endpoint and returns the session cookie.
func (ts *testServer) login(t *testing.T, telegramID int64, firstName string) *http.Cookie {
	t.Helper()

	body, err := json.Marshal(map[string]string{"initData": initDataFor(telegramID, firstName)})
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/api/telegram/auth", bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := ts.do(t, request, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName {
			require.NotEmpty(t, cookie.Value)
			require.True(t, cookie.HttpOnly)
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func (ts *testServer) uploadFile(t *testing.T, cookie *http.Cookie, name, content string) int64 {
	t.Helper()

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/files", &buffer)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := ts.do(t, request, cookie)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var envelope struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotZero(t, envelope.Data.ID)
	return envelope.Data.ID
}

// # Scenarios

/*
TestServer_FullLifecycle walks one user through login, upload, listing,
download, deletion, and logout.
*/
func TestServer_FullLifecycle(t *testing.T) {
	ts := newTestServer(t)

	cookie := ts.login(t, 1001, "Grace")

	// Who am I.
	request := httptest.NewRequest(http.MethodGet, "/api/telegram/me", nil)
	recorder := ts.do(t, request, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Grace")

	// Upload and list.
	fileID := ts.uploadFile(t, cookie, "notes.txt", "vault payload")

	request = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listEnvelope struct {
		Data []struct {
			ID       int64  `json:"id"`
			FileName string `json:"file_name"`
		} `json:"data"`
		Meta pagination.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	assert.Equal(t, fileID, listEnvelope.Data[0].ID)
	assert.Equal(t, 1, listEnvelope.Meta.Total)

	// Download the raw bytes back.
	request = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	body, _ := io.ReadAll(recorder.Body)
	assert.Equal(t, "vault payload", string(body))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "attachment")

	// Stats reflect the upload.
	request = httptest.NewRequest(http.MethodGet, "/api/files/stats", nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"file_count":1`)

	// Delete, then the file is gone.
	request = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	request = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	// Logout kills the session.
	request = httptest.NewRequest(http.MethodPost, "/api/telegram/logout", nil)
	recorder = ts.do(t, request, cookie)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	request = httptest.NewRequest(http.MethodGet, "/api/telegram/me", nil)
	recorder = ts.do(t, request, cookie)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestServer_CrossUserIsolation checks over HTTP that one user's files are
invisible to another: foreign reads and deletes answer 404, never 403.
*/
func TestServer_CrossUserIsolation(t *testing.T) {
	ts := newTestServer(t)

	cookieA := ts.login(t, 2001, "Alice")
	cookieB := ts.login(t, 2002, "Bob")

	fileID := ts.uploadFile(t, cookieA, "private.txt", "only for alice")

	// B cannot see it in a listing.
	request := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	recorder := ts.do(t, request, cookieB)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"data":[]`)

	// B cannot download or delete it.
	request = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookieB)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	request = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookieB)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// A still has the file.
	request = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/files/%d", fileID), nil)
	recorder = ts.do(t, request, cookieA)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestServer_AuthRejections covers the unauthenticated surface: tampered
payloads, missing payloads, and missing sessions.
*/
func TestServer_AuthRejections(t *testing.T) {
	ts := newTestServer(t)

	t.Run("tampered_init_data", func(t *testing.T) {
		tampered := initDataFor(3001, "Eve")
		tampered = strings.Replace(tampered, "Eve", "Mallory", 1)

		body, _ := json.Marshal(map[string]string{"initData": tampered})
		request := httptest.NewRequest(http.MethodPost, "/api/telegram/auth", bytes.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
		recorder := ts.do(t, request, nil)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Invalid Telegram authentication")
	})

	t.Run("missing_init_data", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/api/telegram/auth", strings.NewReader(`{}`))
		request.Header.Set("Content-Type", "application/json")
		recorder := ts.do(t, request, nil)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("no_session_cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		recorder := ts.do(t, request, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("garbage_session_token", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/api/telegram/me", nil)
		recorder := ts.do(t, request, &http.Cookie{Name: constants.SessionCookieName, Value: "not-a-real-token"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

/*
TestServer_ExpiredSession checks that a session past its 30-day lifetime is
rejected even when the row still exists.
*/
func TestServer_ExpiredSession(t *testing.T) {
	ts := newTestServer(t)

	cookie := ts.login(t, 4001, "Tick")

	// Session is alive right after login.
	request := httptest.NewRequest(http.MethodGet, "/api/telegram/me", nil)
	recorder := ts.do(t, request, cookie)
	require.Equal(t, http.StatusOK, recorder.Code)

	// Move the service clock past the expiry and drop the cache so the
	// resolution has to consult storage.
	ts.authService.WithClock(func() time.Time { return time.Now().Add(constants.SessionTTL + time.Hour) })
	ts.cache.clear()

	request = httptest.NewRequest(http.MethodGet, "/api/telegram/me", nil)
	recorder = ts.do(t, request, cookie)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestServer_Probes checks the orchestration endpoints.
*/
func TestServer_Probes(t *testing.T) {
	ts := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := ts.do(t, request, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	recorder = ts.do(t, request, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ready"`)

	request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder = ts.do(t, request, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "tgvault_")
}

/*
TestServer_ReadinessDegraded checks that a failing dependency flips /ready
to 503.
*/
func TestServer_ReadinessDegraded(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	_, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error { return nil },
		CheckCache:    func() error { return fmt.Errorf("connection refused") },
	}, logger)

	recorder := httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))

	// Same envelope as the ready answer, only the status code and body differ.
	assert.Contains(t, recorder.Body.String(), `"data"`)
	assert.Contains(t, recorder.Body.String(), `"status":"degraded"`)
	assert.Contains(t, recorder.Body.String(), `"connection refused"`)
}
