// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Session cookie configuration and freshness windows.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tgvault-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Kept generous because file uploads arrive through the request body.
	DefaultReadTimeout = 60 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// SessionCookieName is the cookie that carries the opaque session token.
	SessionCookieName = "telegram_session"

	// SessionCookiePath scopes the session cookie to the whole API surface.
	SessionCookiePath = "/"

	// SessionTTL is the fixed lifetime of a session from issuance. There is
	// no sliding expiry: a session issued at T dies at T+SessionTTL.
	SessionTTL = 30 * 24 * time.Hour

	// InitDataMaxAge is the default freshness window for a signed Telegram
	// initData payload. Older payloads are rejected as potential replays.
	InitDataMaxAge = 24 * time.Hour

	// SessionCleanupInterval is how often expired session rows are purged.
	SessionCleanupInterval = 1 * time.Hour
)

// # File Storage

const (
	// MaxUploadBytes caps a single uploaded file (50 MiB).
	MaxUploadBytes = 50 << 20
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldUser    = "user"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
	SchemaVault = "vault"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession = "auth:session:"
)
