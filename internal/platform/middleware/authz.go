// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

// Package middleware provides the HTTP middleware chain for the TGVault API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"net/http"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/ctxutil"
	"github.com/tgvault/tgvault/internal/platform/respond"
	"github.com/tgvault/tgvault/internal/platform/sec"
)

// SessionResolver defines the interface needed to resolve session tokens in middleware.
//
// # Why an interface?
//
// Defining SessionResolver here decouples the middleware from the `auth`
// service implementation, allowing us to easily inject fakes during unit testing.
type SessionResolver interface {
	// ResolveSession maps an opaque session token to its principal.
	// An unknown, expired, or integrity-defective session returns an error;
	// the three cases are indistinguishable to the caller.
	ResolveSession(ctx context.Context, token string) (*sec.Principal, error)
}

// Authenticate extracts the session cookie and resolves it to a principal.
//
// # Flow
//  1. Check for the session cookie.
//  2. If absent, request proceeds as anonymous.
//  3. If present, resolve the token via [SessionResolver].
//  4. Inject [*sec.Principal] into the request context for downstream use.
//
// A cookie that fails to resolve also proceeds as anonymous: the decision
// to reject belongs to [RequireAuth] on protected routes, so public routes
// keep working with a stale cookie lying around.
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cookie, err := request.Cookie(constants.SessionCookieName)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Session Resolution ─────────────────────────────────────────
			principal, err := resolver.ResolveSession(request.Context(), cookie.Value)
			if err != nil {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.Principal] exists in context.
//  2. If missing, abort with HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())
		if principal == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
