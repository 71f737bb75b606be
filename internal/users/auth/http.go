// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package auth provides the HTTP delivery layer for Telegram identity management.

It implements the gateway for the authentication lifecycle: Mini App login,
profile introspection, and logout.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles the HttpOnly session cookie injection and clearing.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/middleware"
	requestutil "github.com/tgvault/tgvault/internal/platform/request"
	"github.com/tgvault/tgvault/internal/platform/respond"
	"github.com/tgvault/tgvault/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the session lifecycle entry points (Login via initData,
// WhoAmI, Logout).
type Handler struct {
	authService *Service

	// cookieSecure toggles the Secure flag; disabled in local development
	// so cookies survive plain-http testing.
	cookieSecure bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cookieSecure bool) *Handler {
	return &Handler{authService: service, cookieSecure: cookieSecure}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /auth   : Verifies initData and establishes a session.
//   - GET  /me     : Returns the authenticated user's profile.
//   - POST /logout : Destroys the current session (idempotent).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/auth", handler.authenticate)
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type authenticateRequest struct {
	InitData string `json:"initData"`
}

/*
Authenticate establishes a session from a signed Telegram initData payload.

POST /api/telegram/auth

Description: Verifies the payload cryptographically, upserts the user
directory row, and sets an HttpOnly session cookie.

Request:
  - Body: authenticateRequest (InitData)

Response:
  - 200: User: Authenticated user profile (plus session cookie)
  - 400: ErrInvalidJSON: Missing payload or invalid embedded identity
  - 401: ErrUnauthorized: Signature or freshness verification failed
*/
func (handler *Handler) authenticate(writer http.ResponseWriter, request *http.Request) {
	var input authenticateRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldInitData, input.InitData)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Authenticate(request.Context(), input.InitData)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    session.Token,
		Path:     constants.SessionCookiePath,
		Expires:  session.ExpiresAt,
		MaxAge:   int(constants.SessionTTL.Seconds()),
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respond.OK(writer, map[string]any{
		FieldUser:      session.User,
		FieldExpiresAt: session.ExpiresAt,
	})
}

/*
Me returns the profile of the authenticated user.

GET /api/telegram/me

Response:
  - 200: User: Current directory row
  - 401: ErrUnauthorized: No valid session
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CurrentUser(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Logout terminates the current session.

POST /api/telegram/logout

Description: Destroys the session (if present) and clears the cookie. Safe
to call with no cookie, a stale cookie, or twice in a row.

Response:
  - 204: No Content: Session terminated (or was never there)
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.SessionCookieName)

	if err == nil && cookie != nil && cookie.Value != "" {
		if err := handler.authService.Logout(request.Context(), cookie.Value); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respond.NoContent(writer)
}
