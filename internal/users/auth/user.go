// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and the logic for
authenticating Telegram Mini App users and managing their session lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"
)

// # Domain Entities

// User represents a Telegram user known to the vault.
//
// The row is keyed internally by ID, but the stable identity is TelegramID:
// repeated authentications for the same TelegramID always converge on the
// same row, refreshing the mutable profile fields.
type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	LanguageCode string    `json:"language_code"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// Session represents an active login established from a verified initData payload.
//
// The opaque token handed to the client is never stored; only its hash is.
// Expiry is fixed at creation time, there is no sliding renewal.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the session token. Omitted for security.
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldInitData  = "initData"
	FieldUser      = "user"
	FieldMessage   = "message"
	FieldExpiresAt = "expires_at"
)
