// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

// Package sec provides security primitives shared across layers.
//
// # Architecture
//
// This package isolates security-sensitive code (token generation, token
// hashing, the authenticated principal shape) from the domain logic. It has
// no dependencies on the storage or transport layers, which lets middleware,
// services, and repositories all agree on one principal type without cycles.
package sec

// Principal is the authenticated identity resolved from a session token.
//
// # Why a dedicated type?
//
// The middleware injects a Principal into the request context on every
// authenticated request. Handlers and services read it back without ever
// touching the session store again, so the shape must live below both.
type Principal struct {
	// UserID is the internal surrogate key of the user row. Every ownership
	// check in the system compares against this value.
	UserID int64 `json:"user_id"`

	// TelegramID is the immutable, Telegram-issued identifier.
	TelegramID int64 `json:"telegram_id"`

	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
}
