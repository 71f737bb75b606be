// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package telegram implements verification of Telegram Mini App init data.

When a Mini App opens inside Telegram, the client receives a signed
query-string payload (initData) describing the user and the launch context.
The bot backend must verify that payload cryptographically before trusting
any identity claim inside it.

Verification Scheme (per Telegram's Web App documentation):

	secret_key = HMAC_SHA256(key="WebAppData", message=bot_token)
	expected   = hex(HMAC_SHA256(key=secret_key, message=data_check_string))

where data_check_string is every key=value pair except "hash", sorted by key
and joined with newlines. The payload also carries an auth_date timestamp
which bounds how long a captured payload stays replayable.

This package is pure computation: no I/O, no storage, no HTTP.
*/
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// # Failure Classification

// FailureReason identifies why a payload was rejected. Reasons are internal:
// they feed logs and metrics, never client responses, so a forger learns
// nothing about which check failed.
type FailureReason string

const (
	// ReasonMalformed means the payload is not a parseable query string.
	ReasonMalformed FailureReason = "malformed"
	// ReasonMissingHash means the payload carries no hash parameter.
	ReasonMissingHash FailureReason = "missing_hash"
	// ReasonBadSignature means the HMAC did not match.
	ReasonBadSignature FailureReason = "bad_signature"
	// ReasonStale means auth_date is older than the configured maximum age.
	ReasonStale FailureReason = "stale"
	// ReasonBadIdentity means the user field is absent or not a valid identity.
	ReasonBadIdentity FailureReason = "bad_identity"
)

// VerificationError carries the internal failure reason of a rejected payload.
type VerificationError struct {
	Reason FailureReason
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("telegram: init data rejected (%s)", e.Reason)
}

// # Identity

// Identity is the user object embedded in a verified payload.
//
// The JSON tags match the field names Telegram uses inside the "user"
// parameter, so the struct unmarshals directly from the raw payload.
type Identity struct {
	TelegramID   int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
}

// # Verifier

// Verifier validates Mini App init data payloads for a single bot.
//
// # Concurrency
//
// Verifier is immutable after construction and safe for concurrent use.
type Verifier struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

/*
NewVerifier derives the verification key for the given bot token.

Parameters:
  - botToken: The bot's API token (the HMAC key is derived from it, the
    token itself is never compared against client input).
  - maxAge: Maximum accepted age of a payload, judged by its auth_date.

Returns:
  - *Verifier: Ready-to-use verifier.
*/
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	// secret_key = HMAC_SHA256(key="WebAppData", message=bot_token)
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))

	return &Verifier{
		secretKey: mac.Sum(nil),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

/*
Verify checks the signature and freshness of a raw init data string.

Parameters:
  - initData: The raw query-string payload as received from the Mini App.

Returns:
  - url.Values: The parsed payload, only on success.
  - error: *VerificationError describing the internal rejection reason.
*/
func (verifier *Verifier) Verify(initData string) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, &VerificationError{Reason: ReasonMalformed}
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return nil, &VerificationError{Reason: ReasonMissingHash}
	}

	// Recompute the signature over the canonical data-check-string.
	expectedHash := verifier.computeHash(values)

	// Constant-time comparison to avoid leaking match length via timing.
	if !hmac.Equal([]byte(expectedHash), []byte(receivedHash)) {
		return nil, &VerificationError{Reason: ReasonBadSignature}
	}

	// Freshness: a payload without a parseable auth_date is treated as stale.
	// The signature covers auth_date, so a valid signature with a broken
	// timestamp should not happen with a real client.
	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, &VerificationError{Reason: ReasonStale}
	}

	age := verifier.now().Unix() - authDate
	if age > int64(verifier.maxAge.Seconds()) {
		return nil, &VerificationError{Reason: ReasonStale}
	}

	return values, nil
}

/*
ExtractIdentity reads the user object out of a verified payload.

Parameters:
  - values: A payload previously returned by Verify.

Returns:
  - *Identity: The embedded user, with LanguageCode defaulted to "en".
  - error: *VerificationError (bad_identity) when the user field is
    absent, unparseable, or carries a non-positive ID.
*/
func (verifier *Verifier) ExtractIdentity(values url.Values) (*Identity, error) {
	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, &VerificationError{Reason: ReasonBadIdentity}
	}

	var identity Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil {
		return nil, &VerificationError{Reason: ReasonBadIdentity}
	}

	// Telegram user IDs are positive integers by contract.
	if identity.TelegramID <= 0 {
		return nil, &VerificationError{Reason: ReasonBadIdentity}
	}

	if identity.LanguageCode == "" {
		identity.LanguageCode = "en"
	}

	return &identity, nil
}

// computeHash builds the data-check-string and returns its hex HMAC.
//
// Every parameter except "hash" participates, sorted by key. Only the first
// value of a repeated key is used, matching the reference implementation.
func (verifier *Verifier) computeHash(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, verifier.secretKey)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}
