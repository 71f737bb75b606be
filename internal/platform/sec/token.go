// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a hex-encoded random token of byteLength
// random bytes (so the string is twice as long).
//
// # Entropy
//
// byteLength must be at least 16 to guarantee 128 bits of entropy; session
// tokens use 32 bytes (256 bits), which makes guessing infeasible.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength < 16 {
		return "", fmt.Errorf("sec: token length %d below minimum of 16 bytes", byteLength)
	}

	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Session tokens are stored hashed so a leaked database dump cannot be
// replayed as live credentials. Lookups hash the presented token and match
// on the digest.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
