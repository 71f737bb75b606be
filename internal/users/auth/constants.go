// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package auth

// # Authentication Constraints

const (
	// SessionTokenLength is the byte length of the random session token.
	// 32 bytes = 256 bits of entropy, far beyond brute-force reach.
	SessionTokenLength = 32
)
