// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"
	"io"
)

// # Blob Storage Contract

// BlobStore abstracts where the actual file bytes live.
//
// Keys are opaque, server-generated paths; the store never interprets them
// beyond treating "/" as a separator. Implementations must make Delete
// idempotent so a metadata row whose blob is already gone cleans up silently.
type BlobStore interface {

	/*
		Put streams the content to storage under the given key.

		Parameters:
		  - context: context.Context
		  - key: string (server-generated storage key)
		  - reader: io.Reader (file content)
		  - size: int64 (exact content length)
		  - contentType: string

		Returns:
		  - error: Storage failures
	*/
	Put(context context.Context, key string, reader io.Reader, size int64, contentType string) error

	/*
		Open returns a reader over the stored content.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - io.ReadCloser: Content stream (caller closes)
		  - error: apperr.NotFound or storage failures
	*/
	Open(context context.Context, key string) (io.ReadCloser, error)

	/*
		Delete removes the stored content. Removing an absent key succeeds.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: Storage failures
	*/
	Delete(context context.Context, key string) error
}
