// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package files implements the owner-scoped file vault.

Every file belongs to exactly one user, and every read, list, and delete is
scoped by owner identity at the query level. A file that belongs to someone
else is indistinguishable from a file that does not exist.

# Architecture

  - Entity: StoredFile metadata lives in Postgres (vault.file).
  - Bytes: The actual content lives in a BlobStore (local disk or S3).
  - Service: Enforces ownership, size caps, and row-before-blob deletion.
*/
package files

import (
	"strings"
	"time"
)

// # Domain Entities

// StoredFile is the metadata row for one uploaded file.
//
// OwnerID and StorageKey are internal and never serialized: the client
// addresses files by ID only and must not learn storage layout.
type StoredFile struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"-"`
	FileName     string    `json:"file_name"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Kind         string    `json:"kind"`
	SizeBytes    int64     `json:"size_bytes"`
	StorageKey   string    `json:"-"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// StorageStats summarizes a user's vault usage.
type StorageStats struct {
	FileCount   int64   `json:"file_count"`
	TotalBytes  int64   `json:"total_size"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// # File Kinds

// Coarse media classification derived from the declared content type.
const (
	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindDocument = "document"
)

// KindOf classifies a MIME content type into one of the file kinds.
// Anything unrecognized is a document.
func KindOf(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	default:
		return KindDocument
	}
}

// # Field Identifiers

const (
	FieldFile   = "file"
	FieldFileID = "fileID"
)
