// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/ctxutil"
	"github.com/tgvault/tgvault/internal/platform/metrics"
	"github.com/tgvault/tgvault/internal/platform/validate"
	"github.com/tgvault/tgvault/pkg/pagination"
	"github.com/tgvault/tgvault/pkg/slug"
	"github.com/tgvault/tgvault/pkg/uuid"
)

// # Service

// Service implements the owner-scoped vault use cases.
//
// Ownership is enforced here and in the repository queries; handlers never
// pass anything but the authenticated principal's own user ID down.
type Service struct {
	repository Repository
	blobs      BlobStore
	metrics    *metrics.Metrics
}

// NewService constructs a new [Service] with its dependencies.
func NewService(repository Repository, blobs BlobStore, m *metrics.Metrics) *Service {
	return &Service{repository: repository, blobs: blobs, metrics: m}
}

// # Upload Flow

// UploadInput carries one incoming file.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

/*
Upload stores the file bytes and records the metadata row for the owner.

Description: Bytes go to the blob store first, then the row is inserted. If
the insert fails the blob is removed again, so a visible row always has
content behind it. The owner's existence is guaranteed by the foreign key:
a vanished owner surfaces as an integrity error, never as a row with a
dangling reference.

Parameters:
  - context: context.Context
  - ownerID: int64 (authenticated principal's user ID)
  - input: UploadInput

Returns:
  - *StoredFile: Hydrated metadata row
  - error: ValidationError, PayloadTooLarge, or storage failures
*/
func (service *Service) Upload(context context.Context, ownerID int64, input UploadInput) (*StoredFile, error) {
	if err := ownerShapeError(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperr.ValidationError("File name is required")
	}
	if input.Size <= 0 {
		return nil, apperr.ValidationError("File is empty")
	}
	if input.Size > constants.MaxUploadBytes {
		service.metrics.FileOperations.WithLabelValues("upload", "error").Inc()
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("File exceeds the %d MiB limit", constants.MaxUploadBytes>>20))
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	safeName := sanitizeFileName(input.FileName)
	storageKey := fmt.Sprintf("users/%d/%s-%s", ownerID, uuid.New(), safeName)

	if err := service.blobs.Put(context, storageKey, input.Content, input.Size, contentType); err != nil {
		service.metrics.FileOperations.WithLabelValues("upload", "error").Inc()
		return nil, fmt.Errorf("files_service_blob_put_failed: %w", err)
	}

	file := &StoredFile{
		OwnerID:      ownerID,
		FileName:     safeName,
		OriginalName: input.FileName,
		ContentType:  contentType,
		Kind:         KindOf(contentType),
		SizeBytes:    input.Size,
		StorageKey:   storageKey,
	}

	if err := service.repository.Create(context, file); err != nil {
		// Roll the blob back so storage holds no unreferenced content.
		if cleanupErr := service.blobs.Delete(context, storageKey); cleanupErr != nil {
			ctxutil.GetLogger(context).ErrorContext(context, "orphan_blob_after_failed_insert",
				slog.String("storage_key", storageKey),
				slog.Any("error", cleanupErr),
			)
		}
		service.metrics.FileOperations.WithLabelValues("upload", "error").Inc()
		return nil, err
	}

	service.metrics.FileOperations.WithLabelValues("upload", "ok").Inc()
	service.metrics.UploadedBytes.Add(float64(input.Size))

	return file, nil
}

// # Read Flows

/*
List returns one page of the owner's files, newest first.

Parameters:
  - context: context.Context
  - ownerID: int64
  - params: pagination.Params

Returns:
  - []*StoredFile: Page of files
  - pagination.Meta: Navigation metadata
  - error: Retrieval failures
*/
func (service *Service) List(context context.Context, ownerID int64, params pagination.Params) ([]*StoredFile, pagination.Meta, error) {
	if err := ownerShapeError(ownerID); err != nil {
		return nil, pagination.Meta{}, err
	}

	result, total, err := service.repository.ListByOwner(context, ownerID, params)
	if err != nil {
		service.metrics.FileOperations.WithLabelValues("list", "error").Inc()
		return nil, pagination.Meta{}, err
	}

	service.metrics.FileOperations.WithLabelValues("list", "ok").Inc()
	return result, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Download resolves the metadata row and opens the content stream.

Description: A file owned by someone else yields the same NotFound as a file
that does not exist. A row whose blob has vanished is logged as an integrity
defect but still answers NotFound; failing open would leak nothing useful.

Parameters:
  - context: context.Context
  - id: int64
  - ownerID: int64

Returns:
  - *StoredFile: Metadata for response headers
  - io.ReadCloser: Content stream (caller closes)
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Download(context context.Context, id, ownerID int64) (*StoredFile, io.ReadCloser, error) {
	if err := ownerShapeError(ownerID); err != nil {
		return nil, nil, err
	}

	file, err := service.repository.FindByIDForOwner(context, id, ownerID)
	if err != nil {
		service.metrics.FileOperations.WithLabelValues("download", "error").Inc()
		return nil, nil, err
	}

	content, err := service.blobs.Open(context, file.StorageKey)
	if err != nil {
		if apperr.IsAppError(err) {
			ctxutil.GetLogger(context).ErrorContext(context, "file_blob_missing",
				slog.Int64("file_id", file.ID),
				slog.String("storage_key", file.StorageKey),
			)
		}
		service.metrics.FileOperations.WithLabelValues("download", "error").Inc()
		return nil, nil, err
	}

	service.metrics.FileOperations.WithLabelValues("download", "ok").Inc()
	return file, content, nil
}

/*
Stats aggregates the owner's vault usage.

Parameters:
  - context: context.Context
  - ownerID: int64

Returns:
  - *StorageStats: Count, bytes, and megabytes
  - error: Retrieval failures
*/
func (service *Service) Stats(context context.Context, ownerID int64) (*StorageStats, error) {
	if err := ownerShapeError(ownerID); err != nil {
		return nil, err
	}
	return service.repository.StatsByOwner(context, ownerID)
}

// # Delete Flow

/*
Delete removes the metadata row and then the blob behind it.

Description: The row goes first: once the conditional DELETE succeeds the
file is invisible to every subsequent request, even if the blob removal
fails. An orphaned blob is logged for the cleanup tooling, never surfaced.

Parameters:
  - context: context.Context
  - id: int64
  - ownerID: int64

Returns:
  - error: apperr.NotFound (absent or foreign) or deletion failures
*/
func (service *Service) Delete(context context.Context, id, ownerID int64) error {
	if err := ownerShapeError(ownerID); err != nil {
		return err
	}

	storageKey, err := service.repository.DeleteByIDForOwner(context, id, ownerID)
	if err != nil {
		service.metrics.FileOperations.WithLabelValues("delete", "error").Inc()
		return err
	}

	if err := service.blobs.Delete(context, storageKey); err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "orphan_blob_after_delete",
			slog.Int64("file_id", id),
			slog.String("storage_key", storageKey),
			slog.Any("error", err),
		)
	}

	service.metrics.FileOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// # Helpers

// ownerShapeError rejects a non-positive owner ID before any storage work.
// Owner IDs come from the authenticated principal, so a bad shape here means
// an upstream defect, and no query may run with it.
func ownerShapeError(ownerID int64) error {
	var v validate.Validator
	return v.PositiveInt("owner_id", ownerID).Err()
}

// sanitizeFileName reduces an arbitrary client file name to a safe ASCII
// base name while keeping the extension recognizable.
func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	safeStem := slug.From(stem)
	if safeStem == "" {
		safeStem = "file"
	}

	safeExt := slug.From(strings.TrimPrefix(ext, "."))
	if safeExt == "" {
		return safeStem
	}

	return safeStem + "." + safeExt
}
