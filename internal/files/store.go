// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"

	"github.com/tgvault/tgvault/pkg/pagination"
)

// # File Metadata Access

// Repository defines the data access contract for file metadata.
//
// Every read and delete takes the owner's user ID alongside the file ID:
// the scope is part of the query, not a post-filter, so a row belonging to
// another owner can never even be loaded.
type Repository interface {

	/*
		Create persists a new file metadata row.

		Parameters:
		  - context: context.Context
		  - file: *StoredFile (hydrated with ID and UploadedAt on return)

		Returns:
		  - error: Persistence failures (FK violations map to integrity errors)
	*/
	Create(context context.Context, file *StoredFile) error

	/*
		ListByOwner returns one page of the owner's files, newest first,
		along with the owner's total file count.

		Parameters:
		  - context: context.Context
		  - ownerID: int64
		  - params: pagination.Params

		Returns:
		  - []*StoredFile: Page of hydrated entities
		  - int: Total number of files owned
		  - error: Retrieval failures
	*/
	ListByOwner(context context.Context, ownerID int64, params pagination.Params) ([]*StoredFile, int, error)

	/*
		FindByIDForOwner returns the file only if it belongs to the owner.
		A foreign or absent file yields the same apperr.NotFound.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - ownerID: int64

		Returns:
		  - *StoredFile: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByIDForOwner(context context.Context, id, ownerID int64) (*StoredFile, error)

	/*
		DeleteByIDForOwner removes the row only if it belongs to the owner,
		returning the storage key of the removed blob.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - ownerID: int64

		Returns:
		  - string: StorageKey of the deleted row
		  - error: apperr.NotFound (absent or foreign) or deletion failures
	*/
	DeleteByIDForOwner(context context.Context, id, ownerID int64) (string, error)

	/*
		StatsByOwner aggregates count and byte totals for the owner.

		Parameters:
		  - context: context.Context
		  - ownerID: int64

		Returns:
		  - *StorageStats: Aggregated usage
		  - error: Retrieval failures
	*/
	StatsByOwner(context context.Context, ownerID int64) (*StorageStats, error)
}
