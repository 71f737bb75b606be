// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tgvault/tgvault/internal/platform/database/schema"
	"github.com/tgvault/tgvault/internal/platform/dberr"
	"github.com/tgvault/tgvault/pkg/pagination"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of Repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) Create(context context.Context, file *StoredFile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s`,
		schema.VaultFile.Table,
		schema.VaultFile.OwnerID, schema.VaultFile.FileName, schema.VaultFile.OriginalName,
		schema.VaultFile.ContentType, schema.VaultFile.Kind, schema.VaultFile.SizeBytes, schema.VaultFile.StorageKey,
		schema.VaultFile.ID, schema.VaultFile.UploadedAt,
	)

	err := repository.db.QueryRow(context, query,
		file.OwnerID,
		file.FileName,
		file.OriginalName,
		file.ContentType,
		file.Kind,
		file.SizeBytes,
		file.StorageKey,
	).Scan(&file.ID, &file.UploadedAt)

	if err != nil {
		return dberr.Wrap(err, "create_file")
	}

	return nil
}

func (repository *PostgresRepository) ListByOwner(context context.Context, ownerID int64, params pagination.Params) ([]*StoredFile, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.VaultFile.Table, schema.VaultFile.OwnerID)

	var total int
	if err := repository.db.QueryRow(context, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_files")
	}

	listQuery := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC
		LIMIT $2 OFFSET $3`,
		schema.VaultFile.ID, schema.VaultFile.OwnerID, schema.VaultFile.FileName, schema.VaultFile.OriginalName,
		schema.VaultFile.ContentType, schema.VaultFile.Kind, schema.VaultFile.SizeBytes, schema.VaultFile.StorageKey,
		schema.VaultFile.UploadedAt,
		schema.VaultFile.Table,
		schema.VaultFile.OwnerID,
		schema.VaultFile.UploadedAt,
	)

	rows, err := repository.db.Query(context, listQuery, ownerID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_files")
	}
	defer rows.Close()

	result := make([]*StoredFile, 0)
	for rows.Next() {
		file := &StoredFile{}
		if err := rows.Scan(
			&file.ID,
			&file.OwnerID,
			&file.FileName,
			&file.OriginalName,
			&file.ContentType,
			&file.Kind,
			&file.SizeBytes,
			&file.StorageKey,
			&file.UploadedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_file")
		}
		result = append(result, file)
	}

	return result, total, nil
}

func (repository *PostgresRepository) FindByIDForOwner(context context.Context, id, ownerID int64) (*StoredFile, error) {
	// The owner filter is part of the WHERE clause: a foreign row produces
	// the same ErrNoRows as an absent one.
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2`,
		schema.VaultFile.ID, schema.VaultFile.OwnerID, schema.VaultFile.FileName, schema.VaultFile.OriginalName,
		schema.VaultFile.ContentType, schema.VaultFile.Kind, schema.VaultFile.SizeBytes, schema.VaultFile.StorageKey,
		schema.VaultFile.UploadedAt,
		schema.VaultFile.Table,
		schema.VaultFile.ID, schema.VaultFile.OwnerID,
	)

	file := &StoredFile{}
	err := repository.db.QueryRow(context, query, id, ownerID).Scan(
		&file.ID,
		&file.OwnerID,
		&file.FileName,
		&file.OriginalName,
		&file.ContentType,
		&file.Kind,
		&file.SizeBytes,
		&file.StorageKey,
		&file.UploadedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "find_file")
	}

	return file, nil
}

func (repository *PostgresRepository) DeleteByIDForOwner(context context.Context, id, ownerID int64) (string, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 RETURNING %s`,
		schema.VaultFile.Table,
		schema.VaultFile.ID, schema.VaultFile.OwnerID,
		schema.VaultFile.StorageKey,
	)

	var storageKey string
	if err := repository.db.QueryRow(context, query, id, ownerID).Scan(&storageKey); err != nil {
		return "", dberr.Wrap(err, "delete_file")
	}

	return storageKey, nil
}

func (repository *PostgresRepository) StatsByOwner(context context.Context, ownerID int64) (*StorageStats, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(%s), 0)
		FROM %s
		WHERE %s = $1`,
		schema.VaultFile.SizeBytes,
		schema.VaultFile.Table,
		schema.VaultFile.OwnerID,
	)

	stats := &StorageStats{}
	if err := repository.db.QueryRow(context, query, ownerID).Scan(&stats.FileCount, &stats.TotalBytes); err != nil {
		return nil, dberr.Wrap(err, "stats_files")
	}

	stats.TotalSizeMB = math.Round(float64(stats.TotalBytes)/(1024*1024)*100) / 100

	return stats, nil
}
