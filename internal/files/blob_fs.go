// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tgvault/tgvault/internal/platform/apperr"
)

// # Filesystem Backend

// FSBlobStore implements BlobStore on a local directory.
//
// The default backend for development and single-node deployments. Keys map
// directly to paths under the root, so everything stays inspectable with
// ordinary shell tools.
type FSBlobStore struct {
	root string
}

// NewFSBlobStore creates the root directory if needed and returns the store.
func NewFSBlobStore(root string) (*FSBlobStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("fs_blob_store_init_failed: %w", err)
	}
	return &FSBlobStore{root: root}, nil
}

// Put writes the content to root/key, creating intermediate directories.
func (store *FSBlobStore) Put(_ context.Context, key string, reader io.Reader, size int64, _ string) error {
	path, err := store.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("fs_blob_store_mkdir_failed: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("fs_blob_store_create_failed: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		// Partial writes are removed so storage never holds truncated blobs.
		_ = os.Remove(path)
		return fmt.Errorf("fs_blob_store_write_failed: %w", err)
	}

	if size >= 0 && written != size {
		_ = os.Remove(path)
		return fmt.Errorf("fs_blob_store_short_write: wrote %d of %d bytes", written, size)
	}

	return nil
}

// Open returns a reader over root/key.
func (store *FSBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := store.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("File content not found")
		}
		return nil, fmt.Errorf("fs_blob_store_open_failed: %w", err)
	}

	return file, nil
}

// Delete removes root/key. A missing file is a success.
func (store *FSBlobStore) Delete(_ context.Context, key string) error {
	path, err := store.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fs_blob_store_delete_failed: %w", err)
	}

	return nil
}

// resolve maps a storage key to an absolute path and rejects traversal.
//
// Keys are server-generated, so a traversal attempt here means a bug or a
// compromised database row, never legitimate input.
func (store *FSBlobStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("fs_blob_store_invalid_key: %q", key)
	}
	return filepath.Join(store.root, cleaned), nil
}
