// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tgvault/tgvault/internal/platform/apperr"
)

// # Object Storage Backend

// S3Options configures the S3-compatible blob backend.
//
// Endpoint is optional: when set (MinIO, Cloudflare R2, SeaweedFS) it
// overrides the AWS endpoint and switches to path-style addressing.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3BlobStore implements BlobStore on an S3-compatible object store.
type S3BlobStore struct {
	api    *s3.Client
	bucket string
}

// NewS3BlobStore builds the SDK client and returns the store.
func NewS3BlobStore(ctx context.Context, options S3Options) (*S3BlobStore, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(options.Region),
	}

	if options.AccessKey != "" && options.SecretKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("s3_blob_store_config_failed: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3BlobStore{api: client, bucket: options.Bucket}, nil
}

// Put uploads the content under the given key.
func (store *S3BlobStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := store.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3_blob_store_put_failed: %w", err)
	}

	return nil
}

// Open streams the object body for the given key.
func (store *S3BlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := store.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) || strings.Contains(err.Error(), "NoSuchKey") {
			return nil, apperr.NotFound("File content not found")
		}
		return nil, fmt.Errorf("s3_blob_store_get_failed: %w", err)
	}

	return output.Body, nil
}

// Delete removes the object. S3 DeleteObject succeeds on absent keys.
func (store *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := store.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3_blob_store_delete_failed: %w", err)
	}

	return nil
}
