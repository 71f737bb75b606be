// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, blob store) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the TGVault API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// BotToken is the Telegram bot token. It is the trust anchor for the
	// Mini App signature check: every initData payload is verified against
	// a signing key derived from this secret.
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// SecureCookie controls the Secure attribute on the session cookie.
	// Disable only for plain-HTTP local development.
	SecureCookie bool `env:"COOKIE_SECURE" envDefault:"true"`

	// AuthMaxAgeSeconds is the freshness window for signed initData payloads.
	AuthMaxAgeSeconds int `env:"AUTH_MAX_AGE" envDefault:"86400"`

	// File blob storage. Backend is "fs" (local directory) or "s3".
	BlobBackend string `env:"BLOB_BACKEND" envDefault:"fs"`
	UploadDir   string `env:"UPLOAD_DIR"   envDefault:"./data/uploads"`

	// Object Storage (Cloudflare R2 / S3-compatible), used when BlobBackend is "s3".
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"   envDefault:"auto"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.BlobBackend == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("config: S3_BUCKET is required when BLOB_BACKEND=s3")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
