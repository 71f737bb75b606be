// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/sec"
)

// # Session Cache

// RedisSessionCache implements SessionCache using Redis.
//
// Entries are keyed by token hash and expire together with the session, so
// a cache hit can never resurrect a dead session.
type RedisSessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a new Redis-backed SessionCache.
func NewSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

/*
Set stores the resolved principal under the session's token hash.

Parameters:
  - context: context.Context
  - tokenHash: string
  - principal: *sec.Principal
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (cache *RedisSessionCache) Set(context context.Context, tokenHash string, principal *sec.Principal, ttl time.Duration) error {

	// A non-positive TTL means the session is already dead; never cache it.
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("redis_session_cache_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixSession + tokenHash
	if err := cache.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the cached principal for a token hash.

Description: Returns apperr.NotFound if the entry is absent or expired.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *sec.Principal: Cached identity
  - error: apperr.NotFound or connectivity errors
*/
func (cache *RedisSessionCache) Get(context context.Context, tokenHash string) (*sec.Principal, error) {
	key := constants.RedisPrefixSession + tokenHash

	payload, err := cache.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session not cached")
		}
		return nil, fmt.Errorf("redis_session_cache_get_failed: %w", err)
	}

	principal := &sec.Principal{}
	if err := json.Unmarshal(payload, principal); err != nil {
		return nil, fmt.Errorf("redis_session_cache_unmarshal_failed: %w", err)
	}

	return principal, nil
}

/*
Delete evicts the cache entry for a token hash.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Eviction failures
*/
func (cache *RedisSessionCache) Delete(context context.Context, tokenHash string) error {
	key := constants.RedisPrefixSession + tokenHash

	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_delete_failed: %w", err)
	}

	return nil
}
