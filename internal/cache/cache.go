// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the caching layer in front of the translation
// store. Resolved translations are cached per (hash, lang) so render-time
// lookups avoid a database round trip. Backends: in-process memory cache
// and Redis for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the backend interface. All implementations are thread-safe.
// Values are []byte so memory and Redis backends are interchangeable.
type Cache interface {
	// Get returns the value for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

// TranslationKey builds the cache key for a resolved (hash, lang) pair.
func TranslationKey(hash, lang string) string {
	return fmt.Sprintf("tr:%s:%s", hash, lang)
}
