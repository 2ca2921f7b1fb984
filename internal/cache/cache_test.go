// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingotag/lingotag/internal/testutil"
)

func TestMemoryCacheBasics(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting a missing key is fine.
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheMaxSizeEvicts(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, MaxSize: 2})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, c.Len())

	// The entry closest to expiry was evicted.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	require.NoError(t, c.Close())
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)

	// Double close is a no-op.
	assert.NoError(t, c.Close())
}

func TestFactoryFallsBackToMemory(t *testing.T) {
	// Unreachable Redis must not prevent startup.
	c := New(Config{RedisURL: "redis://127.0.0.1:1/0", DefaultTTL: time.Minute}, testutil.TestLogger())
	defer func() { _ = c.Close() }()

	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}

func TestFactoryMemoryByDefault(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute}, testutil.TestLogger())
	defer func() { _ = c.Close() }()

	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}

func TestTranslationKey(t *testing.T) {
	assert.Equal(t, "tr:AbCdEf1234:de", TranslationKey("AbCdEf1234", "de"))
}
