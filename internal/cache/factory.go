// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	RedisURL   string // empty means in-process memory cache
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int // memory backend only
}

// New creates a cache from the configuration. When Redis is configured but
// unreachable at startup, it falls back to the memory backend so the
// service still comes up; the degradation is logged.
func New(cfg Config, logger *slog.Logger) Cache {
	if cfg.RedisURL != "" {
		c, err := NewRedisCache(RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			logger.Info("using redis cache", "prefix", cfg.Prefix)
			return c
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	})
}
