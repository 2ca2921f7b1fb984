// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package translate serves translations at render time. Given marked host
// content and a requested language, it resolves the marker to the stored
// translation, falling back to the base text when no translation exists.
// Lookups are fronted by the cache layer.
package translate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingotag/lingotag/internal/cache"
	"github.com/lingotag/lingotag/internal/marker"
	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/store"
)

// ErrNotFound is returned by Edit when the (hash, lang) record is missing.
var ErrNotFound = errors.New("translation not found")

// sentinel cached for (hash, lang) pairs known to be untranslated, so
// repeated lookups for missing translations also skip the database.
const missSentinel = "\x00miss"

// Resolver answers render-time translation lookups.
type Resolver struct {
	queries  *store.Queries
	cache    cache.Cache
	baseLang string
	ttl      time.Duration
	logger   *slog.Logger
}

// NewResolver creates a resolver. ttl bounds how long resolved texts are
// cached; human edits invalidate eagerly, so a generous ttl is fine.
func NewResolver(db *sql.DB, c cache.Cache, baseLang string, ttl time.Duration, logger *slog.Logger) *Resolver {
	if baseLang == "" {
		baseLang = model.LangOther
	}
	return &Resolver{
		queries:  store.New(db),
		cache:    c,
		baseLang: baseLang,
		ttl:      ttl,
		logger:   logger,
	}
}

// Resolve returns the content to render for the requested language.
// Unmarked content passes through untouched. Marked content resolves to the
// stored translation for (marker, lang); when none exists the base text,
// with the marker stripped, is served instead.
func (r *Resolver) Resolve(ctx context.Context, content, lang string) (string, error) {
	hash, base, ok := marker.Extract(content)
	if !ok {
		return content, nil
	}
	if lang == "" || lang == r.baseLang {
		return base, nil
	}

	text, hit, err := r.lookup(ctx, hash, lang)
	if err != nil {
		return "", err
	}
	if !hit {
		return base, nil
	}
	return text, nil
}

// lookup returns the stored translation for (hash, lang) if one exists,
// consulting the cache first. Cache failures degrade to direct database
// reads, never to request failures.
func (r *Resolver) lookup(ctx context.Context, hash, lang string) (string, bool, error) {
	key := cache.TranslationKey(hash, lang)

	cached, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		if string(cached) == missSentinel {
			return "", false, nil
		}
		return string(cached), true, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn("translation cache read failed", "key", key, "error", err)
	}

	tr, err := r.queries.GetTranslation(ctx, hash, lang)
	if errors.Is(err, sql.ErrNoRows) {
		r.cacheSet(ctx, key, missSentinel)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving %s/%s: %w", hash, lang, err)
	}

	r.cacheSet(ctx, key, tr.Text)
	return tr.Text, true, nil
}

func (r *Resolver) cacheSet(ctx context.Context, key, value string) {
	if err := r.cache.Set(ctx, key, []byte(value), r.ttl); err != nil {
		r.logger.Warn("translation cache write failed", "key", key, "error", err)
	}
}

// Edit records a human correction for (hash, lang) and invalidates the
// cached entry. The human-edited flag set here shields the record from
// later automatic fetches.
func (r *Resolver) Edit(ctx context.Context, hash, lang, text string) error {
	err := r.queries.UpdateHumanTranslation(ctx, store.UpdateHumanTranslationParams{
		Hash:       hash,
		Lang:       lang,
		Text:       text,
		ModifiedAt: time.Now(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("editing %s/%s: %w", hash, lang, err)
	}

	if err := r.cache.Delete(ctx, cache.TranslationKey(hash, lang)); err != nil {
		r.logger.Warn("translation cache invalidation failed",
			"hash", hash, "lang", lang, "error", err)
	}

	r.logger.Info("translation edited",
		"category", model.EventCategorySystem, "hash", hash, "lang", lang)
	return nil
}
