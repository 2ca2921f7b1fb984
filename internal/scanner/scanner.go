// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scanner enumerates allow-listed host CMS content fields.
// It is read-only: classification of fields as HTML or plain comes from the
// configured allow-list, never from sniffing the content itself.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lingotag/lingotag/internal/store"
)

// Config is the explicit allow-list of content sources to scan, passed into
// construction rather than read from ambient state.
type Config struct {
	Sources  []store.SourceTable
	PageSize int64 // rows fetched per page, bounds memory on large sites
}

// FieldRef is one candidate text field produced by a scan.
type FieldRef struct {
	Source     store.SourceTable
	RowID      int64
	ScopeID    int64
	RawContent string
	IsHTML     bool
}

// Scanner walks configured content sources page by page.
type Scanner struct {
	queries *store.Queries
	cfg     Config
	logger  *slog.Logger
}

// New creates a Scanner. Sources are validated up front so a typo in the
// allow-list fails at startup, not mid-scan.
func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Scanner, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	for _, src := range cfg.Sources {
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("scanner config: %w", err)
		}
	}
	return &Scanner{
		queries: store.New(db),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Scan invokes fn for every non-empty content field of every configured
// source. Reads are paginated; each page is a point-in-time snapshot. A
// failure reading one source is logged and the remaining sources are still
// scanned. An error from fn stops the whole scan and is returned, so callers
// can abort on context cancellation.
func (s *Scanner) Scan(ctx context.Context, fn func(FieldRef) error) error {
	for _, src := range s.cfg.Sources {
		if err := s.scanSource(ctx, src, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) scanSource(ctx context.Context, src store.SourceTable, fn func(FieldRef) error) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rows, err := s.queries.ListSourceRows(ctx, src, s.cfg.PageSize, offset)
		if err != nil {
			// A broken source must not abort the whole pass.
			s.logger.Error("scanning source failed",
				"source", src.String(),
				"error", err,
			)
			return nil
		}
		if len(rows) == 0 {
			return nil
		}

		for _, row := range rows {
			if row.Content == "" {
				continue
			}
			field := FieldRef{
				Source:     src,
				RowID:      row.ID,
				ScopeID:    row.ScopeID,
				RawContent: row.Content,
				IsHTML:     src.IsHTML,
			}
			if err := fn(field); err != nil {
				return err
			}
		}

		if int64(len(rows)) < s.cfg.PageSize {
			return nil
		}
		offset += s.cfg.PageSize
	}
}
