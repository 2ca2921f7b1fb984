// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package reconcile implements the tagging-and-reconciliation pass: it walks
// scanned content fields, assigns each unique text span a stable fingerprint,
// rewrites fields with reference markers, and maintains the mapping between
// fingerprints and the scopes they appear in.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lingotag/lingotag/internal/fingerprint"
	"github.com/lingotag/lingotag/internal/marker"
	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/scanner"
	"github.com/lingotag/lingotag/internal/store"
)

// Result reports the outcome of reconciling a single field.
type Result struct {
	Identifier string
	Changed    bool // true when the field was rewritten with a new marker
}

// Summary aggregates a full reconciliation pass. Failures are isolated per
// field: one bad field never aborts the batch.
type Summary struct {
	Scanned  int
	Tagged   int // fields rewritten with a new marker
	Failed   int
	Duration time.Duration
}

// Engine reconciles scanned fields against the translation store.
type Engine struct {
	queries  *store.Queries
	scanner  *scanner.Scanner
	baseLang string
	logger   *slog.Logger
}

// New creates a reconciliation engine. baseLang is the language code used
// for canonical records, normally model.LangOther.
func New(db *sql.DB, sc *scanner.Scanner, baseLang string, logger *slog.Logger) *Engine {
	if baseLang == "" {
		baseLang = model.LangOther
	}
	return &Engine{
		queries:  store.New(db),
		scanner:  sc,
		baseLang: baseLang,
		logger:   logger,
	}
}

// Reconcile processes a single field:
//
//  1. Reuse the identifier of an existing marker, or fingerprint the content.
//  2. Upsert the canonical base-language record. Human-edited base text is
//     never overwritten; otherwise differing text is re-synced.
//  3. If the field carried no marker, rewrite it and persist the marked text
//     back to the host table.
//  4. Record the fingerprint/scope mapping (idempotent).
func (e *Engine) Reconcile(ctx context.Context, field scanner.FieldRef) (Result, error) {
	now := time.Now()

	id, content, hadMarker := marker.Extract(field.RawContent)
	if !hadMarker {
		id = fingerprint.Fingerprint(field.RawContent)
		content = field.RawContent
	}

	if err := e.syncBaseRecord(ctx, id, content, field, now); err != nil {
		return Result{}, err
	}

	changed := false
	if !hadMarker {
		marked, err := marker.Apply(content, id, field.IsHTML)
		if err != nil {
			return Result{}, err
		}

		err = e.queries.UpdateSourceContent(ctx, field.Source, field.RowID, marked)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Row deleted between scan and write-back: not an error.
		case err != nil:
			return Result{}, err
		default:
			changed = true
		}
	}

	if err := e.queries.UpsertScopeMapping(ctx, id, field.ScopeID, now); err != nil {
		return Result{}, err
	}

	return Result{Identifier: id, Changed: changed}, nil
}

// syncBaseRecord creates or refreshes the canonical record for id.
func (e *Engine) syncBaseRecord(ctx context.Context, id, content string, field scanner.FieldRef, now time.Time) error {
	existing, err := e.queries.GetTranslation(ctx, id, e.baseLang)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = e.queries.CreateTranslation(ctx, store.CreateTranslationParams{
			Hash:      id,
			Lang:      e.baseLang,
			Text:      content,
			ScopeKind: model.ScopeKindCourse,
			ScopeID:   field.ScopeID,
			CreatedAt: now,
		})
		if err == nil {
			return nil
		}
		// A concurrent pass may have created the record first; re-read and
		// fall through to the merge path.
		existing, err = e.queries.GetTranslation(ctx, id, e.baseLang)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if existing.IsHumanEdited || existing.Text == content {
		return nil
	}

	// Base text drifted (marker survived a content edit that kept the hash,
	// or the record predates a scope copy): re-sync machine-owned text.
	return e.queries.UpsertMachineTranslation(ctx, store.UpsertMachineTranslationParams{
		Hash:       id,
		Lang:       e.baseLang,
		Text:       content,
		ScopeKind:  model.ScopeKindCourse,
		ScopeID:    field.ScopeID,
		ModifiedAt: now,
	})
}

// Run executes a full tagging pass over every configured source. Malformed
// fields and storage failures are counted and logged, never fatal for the
// rest of the batch.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	err := e.scanner.Scan(ctx, func(field scanner.FieldRef) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		sum.Scanned++
		res, err := e.Reconcile(ctx, field)
		if err != nil {
			sum.Failed++
			e.logger.Warn("reconciling field failed",
				"category", model.EventCategoryReconcile,
				"source", field.Source.String(),
				"row_id", field.RowID,
				"scope_id", field.ScopeID,
				"error", err,
			)
			return nil
		}
		if res.Changed {
			sum.Tagged++
		}
		return nil
	})

	sum.Duration = time.Since(start)
	if err != nil {
		return sum, err
	}

	e.logger.Info("tagging pass finished",
		"scanned", sum.Scanned,
		"tagged", sum.Tagged,
		"failed", sum.Failed,
		"duration", sum.Duration.Round(time.Millisecond),
	)
	return sum, nil
}
