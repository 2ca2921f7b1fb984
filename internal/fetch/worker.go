// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fetch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/provider"
	"github.com/lingotag/lingotag/internal/store"
)

// WorkerConfig tunes the fetch worker. Zero values fall back to defaults.
type WorkerConfig struct {
	BatchSize         int           // entries per provider call
	MaxRetries        int           // extra attempts per batch on transient errors
	RequestsPerMinute int           // provider rate limit
	PollInterval      time.Duration // cadence of the queued-task poll in Run
	RetryBaseDelay    time.Duration // first backoff delay, doubled per attempt
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	return c
}

// Worker drains queued fetch tasks. A single worker goroutine is enough:
// tasks are processed one at a time, batch by batch, with progress persisted
// after every batch so polls reflect true incremental state.
type Worker struct {
	queries  *store.Queries
	provider provider.Provider
	limiter  *rate.Limiter
	sanitize *bluemonday.Policy
	cfg      WorkerConfig
	logger   *slog.Logger
}

// NewWorker creates a fetch worker.
func NewWorker(db *sql.DB, p provider.Provider, cfg WorkerConfig, logger *slog.Logger) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		queries:  store.New(db),
		provider: p,
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		sanitize: bluemonday.UGCPolicy(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Run polls for queued tasks until the context is cancelled. After finishing
// a task it immediately checks for the next one, so a backlog drains without
// waiting out the poll interval.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			claimed, err := w.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("fetch worker pass failed",
					"category", model.EventCategoryFetch, "error", err)
			}
			if !claimed || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims and processes at most one queued task. It reports whether a
// task was claimed. A processing error is recorded on the task row, not
// returned: only claim and bookkeeping failures surface to the caller.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.queries.NextQueuedTask(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claiming task: %w", err)
	}

	ok, err := w.queries.MarkTaskRunning(ctx, task.ID, time.Now())
	if err != nil {
		return false, fmt.Errorf("claiming task %s: %w", task.TaskID, err)
	}
	if !ok {
		// Another worker won the claim.
		return false, nil
	}

	w.logger.Info("fetch task started",
		"category", model.EventCategoryFetch,
		"task_id", task.TaskID,
		"total_entries", task.TotalEntries,
	)

	if err := w.process(ctx, task); err != nil {
		w.logger.Warn("fetch task failed",
			"category", model.EventCategoryFetch,
			"task_id", task.TaskID,
			"error", err,
		)
		if failErr := w.queries.FailTask(ctx, task.ID, err.Error(), time.Now()); failErr != nil {
			return true, fmt.Errorf("marking task %s failed: %w", task.TaskID, failErr)
		}
		return true, nil
	}

	if err := w.queries.CompleteTask(ctx, task.ID, time.Now()); err != nil {
		return true, fmt.Errorf("completing task %s: %w", task.TaskID, err)
	}
	w.logger.Info("fetch task completed",
		"category", model.EventCategoryFetch, "task_id", task.TaskID)
	return true, nil
}

// process works through every entry the task's criteria select. Transient
// provider failures exhaust a bounded retry and then skip the batch, leaving
// its entries untranslated but counted as processed so the task cannot loop
// on them forever. A permanent provider failure aborts the task: every
// remaining entry would fail identically.
func (w *Worker) process(ctx context.Context, task model.TaskProgress) error {
	var c Criteria
	if err := json.Unmarshal([]byte(task.Payload), &c); err != nil {
		return fmt.Errorf("decoding task criteria: %w", err)
	}

	var processed int64
	for _, lang := range c.Langs {
		entries, err := w.queries.ListUntranslated(ctx, c.filter(lang))
		if err != nil {
			return err
		}

		for start := 0; start < len(entries); start += w.cfg.BatchSize {
			end := min(start+w.cfg.BatchSize, len(entries))
			batch := entries[start:end]

			if err := w.processBatch(ctx, task, lang, batch); err != nil {
				return err
			}

			processed += int64(len(batch))
			now := time.Now()
			// Entries tagged after enqueue may push processed past the
			// recorded total; the reported counter stays clamped.
			reported := processed
			if task.TotalEntries > 0 && reported > task.TotalEntries {
				reported = task.TotalEntries
			}
			if err := w.queries.UpdateTaskProgress(ctx, task.ID, reported, now); err != nil {
				return fmt.Errorf("persisting progress: %w", err)
			}
		}
	}
	return nil
}

// processBatch translates one batch and writes the results. A nil return
// with no writes means the batch was skipped after retries.
func (w *Worker) processBatch(ctx context.Context, task model.TaskProgress, lang string, batch []model.Translation) error {
	texts := make([]string, len(batch))
	for i, entry := range batch {
		texts[i] = entry.Text
	}

	translated, err := w.translateBatch(ctx, texts, lang)
	switch {
	case err == nil:
	case provider.IsPermanent(err):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// Transient failure after retries, or a malformed provider reply:
		// skip this batch. Its entries stay untranslated and remain
		// eligible for a future task.
		w.logger.Warn("fetch batch skipped",
			"category", model.EventCategoryFetch,
			"task_id", task.TaskID,
			"lang", lang,
			"entries", len(batch),
			"error", err,
		)
		return nil
	}

	now := time.Now()
	for i, entry := range batch {
		text := translated[i]
		if strings.Contains(entry.Text, "<") {
			text = w.sanitize.Sanitize(text)
		}
		err := w.queries.UpsertMachineTranslation(ctx, store.UpsertMachineTranslationParams{
			Hash:       entry.Hash,
			Lang:       lang,
			Text:       text,
			ScopeKind:  entry.ScopeKind,
			ScopeID:    entry.ScopeID,
			ModifiedAt: now,
		})
		if err != nil {
			return fmt.Errorf("storing %s/%s: %w", entry.Hash, lang, err)
		}
	}
	return nil
}

// translateBatch calls the provider under the rate limiter, retrying
// transient failures with exponential backoff up to MaxRetries extra
// attempts.
func (w *Worker) translateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	delay := w.cfg.RetryBaseDelay
	for attempt := 0; ; attempt++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out, err := w.provider.Translate(ctx, provider.Request{
			Texts:      texts,
			TargetLang: lang,
		})
		if err == nil {
			if len(out) != len(texts) {
				return nil, &provider.CountMismatchError{Expected: len(texts), Got: len(out)}
			}
			return out, nil
		}
		if !provider.IsRetryable(err) || attempt >= w.cfg.MaxRetries {
			return nil, err
		}

		w.logger.Debug("retrying provider call",
			"lang", lang, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
